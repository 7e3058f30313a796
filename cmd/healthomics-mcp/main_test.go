package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"testing"

	"healthomics/pkg/server"
)

func stubRuntime(t *testing.T) {
	t.Helper()
	origRun := runServer
	origExit := exit
	origArgs := os.Args
	origStderr := os.Stderr
	t.Cleanup(func() {
		runServer = origRun
		exit = origExit
		os.Args = origArgs
		os.Stderr = origStderr
	})
	tmp, err := os.CreateTemp(t.TempDir(), "stderr")
	if err != nil {
		t.Fatalf("temp stderr: %v", err)
	}
	os.Stderr = tmp
}

func TestMainSuccessFlags(t *testing.T) {
	stubRuntime(t)
	var got server.Options
	runServer = func(ctx context.Context, opts server.Options) error {
		got = opts
		return nil
	}
	exit = func(code int) {
		t.Fatalf("unexpected exit %d", code)
	}
	os.Args = []string{
		"healthomics-mcp",
		"--config", "/tmp/config.toml",
		"--region", "eu-west-1",
		"--profile", "genomics",
		"--toolsets", "omics, ecr,",
		"--read-only",
		"--log-level", "debug",
		"--log-format", "json",
	}

	main()

	if got.Region != "eu-west-1" || got.Profile != "genomics" {
		t.Fatalf("unexpected region/profile: %#v", got)
	}
	if !reflect.DeepEqual(got.Toolsets, []string{"omics", "ecr"}) {
		t.Fatalf("unexpected toolsets: %#v", got.Toolsets)
	}
	if got.ConfigPath != "/tmp/config.toml" || !got.ReadOnly || got.LogLevel != "debug" || got.LogFormat != "json" {
		t.Fatalf("unexpected options: %#v", got)
	}
	if got.Version != version {
		t.Fatalf("expected version %s, got %s", version, got.Version)
	}
}

func TestMainDefaultsLeaveConfigUntouched(t *testing.T) {
	stubRuntime(t)
	var got server.Options
	runServer = func(ctx context.Context, opts server.Options) error {
		got = opts
		return nil
	}
	exit = func(code int) {
		t.Fatalf("unexpected exit %d", code)
	}
	os.Args = []string{"healthomics-mcp"}

	main()

	if got.Region != "" || got.Toolsets != nil || got.ReadOnly || got.LogLevel != "" {
		t.Fatalf("expected zero overrides, got %#v", got)
	}
}

func TestMainErrorExit(t *testing.T) {
	stubRuntime(t)
	runServer = func(ctx context.Context, opts server.Options) error {
		return fmt.Errorf("boom")
	}
	exitCode := 0
	exit = func(code int) {
		exitCode = code
	}
	os.Args = []string{"healthomics-mcp"}

	main()

	if exitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", exitCode)
	}
}
