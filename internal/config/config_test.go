package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithOverridesAndDropIns(t *testing.T) {
	dir := t.TempDir()
	mainCfg := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(mainCfg, []byte(`
toolsets = ["omics"]
read_only = true
log_level = "debug"
region = "us-west-2"
`), 0600); err != nil {
		t.Fatalf("write main config: %v", err)
	}

	dropInDir := filepath.Join(dir, "dropins")
	if err := os.MkdirAll(dropInDir, 0700); err != nil {
		t.Fatalf("mkdir dropins: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dropInDir, "10-base.toml"), []byte(`
log_level = "info"
profile = "research"
`), 0600); err != nil {
		t.Fatalf("write dropin: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dropInDir, "20-override.toml"), []byte(`
log_level = "warn"
toolsets = ["omics","ecr"]
`), 0600); err != nil {
		t.Fatalf("write dropin: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dropInDir, "README"), []byte("not toml"), 0600); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	overrideReadOnly := false
	overrideRegion := "eu-west-1"
	cfg, err := Load(mainCfg, dropInDir, Overrides{ReadOnly: &overrideReadOnly, Region: &overrideRegion})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReadOnly {
		t.Fatalf("expected override read_only false")
	}
	if cfg.Profile != "research" {
		t.Fatalf("expected profile from drop-in, got %q", cfg.Profile)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected drop-in override log_level, got %q", cfg.LogLevel)
	}
	if cfg.Region != "eu-west-1" {
		t.Fatalf("expected override region, got %q", cfg.Region)
	}
	if len(cfg.Toolsets) != 2 || cfg.Toolsets[0] != "omics" || cfg.Toolsets[1] != "ecr" {
		t.Fatalf("expected toolsets overridden from drop-in, got %#v", cfg.Toolsets)
	}
}

func TestLoadSectionsKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	mainCfg := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(mainCfg, []byte(`
[timeouts]
default_seconds = 30
per_tool = { DiagnoseRunFailure = 120 }

[logs]
default_limit = 50

[diagnosis]
max_failed_tasks = 5
`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(mainCfg, "", Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timeouts.DefaultSeconds != 30 || cfg.Timeouts.PerTool["DiagnoseRunFailure"] != 120 {
		t.Fatalf("unexpected timeouts: %#v", cfg.Timeouts)
	}
	if cfg.Logs.DefaultLimit != 50 || cfg.Logs.MaxLimit != MaxLogLimit || cfg.Logs.LogGroup != DefaultLogGroup {
		t.Fatalf("unexpected logs config: %#v", cfg.Logs)
	}
	if cfg.Diagnosis.MaxFailedTasks != 5 || cfg.Diagnosis.Concurrency != defaultConcurrency {
		t.Fatalf("unexpected diagnosis config: %#v", cfg.Diagnosis)
	}
	if cfg.Cache.RegionsTTLSeconds != DefaultRegionsTTL {
		t.Fatalf("expected default regions ttl, got %d", cfg.Cache.RegionsTTLSeconds)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"format": `log_format = "xml"`,
		"limit":  "[logs]\ndefault_limit = 20000",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(path, []byte(body), 0600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(path, "", Overrides{}); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), "", Overrides{}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadMissingDropInDir(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "nope"), Overrides{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Toolsets) != 2 {
		t.Fatalf("expected default toolsets, got %#v", cfg.Toolsets)
	}
}

func TestDropInDir(t *testing.T) {
	if got := DropInDir(""); got != "" {
		t.Fatalf("expected empty drop-in dir, got %q", got)
	}
	if got := DropInDir("/etc/healthomics/config.toml"); got != "/etc/healthomics/config.d" {
		t.Fatalf("unexpected drop-in dir %q", got)
	}
}
