package omics

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"healthomics/internal/aws/awstest"
	"healthomics/internal/config"
	"healthomics/internal/mcp"
)

var allTools = []string{
	"ListWorkflows", "CreateWorkflow", "GetWorkflow", "CreateWorkflowVersion", "ListWorkflowVersions", "GetWorkflowVersion",
	"StartRun", "ListRuns", "GetRun", "ListRunTasks", "GetRunTask",
	"GetRunLogs", "GetRunManifestLogs", "GetRunEngineLogs", "GetTaskLogs", "ListRunLogStreams",
	"AnalyzeRun", "DiagnoseRunFailure",
	"ListSequenceStores", "GetSequenceStore", "ListReadSets", "ListReferenceStores", "GetReferenceStore",
	"PackageWorkflow", "GetSupportedRegions",
}

func TestToolsetInitAndRegister(t *testing.T) {
	toolset := New()
	if err := toolset.Init(mcp.ToolsetContext{}); err == nil {
		t.Fatalf("expected error for missing config")
	}
	cfg := config.DefaultConfig()
	if err := toolset.Init(mcp.ToolsetContext{Config: &cfg}); err != nil {
		t.Fatalf("init: %v", err)
	}
	reg := mcp.NewRegistry(&cfg)
	if err := toolset.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, name := range allTools {
		if _, ok := reg.Get(name); !ok {
			t.Fatalf("expected %s to be registered", name)
		}
	}
	if got := len(reg.Names()); got != len(allTools) {
		t.Fatalf("expected %d tools, got %d: %v", len(allTools), got, reg.Names())
	}
}

func TestReadOnlyHidesWriteTools(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReadOnly = true
	toolset := New()
	if err := toolset.Init(mcp.ToolsetContext{Config: &cfg}); err != nil {
		t.Fatalf("init: %v", err)
	}
	reg := mcp.NewRegistry(&cfg)
	if err := toolset.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, name := range []string{"CreateWorkflow", "CreateWorkflowVersion", "StartRun"} {
		if _, ok := reg.Get(name); ok {
			t.Fatalf("%s must be hidden in read-only mode", name)
		}
	}
	for _, name := range []string{"ListRuns", "DiagnoseRunFailure", "PackageWorkflow"} {
		if _, ok := reg.Get(name); !ok {
			t.Fatalf("%s must stay available in read-only mode", name)
		}
	}
}

func TestClientsUseConfiguredRegion(t *testing.T) {
	var requested []string
	load := func(_ context.Context, region string) (aws.Config, error) {
		requested = append(requested, region)
		cfg := awstest.Config(t, &awstest.TargetRoundTripper{})
		cfg.Region = region
		return cfg, nil
	}
	cfg := config.DefaultConfig()
	cfg.Region = "eu-central-1"
	toolset := NewWithLoader(load)
	if err := toolset.Init(mcp.ToolsetContext{Config: &cfg}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, region, err := toolset.omicsClient(context.Background(), ""); err != nil || region != "eu-central-1" {
		t.Fatalf("expected configured region, got %q (%v)", region, err)
	}
	if _, region, err := toolset.logsClient(context.Background(), " us-west-2 "); err != nil || region != "us-west-2" {
		t.Fatalf("expected explicit region, got %q (%v)", region, err)
	}
	// A second lookup for the same region reuses the cached client.
	if _, _, err := toolset.omicsClient(context.Background(), "eu-central-1"); err != nil {
		t.Fatalf("omics client: %v", err)
	}
	if len(requested) != 2 {
		t.Fatalf("expected two config loads, got %v", requested)
	}
}
