package mcp

import (
	"context"
	"testing"

	"healthomics/internal/config"
)

func noopHandler(context.Context, ToolRequest) (ToolResult, error) {
	return ToolResult{}, nil
}

func TestRegistrySafetyReadOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReadOnly = true
	reg := NewRegistry(&cfg)
	if err := reg.Add(ToolSpec{Name: "StartRun", Safety: SafetyWrite, Handler: noopHandler}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.Get("StartRun"); ok {
		t.Fatalf("expected write tool to be filtered in read-only mode")
	}
	if err := reg.Add(ToolSpec{Name: "GetRun", Safety: SafetyReadOnly, Handler: noopHandler}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.Get("GetRun"); !ok {
		t.Fatalf("expected read-only tool to be registered")
	}
	if hidden := reg.Hidden(); len(hidden) != 1 || hidden[0] != "StartRun" {
		t.Fatalf("expected StartRun to be reported hidden, got %v", hidden)
	}
}

func TestRegistryAllowsWritesByDefault(t *testing.T) {
	cfg := config.DefaultConfig()
	reg := NewRegistry(&cfg)
	if err := reg.Add(ToolSpec{Name: "StartRun", Safety: SafetyWrite, Handler: noopHandler}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.Get("StartRun"); !ok {
		t.Fatalf("expected write tool when read_only is off")
	}
	if len(reg.Hidden()) != 0 {
		t.Fatalf("expected nothing hidden, got %v", reg.Hidden())
	}
}

func TestRegistryAddValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	reg := NewRegistry(&cfg)
	if err := reg.Add(ToolSpec{Handler: noopHandler}); err == nil {
		t.Fatalf("expected error for missing tool name")
	}
	if err := reg.Add(ToolSpec{Name: "GetRun"}); err == nil {
		t.Fatalf("expected error for missing handler")
	}
	if err := reg.Add(ToolSpec{Name: "GetRun", Handler: noopHandler}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Add(ToolSpec{Name: "GetRun", Handler: noopHandler}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestRegistryListAndNames(t *testing.T) {
	reg := NewRegistry(nil)
	_ = reg.Add(ToolSpec{Name: "ListRuns", Safety: SafetyReadOnly, Handler: noopHandler})
	_ = reg.Add(ToolSpec{Name: "GetRun", Safety: SafetyReadOnly, Handler: noopHandler})
	list := reg.List()
	if len(list) != 2 || list[0].Name != "GetRun" || list[1].Name != "ListRuns" {
		t.Fatalf("unexpected list: %#v", list)
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "GetRun" || names[1] != "ListRuns" {
		t.Fatalf("unexpected names: %#v", names)
	}
	specs := reg.Specs()
	if len(specs) != 2 || specs[0].Name != "GetRun" {
		t.Fatalf("unexpected specs: %#v", specs)
	}
}
