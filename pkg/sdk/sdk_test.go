package sdk

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"

	"healthomics/internal/config"
	"healthomics/internal/mcp"
)

type pluginToolset struct {
	id string
}

func (p pluginToolset) ID() string                { return p.id }
func (p pluginToolset) Version() string           { return "0.0.1" }
func (p pluginToolset) Init(ToolsetContext) error { return nil }

func (p pluginToolset) Register(reg Registry) error {
	return reg.Add(ToolSpec{
		Name:      "ListCustomThings",
		ToolsetID: p.id,
		Safety:    SafetyReadOnly,
		Handler: func(ctx context.Context, req ToolRequest) (ToolResult, error) {
			return ToolResult{Data: map[string]any{"ok": true}}, nil
		},
	})
}

func TestRegisterAndListToolsets(t *testing.T) {
	id := fmt.Sprintf("sdk-test-%d", time.Now().UnixNano())
	err := RegisterToolset(id, func() Toolset { return pluginToolset{id: id} })
	if err != nil {
		t.Fatalf("register toolset: %v", err)
	}
	found := false
	for _, name := range RegisteredToolsets() {
		if name == id {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected toolset id %s in list", id)
	}
	if err := RegisterToolset(id, func() Toolset { return pluginToolset{id: id} }); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestMustRegisterToolset(t *testing.T) {
	id := fmt.Sprintf("sdk-must-%d", time.Now().UnixNano())
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	MustRegisterToolset(id, func() Toolset { return pluginToolset{id: id} })
}

func TestPluginToolsetRegistersTools(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReadOnly = true
	reg := mcp.NewRegistry(&cfg)
	if err := (pluginToolset{id: "custom"}).Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	spec, ok := reg.Get("ListCustomThings")
	if !ok {
		t.Fatalf("expected read-only plugin tool to survive read-only mode")
	}
	result, err := spec.Handler(context.Background(), ToolRequest{})
	if err != nil || result.Data == nil {
		t.Fatalf("unexpected handler result: %#v (%v)", result, err)
	}
}

func TestArgumentHelpers(t *testing.T) {
	var args struct {
		RunID string `json:"runId" validate:"required"`
		Page
	}
	if err := DecodeArgs(map[string]any{"maxResults": 10}, &args); err == nil {
		t.Fatalf("expected missing runId to fail")
	} else if KindOf(err) != mcp.KindValidation {
		t.Fatalf("expected validation kind, got %s", KindOf(err))
	}
	if err := DecodeArgs(map[string]any{"runId": "1234", "maxResults": 10}, &args); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if args.RunID != "1234" || args.Limit(50) != 10 {
		t.Fatalf("unexpected args: %#v", args)
	}
	if KindOf(Invalid("bad %s", "input")) != mcp.KindValidation {
		t.Fatalf("expected Invalid to be a validation error")
	}
	wrapped := Wrap("GetRun", errors.New("boom"))
	var toolErr *mcp.ToolError
	if !errors.As(wrapped, &toolErr) || toolErr.Op != "GetRun" {
		t.Fatalf("expected wrapped tool error, got %#v", wrapped)
	}
}

func TestNewClientCache(t *testing.T) {
	loads := 0
	load := func(_ context.Context, region string) (sdkaws.Config, error) {
		loads++
		return sdkaws.Config{Region: region}, nil
	}
	clients := NewClientCache("", load, func(cfg sdkaws.Config) string { return cfg.Region })
	for i := 0; i < 2; i++ {
		client, region, err := clients.Get(context.Background(), "us-west-2")
		if err != nil || client != "us-west-2" || region != "us-west-2" {
			t.Fatalf("unexpected client %q region %q (%v)", client, region, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected one config load, got %d", loads)
	}
}
