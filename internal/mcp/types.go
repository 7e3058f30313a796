package mcp

import (
	"context"

	"healthomics/internal/audit"
	"healthomics/internal/cache"
	"healthomics/internal/config"
	"healthomics/internal/logging"
	"healthomics/internal/redact"
	"healthomics/internal/render"
)

type ToolSafety string

const (
	SafetyReadOnly ToolSafety = "read_only"
	SafetyWrite    ToolSafety = "write"
)

type ToolHandler func(ctx context.Context, req ToolRequest) (ToolResult, error)

type ToolSpec struct {
	Name        string
	Description string
	ToolsetID   string
	InputSchema map[string]any
	Safety      ToolSafety
	Handler     ToolHandler
}

type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type ToolRequest struct {
	Arguments map[string]any
	Context   ToolContext
}

type ToolResult struct {
	Data     any
	Metadata ToolMetadata
}

type ToolMetadata struct {
	Region    string   `json:"region,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// ToolContext carries the process-wide collaborators every toolset shares.
type ToolContext struct {
	Config   *config.Config
	Logger   logging.Logger
	Renderer render.Renderer
	Redactor *redact.Redactor
	Audit    *audit.Logger
	Cache    *cache.Store
	Registry Registry
}

type ToolsetContext = ToolContext
