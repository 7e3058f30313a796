package sdk

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"

	awslib "healthomics/internal/aws"
	"healthomics/internal/mcp"
	"healthomics/internal/redact"
	"healthomics/internal/render"
)

// Core toolset interfaces and types.
type Toolset = mcp.Toolset

type ToolsetContext = mcp.ToolsetContext

type ToolSpec = mcp.ToolSpec

type ToolHandler = mcp.ToolHandler

type ToolSafety = mcp.ToolSafety

type ToolRequest = mcp.ToolRequest

type ToolResult = mcp.ToolResult

type ToolMetadata = mcp.ToolMetadata

type Registry = mcp.Registry

const (
	SafetyReadOnly = mcp.SafetyReadOnly
	SafetyWrite    = mcp.SafetyWrite
)

// Toolset registration for plugin discovery.
func RegisterToolset(id string, factory mcp.ToolsetFactory) error {
	return mcp.RegisterToolset(id, factory)
}

func MustRegisterToolset(id string, factory mcp.ToolsetFactory) {
	mcp.MustRegisterToolset(id, factory)
}

func RegisteredToolsets() []string {
	return mcp.RegisteredToolsets()
}

// Argument handling and errors.
type Page = mcp.Page

type ErrorKind = mcp.ErrorKind

func DecodeArgs(args map[string]any, dst any) error {
	return mcp.DecodeArgs(args, dst)
}

func Invalid(format string, args ...any) error {
	return mcp.Invalid(format, args...)
}

func Wrap(op string, err error) error {
	return mcp.Wrap(op, err)
}

func KindOf(err error) ErrorKind {
	return mcp.KindOf(err)
}

// AWS client helpers.
type ConfigLoader = awslib.ConfigLoader

// NewClientCache returns a per-region client cache. A nil loader uses the
// default credential chain.
func NewClientCache[T any](profile string, load ConfigLoader, build func(sdkaws.Config) T) *awslib.ClientCache[T] {
	return awslib.NewClientCache(profile, load, build)
}

func LoadConfig(ctx context.Context, region, profile string) (sdkaws.Config, error) {
	return awslib.LoadConfig(ctx, region, profile)
}

// Shared services.
type Renderer = render.Renderer

type Redactor = redact.Redactor
