package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdkjsonrpc "github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"healthomics/internal/audit"
)

func RegisterSDKTools(server *sdkmcp.Server, reg *ToolRegistry, ctx ToolContext) ([]string, error) {
	if server == nil || reg == nil {
		return nil, fmt.Errorf("server and registry are required")
	}
	for _, spec := range reg.Specs() {
		schema := spec.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		tool := &sdkmcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: schema,
		}
		server.AddTool(tool, toolHandler(spec, ctx))
	}
	return reg.Names(), nil
}

func toolHandler(spec ToolSpec, ctx ToolContext) sdkmcp.ToolHandler {
	return func(callCtx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		args := map[string]any{}
		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, &sdkjsonrpc.Error{Code: sdkjsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid arguments: %v", err)}
			}
		}
		if ctx.Logger != nil {
			ctx.Logger.Debug("tool call", "tool", spec.Name, "toolset", spec.ToolsetID)
		}

		started := time.Now()
		execCtx, cancel := withToolTimeout(callCtx, ctx.Config, spec)
		result, toolErr := spec.Handler(execCtx, ToolRequest{Arguments: args, Context: ctx})
		cancel()
		logAudit(ctx, spec, result.Metadata, time.Since(started), toolErr)

		return buildCallToolResult(ctx, result, toolErr), nil
	}
}

func buildCallToolResult(ctx ToolContext, result ToolResult, toolErr error) *sdkmcp.CallToolResult {
	res := &sdkmcp.CallToolResult{}
	if result.Metadata.Region != "" || len(result.Metadata.Resources) > 0 {
		res.Meta = sdkmcp.Meta{
			"region":    result.Metadata.Region,
			"resources": result.Metadata.Resources,
		}
	}
	if toolErr != nil {
		details := result.Data
		message := toolErr.Error()
		if ctx.Redactor != nil {
			details = ctx.Redactor.RedactValue(details)
			message = ctx.Redactor.RedactString(message)
		}
		envelope := BuildErrorEnvelope(toolErr, details)
		if ctx.Redactor != nil {
			detail := envelope["error"].(ErrorDetail)
			detail.Message = message
			envelope["error"] = detail
		}
		res.IsError = true
		res.StructuredContent = envelope
		res.Content = []sdkmcp.Content{&sdkmcp.TextContent{Text: message}}
		return res
	}

	data := result.Data
	if data == nil {
		res.Content = []sdkmcp.Content{&sdkmcp.TextContent{Text: "{}"}}
		return res
	}
	if ctx.Redactor != nil {
		data = ctx.Redactor.RedactValue(data)
	}
	res.StructuredContent = data
	dataJSON, err := json.Marshal(data)
	if err != nil {
		res.Content = []sdkmcp.Content{&sdkmcp.TextContent{Text: fmt.Sprintf("%v", data)}}
	} else {
		res.Content = []sdkmcp.Content{&sdkmcp.TextContent{Text: string(dataJSON)}}
	}
	return res
}

func logAudit(ctx ToolContext, spec ToolSpec, meta ToolMetadata, elapsed time.Duration, err error) {
	if ctx.Audit == nil {
		return
	}
	event := audit.Event{
		Tool:      spec.Name,
		Toolset:   spec.ToolsetID,
		Resources: meta.Resources,
		Outcome:   "success",
		Duration:  elapsed,
	}
	if err != nil {
		detail := classifyError(err)
		event.Outcome = "error"
		event.ErrorCode = detail.Code
		event.Error = detail.Message
		if ctx.Redactor != nil {
			event.Error = ctx.Redactor.RedactString(event.Error)
		}
	}
	ctx.Audit.Log(event)
}
