package omicslogs

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"

	"healthomics/internal/config"
	"healthomics/internal/healthomics"
	"healthomics/internal/mcp"
	"healthomics/internal/runlogs"
)

type Service struct {
	ctx         mcp.ToolsetContext
	omicsClient healthomics.OmicsClientFunc
	logsClient  healthomics.LogsClientFunc
	toolsetID   string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, omicsClient healthomics.OmicsClientFunc, logsClient healthomics.LogsClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, omicsClient: omicsClient, logsClient: logsClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "GetRunLogs",
			Description: "Get run-level log events for a workflow run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaRunLogs(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetRunLogs,
		},
		{
			Name:        "GetRunManifestLogs",
			Description: "Get the manifest log (resource and timing summary) of a workflow run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaManifestLogs(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetRunManifestLogs,
		},
		{
			Name:        "GetRunEngineLogs",
			Description: "Get workflow engine STDOUT/STDERR for a run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaRunLogs(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetRunEngineLogs,
		},
		{
			Name:        "GetTaskLogs",
			Description: "Get log events for one task of a run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaTaskLogs(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetTaskLogs,
		},
		{
			Name:        "ListRunLogStreams",
			Description: "List the CloudWatch log streams written by a run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListRunLogStreams(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListRunLogStreams,
		},
	}
}

// LogArgs are the arguments shared by every log tool.
type LogArgs struct {
	RunID         string `json:"runId" validate:"required"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Limit         int    `json:"limit" validate:"omitempty,min=1,max=10000"`
	NextToken     string `json:"nextToken"`
	StartFromHead *bool  `json:"startFromHead"`
	Region        string `json:"region"`
}

type manifestLogArgs struct {
	LogArgs
	RunUUID string `json:"runUuid"`
}

type taskLogArgs struct {
	LogArgs
	TaskID string `json:"taskId" validate:"required"`
}

type listStreamsArgs struct {
	RunID      string `json:"runId" validate:"required"`
	MaxResults int    `json:"maxResults" validate:"omitempty,min=1,max=50"`
	NextToken  string `json:"nextToken"`
	Region     string `json:"region"`
}

func (s *Service) logsConfig() config.LogsConfig {
	if s.ctx.Config == nil {
		return config.DefaultConfig().Logs
	}
	return s.ctx.Config.Logs
}

// query converts the shared log arguments into a runlogs.Query.
func (s *Service) query(category runlogs.Category, args LogArgs) (runlogs.Query, error) {
	cfg := s.logsConfig()
	q := runlogs.Query{
		Category:      category,
		RunID:         strings.TrimSpace(args.RunID),
		Limit:         int32(cfg.DefaultLimit),
		NextToken:     args.NextToken,
		StartFromHead: true,
	}
	if args.Limit > 0 {
		if args.Limit > cfg.MaxLimit {
			return q, mcp.Invalid("limit must be at most %d", cfg.MaxLimit)
		}
		q.Limit = int32(args.Limit)
	}
	if args.StartFromHead != nil {
		q.StartFromHead = *args.StartFromHead
	}
	var err error
	if q.StartTime, err = mcp.ParseTimeArg("startTime", args.StartTime); err != nil {
		return q, err
	}
	if q.EndTime, err = mcp.ParseTimeArg("endTime", args.EndTime); err != nil {
		return q, err
	}
	if q.StartTime != nil && q.EndTime != nil && !q.StartTime.Before(*q.EndTime) {
		return q, mcp.Invalid("startTime must be before endTime")
	}
	return q, nil
}

func (s *Service) fetch(ctx context.Context, op, region string, q runlogs.Query) (mcp.ToolResult, error) {
	client, usedRegion, err := s.logsClient(ctx, region)
	if err != nil {
		return errorResult(err), mcp.Wrap(op, err)
	}
	page, err := runlogs.NewFetcher(client, s.logsConfig().LogGroup).Fetch(ctx, q)
	if err != nil {
		return errorResult(err), mcp.Wrap(op, err)
	}
	data := page.Map()
	data["region"] = usedRegion
	data["runId"] = q.RunID
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{page.LogGroup + ":" + page.Stream}}}, nil
}

func (s *Service) handleGetRunLogs(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args LogArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	q, err := s.query(runlogs.CategoryRun, args)
	if err != nil {
		return errorResult(err), err
	}
	return s.fetch(ctx, "GetRunLogs", args.Region, q)
}

func (s *Service) handleGetRunEngineLogs(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args LogArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	q, err := s.query(runlogs.CategoryEngine, args)
	if err != nil {
		return errorResult(err), err
	}
	return s.fetch(ctx, "GetRunEngineLogs", args.Region, q)
}

func (s *Service) handleGetTaskLogs(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args taskLogArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	q, err := s.query(runlogs.CategoryTask, args.LogArgs)
	if err != nil {
		return errorResult(err), err
	}
	q.TaskID = strings.TrimSpace(args.TaskID)
	result, err := s.fetch(ctx, "GetTaskLogs", args.Region, q)
	if data, ok := result.Data.(map[string]any); ok && err == nil {
		data["taskId"] = q.TaskID
	}
	return result, err
}

func (s *Service) handleGetRunManifestLogs(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args manifestLogArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	q, err := s.query(runlogs.CategoryManifest, args.LogArgs)
	if err != nil {
		return errorResult(err), err
	}
	q.RunUUID = strings.TrimSpace(args.RunUUID)
	if q.RunUUID == "" {
		client, _, err := s.omicsClient(ctx, args.Region)
		if err != nil {
			return errorResult(err), mcp.Wrap("GetRunManifestLogs", err)
		}
		run, err := client.GetRun(ctx, &omics.GetRunInput{Id: aws.String(q.RunID)})
		if err != nil {
			return errorResult(err), mcp.Wrap("GetRunManifestLogs", err)
		}
		q.RunUUID = aws.ToString(run.Uuid)
	}
	result, err := s.fetch(ctx, "GetRunManifestLogs", args.Region, q)
	if data, ok := result.Data.(map[string]any); ok && err == nil {
		data["runUuid"] = q.RunUUID
	}
	return result, err
}

func (s *Service) handleListRunLogStreams(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args listStreamsArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.logsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListRunLogStreams", err)
	}
	fetcher := runlogs.NewFetcher(client, s.logsConfig().LogGroup)
	streams, next, err := fetcher.ListStreams(ctx, args.RunID, int32(args.MaxResults), args.NextToken)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListRunLogStreams", err)
	}
	items := make([]map[string]any, 0, len(streams))
	for _, stream := range streams {
		items = append(items, stream.Map())
	}
	data := map[string]any{
		"region":     usedRegion,
		"runId":      args.RunID,
		"logGroup":   fetcher.LogGroup(),
		"logStreams": items,
	}
	if next != "" {
		data["nextToken"] = next
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion}}, nil
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ToolResult{Data: map[string]any{"error": err.Error()}}
}
