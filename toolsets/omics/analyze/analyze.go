package omicsanalyze

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"

	"healthomics/internal/config"
	"healthomics/internal/healthomics"
	"healthomics/internal/mcp"
	"healthomics/internal/runlogs"
)

const defaultHeadroom = 0.1

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
			Name:        "AnalyzeRun",
			Description: "Analyze run manifests: per-task runtime and CPU/memory utilization with right-sizing recommendations.",
			ToolsetID:   toolsetID,
			InputSchema: schemaAnalyzeRun(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleAnalyzeRun,
		},
	}
}

type analyzeArgs struct {
	RunIDs   []string `json:"runIds" validate:"required,min=1,max=10,dive,required"`
	Headroom *float64 `json:"headroom" validate:"omitempty,min=0,max=1"`
	Region   string   `json:"region"`
}

func (s *Service) configs() (config.LogsConfig, config.AnalysisConfig) {
	if s.ctx.Config == nil {
		cfg := config.DefaultConfig()
		return cfg.Logs, cfg.Analysis
	}
	return s.ctx.Config.Logs, s.ctx.Config.Analysis
}

func (s *Service) handleAnalyzeRun(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args analyzeArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	headroom := defaultHeadroom
	if args.Headroom != nil {
		headroom = *args.Headroom
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("AnalyzeRun", err)
	}
	logsClient, _, err := s.logsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("AnalyzeRun", err)
	}
	logsCfg, analysisCfg := s.configs()
	fetcher := runlogs.NewFetcher(logsClient, logsCfg.LogGroup)

	runs := make([]map[string]any, 0, len(args.RunIDs))
	resources := make([]string, 0, len(args.RunIDs))
	var recommendations []string
	for _, id := range args.RunIDs {
		id = strings.TrimSpace(id)
		run, err := client.GetRun(ctx, &omics.GetRunInput{Id: aws.String(id)})
		if err != nil {
			return errorResult(err), mcp.Wrap("AnalyzeRun", err)
		}
		page, err := fetcher.FetchAll(ctx, runlogs.Query{
			Category:      runlogs.CategoryManifest,
			RunID:         id,
			RunUUID:       aws.ToString(run.Uuid),
			Limit:         int32(min(analysisCfg.MaxManifestEvents, config.MaxLogLimit)),
			StartFromHead: true,
		}, analysisCfg.MaxManifestEvents)
		if err != nil {
			return errorResult(err), mcp.Wrap("AnalyzeRun", err)
		}
		resources = append(resources, "omics:run/"+id)

		entry := map[string]any{
			"runId":   id,
			"runName": aws.ToString(run.Name),
			"runUuid": aws.ToString(run.Uuid),
			"status":  string(run.Status),
		}
		if page.Missing {
			entry["manifestAvailable"] = false
			entry["message"] = "No manifest log found; manifests are written when a run reaches a terminal state."
			entry["tasks"] = []map[string]any{}
			runs = append(runs, entry)
			continue
		}
		lines := make([]string, 0, len(page.Events))
		for _, event := range page.Events {
			lines = append(lines, event.Message)
		}
		parsed := parseManifest(lines)
		groups := summarize(parsed.tasks, headroom)
		tasks := make([]map[string]any, 0, len(groups))
		for _, group := range groups {
			tasks = append(tasks, group.Map())
			recommendations = append(recommendations, recommend(id, group)...)
		}
		entry["manifestAvailable"] = true
		entry["logStream"] = page.Stream
		entry["eventCount"] = len(page.Events)
		entry["unparsedLines"] = parsed.unparsed
		entry["truncated"] = page.NextToken != ""
		entry["taskCount"] = len(parsed.tasks)
		entry["workflow"] = parsed.workflow
		entry["storageType"] = parsed.storageType
		entry["runningSeconds"] = round(parsed.runningSeconds)
		entry["tasks"] = tasks
		runs = append(runs, entry)
	}
	if recommendations == nil {
		recommendations = []string{}
	}
	data := map[string]any{
		"region":          usedRegion,
		"headroom":        headroom,
		"runs":            runs,
		"recommendations": recommendations,
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: resources}}, nil
}

func recommend(runID string, g taskGroup) []string {
	var out []string
	switch {
	case g.OverProvisioned:
		out = append(out, fmt.Sprintf("run %s task %s is over-provisioned (peak utilization %.0f%%): request %d CPUs and %.2f GiB memory",
			runID, g.Name, 100*max(g.MaxCpuUtilization, g.MaxMemUtilization), g.RecommendedCpus, round(g.RecommendedMemoryGiB)))
	case g.UnderProvisioned:
		out = append(out, fmt.Sprintf("run %s task %s is near its limits (peak utilization %.0f%%): request at least %d CPUs and %.2f GiB memory",
			runID, g.Name, 100*max(g.MaxCpuUtilization, g.MaxMemUtilization), g.RecommendedCpus, round(g.RecommendedMemoryGiB)))
	}
	return out
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ToolResult{Data: map[string]any{"error": err.Error()}}
}
