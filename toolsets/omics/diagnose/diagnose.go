package omicsdiagnose

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"
	"golang.org/x/sync/errgroup"

	"healthomics/internal/config"
	"healthomics/internal/healthomics"
	"healthomics/internal/iampolicy"
	"healthomics/internal/logging"
	"healthomics/internal/mcp"
	"healthomics/internal/render"
	"healthomics/internal/runlogs"
)

const (
	omicsPrincipal    = "omics.amazonaws.com"
	maxErrorLines     = 10
	causesInAnalysis  = 3
	listTasksPageSize = 100
)

// IAMClientFunc returns an IAM client; the region only selects the cache entry.
type IAMClientFunc func(ctx context.Context, region string) (*iam.Client, string, error)

type Service struct {
	ctx         mcp.ToolsetContext
	omicsClient healthomics.OmicsClientFunc
	logsClient  healthomics.LogsClientFunc
	iamClient   IAMClientFunc
	toolsetID   string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, omicsClient healthomics.OmicsClientFunc, logsClient healthomics.LogsClientFunc, iamClient IAMClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, omicsClient: omicsClient, logsClient: logsClient, iamClient: iamClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "DiagnoseRunFailure",
			Description: "Diagnose a failed workflow run: failed tasks ranked by likely cause, engine/manifest/run logs, run role trust check and remediation hints.",
			ToolsetID:   toolsetID,
			InputSchema: schemaDiagnoseRunFailure(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleDiagnoseRunFailure,
		},
	}
}

var recommendations = []string{
	"Check IAM role permissions for S3 access and CloudWatch Logs",
	"Verify container images are accessible from the HealthOmics service",
	"Ensure input files exist and are accessible by the run's IAM role",
	"Check for syntax errors in workflow definition",
	"Verify parameter values match the expected types and formats",
	"Review manifest logs for resource allocation and utilization issues",
	"Check task logs for application-specific error messages",
	"Verify that output S3 locations are writable by the run's IAM role",
	"Consider increasing resource allocations if tasks failed due to memory/CPU limits",
	"Check for network connectivity issues if tasks failed during data transfer",
}

// Run-level streams read for every diagnosis, in output order.
var runCategories = []runlogs.Category{runlogs.CategoryEngine, runlogs.CategoryManifest, runlogs.CategoryRun}

type diagnoseArgs struct {
	RunID          string `json:"runId" validate:"required"`
	MaxFailedTasks int    `json:"maxFailedTasks" validate:"omitempty,min=1,max=100"`
	LogLimit       int    `json:"logLimit" validate:"omitempty,min=1,max=1000"`
	Region         string `json:"region"`
}

// source is the outcome of reading one log stream. Read errors are kept
// here instead of failing the diagnosis.
type source struct {
	page runlogs.Page
	err  error
}

func (s source) status() string {
	switch {
	case s.err != nil:
		return "error"
	case s.page.Missing:
		return "missing"
	default:
		return "available"
	}
}

func (s source) messages() []string {
	out := make([]string, 0, len(s.page.Events))
	for _, event := range s.page.Events {
		out = append(out, event.Message)
	}
	return out
}

func (s source) Map() map[string]any {
	events := make([]map[string]any, 0, len(s.page.Events))
	for _, event := range s.page.Events {
		events = append(events, event.Map())
	}
	out := map[string]any{
		"status":     s.status(),
		"logStream":  s.page.Stream,
		"eventCount": len(events),
		"events":     events,
	}
	if s.err != nil {
		out["error"] = s.err.Error()
	}
	return out
}

type candidate struct {
	taskID        string
	name          string
	status        string
	statusMessage string
	failureReason string
	instanceType  string
	cpus          int32
	memory        int32
	startTime     *time.Time
	stopTime      *time.Time
	detailErr     error
	taskLogs      source
	engineLogs    source
	exitLine      string
	hints         []Hint
	errors        []string
}

func (c *candidate) failed() bool {
	return c.status == string(omicstypes.TaskStatusFailed)
}

func (c *candidate) Map(rank int) map[string]any {
	out := map[string]any{
		"rank":               rank,
		"taskId":             c.taskID,
		"name":               c.name,
		"status":             c.status,
		"cpus":               c.cpus,
		"memory":             c.memory,
		"hints":              hintMaps(c.hints),
		"unrecognizedErrors": c.errors,
		"taskLogs":           c.taskLogs.Map(),
		"engineLogs":         c.engineLogs.Map(),
	}
	optional := map[string]string{
		"statusMessage": c.statusMessage,
		"failureReason": c.failureReason,
		"instanceType":  c.instanceType,
		"startTime":     healthomics.FormatTime(c.startTime),
		"stopTime":      healthomics.FormatTime(c.stopTime),
		"exitIndicator": c.exitLine,
	}
	for key, value := range optional {
		if value != "" {
			out[key] = value
		}
	}
	if c.detailErr != nil {
		out["detailError"] = c.detailErr.Error()
	}
	return out
}

// rankCandidates orders failed tasks by terminal failure status, then a
// non-zero exit in the engine log, then the most recent stop time.
func rankCandidates(cands []*candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.failed() != b.failed() {
			return a.failed()
		}
		if (a.exitLine != "") != (b.exitLine != "") {
			return a.exitLine != ""
		}
		switch {
		case a.stopTime != nil && b.stopTime != nil && !a.stopTime.Equal(*b.stopTime):
			return a.stopTime.After(*b.stopTime)
		case a.stopTime != nil && b.stopTime == nil:
			return true
		case a.stopTime == nil && b.stopTime != nil:
			return false
		}
		return a.taskID < b.taskID
	})
}

func (s *Service) diagnosisConfig() config.DiagnosisConfig {
	cfg := config.DefaultConfig().Diagnosis
	if s.ctx.Config != nil {
		cfg = s.ctx.Config.Diagnosis
	}
	return cfg
}

func (s *Service) logGroup() string {
	if s.ctx.Config == nil {
		return config.DefaultLogGroup
	}
	return s.ctx.Config.Logs.LogGroup
}

func (s *Service) logger() logging.Logger {
	if s.ctx.Logger == nil {
		return logging.Discard()
	}
	return s.ctx.Logger
}

func (s *Service) renderer() render.Renderer {
	if s.ctx.Renderer == nil {
		return render.NewRenderer(s.ctx.Redactor)
	}
	return s.ctx.Renderer
}

func (s *Service) handleDiagnoseRunFailure(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args diagnoseArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	cfg := s.diagnosisConfig()
	maxTasks := cfg.MaxFailedTasks
	if args.MaxFailedTasks > 0 {
		maxTasks = args.MaxFailedTasks
	}
	logLimit := int32(cfg.LogLimit)
	if args.LogLimit > 0 {
		logLimit = int32(args.LogLimit)
	}
	runID := strings.TrimSpace(args.RunID)

	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("DiagnoseRunFailure", err)
	}
	run, err := client.GetRun(ctx, &omics.GetRunInput{Id: aws.String(runID)})
	if err != nil {
		return errorResult(err), mcp.Wrap("DiagnoseRunFailure", err)
	}
	meta := mcp.ToolMetadata{Region: usedRegion, Resources: []string{"omics:run/" + runID}}
	if run.Status != omicstypes.RunStatusFailed {
		return mcp.ToolResult{Data: map[string]any{
			"runId":          runID,
			"region":         usedRegion,
			"status":         string(run.Status),
			"classification": "run_not_failed",
			"candidates":     []map[string]any{},
			"message":        fmt.Sprintf("Run is not in FAILED state. Current status: %s", run.Status),
		}, Metadata: meta}, nil
	}

	logsClient, _, err := s.logsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("DiagnoseRunFailure", err)
	}
	fetcher := runlogs.NewFetcher(logsClient, s.logGroup())
	tasks, truncated, err := listFailedTasks(ctx, client, runID, maxTasks)
	if err != nil {
		return errorResult(err), mcp.Wrap("DiagnoseRunFailure", err)
	}
	runUUID := aws.ToString(run.Uuid)
	s.logger().Debug("diagnosing run", "runId", runID, "runUuid", runUUID, "failedTasks", len(tasks))

	sources := make([]source, len(runCategories))
	cands := make([]*candidate, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))
	for i, category := range runCategories {
		g.Go(func() error {
			sources[i] = readSource(gctx, fetcher, runlogs.Query{
				Category: category,
				RunID:    runID,
				RunUUID:  runUUID,
				Limit:    logLimit,
			})
			return ctx.Err()
		})
	}
	for i, item := range tasks {
		g.Go(func() error {
			cands[i] = inspectTask(gctx, client, fetcher, runID, item, logLimit)
			return ctx.Err()
		})
	}
	// Per-source failures are kept in the report; only cancellation aborts.
	if err := g.Wait(); err != nil {
		return errorResult(err), mcp.Wrap("DiagnoseRunFailure", err)
	}
	rankCandidates(cands)

	categories := map[string]any{}
	unavailable := []string{}
	var runLines []string
	for i, category := range runCategories {
		categories[string(category)] = sources[i].Map()
		if sources[i].status() != "available" {
			unavailable = append(unavailable, string(category))
		}
		if category != runlogs.CategoryManifest {
			runLines = append(runLines, sources[i].messages()...)
		}
	}
	failureReason := aws.ToString(run.FailureReason)
	statusMessage := aws.ToString(run.StatusMessage)
	runLines = append([]string{failureReason, statusMessage}, runLines...)
	runHints := matchHints(runLines)

	classification := "task_failure"
	if len(cands) == 0 {
		classification = "run_failure"
	}
	roleCheck := s.checkRole(ctx, args.Region, aws.ToString(run.RoleArn))

	analysis := render.NewAnalysis()
	analysis.AddResource("omics:run/" + runID)
	if failureReason != "" {
		analysis.AddEvidence("failureReason", failureReason)
	}
	candidateMaps := make([]map[string]any, 0, len(cands))
	for i, cand := range cands {
		candidateMaps = append(candidateMaps, cand.Map(i+1))
		for _, src := range []source{cand.taskLogs, cand.engineLogs} {
			if src.status() == "available" {
				analysis.AddResource(fmt.Sprintf("logs:%s:%s", src.page.LogGroup, src.page.Stream))
			}
		}
		if i >= causesInAnalysis {
			continue
		}
		severity := "medium"
		if i == 0 {
			severity = "high"
		}
		summary := fmt.Sprintf("Task %s (%s) failed", cand.name, cand.taskID)
		if len(cand.hints) > 0 {
			summary += ": " + cand.hints[0].Summary
		}
		analysis.AddCause(summary, firstNonEmpty(cand.failureReason, cand.statusMessage, cand.exitLine), severity)
		if cand.exitLine != "" {
			analysis.AddEvidence(fmt.Sprintf("task %s exit", cand.taskID), cand.exitLine)
		}
		for _, hint := range cand.hints {
			analysis.AddEvidence(fmt.Sprintf("task %s %s", cand.taskID, hint.ID), hint.Line)
			analysis.AddNextCheck(hint.Remediation)
		}
		if len(cand.errors) > 0 {
			analysis.AddEvidence(fmt.Sprintf("task %s errors", cand.taskID), cand.errors)
		}
	}
	if classification == "run_failure" {
		if len(runHints) == 0 {
			analysis.AddCause("Run failed before any task failed", failureReason, "high")
		}
		for _, hint := range runHints {
			analysis.AddCause(hint.Summary, hint.Line, "high")
			analysis.AddNextCheck(hint.Remediation)
		}
		analysis.AddNextCheck("Check the workflow definition and parameters against the engine log")
	}
	for i, category := range runCategories {
		src := sources[i]
		switch src.status() {
		case "available":
			analysis.AddResource(fmt.Sprintf("logs:%s:%s", src.page.LogGroup, src.page.Stream))
		case "missing":
			analysis.AddNextCheck(fmt.Sprintf("The %s log stream %s does not exist yet", category, src.page.Stream))
		case "error":
			analysis.AddNextCheck(fmt.Sprintf("Check CloudWatch Logs access for the %s log stream", category))
		}
	}
	if roleCheck["status"] == "untrusted" {
		analysis.AddCause("Run role does not trust "+omicsPrincipal, aws.ToString(run.RoleArn), "high")
		analysis.AddNextCheck("Add " + omicsPrincipal + " to the run role's trust policy")
	}
	if name, ok := roleCheck["roleName"].(string); ok && name != "" {
		analysis.AddResource("iam:role/" + name)
	}
	if len(cands) > 0 {
		analysis.AddNextCheck("Review the top-ranked task's logs with GetTaskLogs")
	}

	if failureReason == "" {
		failureReason = "No failure reason provided"
	}
	data := map[string]any{
		"runId":                 runID,
		"runUuid":               runUUID,
		"runName":               aws.ToString(run.Name),
		"region":                usedRegion,
		"status":                string(run.Status),
		"classification":        classification,
		"failureReason":         failureReason,
		"statusMessage":         statusMessage,
		"workflowId":            aws.ToString(run.WorkflowId),
		"workflowType":          string(run.WorkflowType),
		"creationTime":          healthomics.FormatTime(run.CreationTime),
		"startTime":             healthomics.FormatTime(run.StartTime),
		"stopTime":              healthomics.FormatTime(run.StopTime),
		"categories":            categories,
		"unavailableCategories": unavailable,
		"candidates":            candidateMaps,
		"failedTaskCount":       len(cands),
		"failedTasksTruncated":  truncated,
		"runHints":              hintMaps(runHints),
		"unrecognizedErrors":    unmatchedErrors(runLines, maxErrorLines),
		"roleCheck":             roleCheck,
		"recommendations":       recommendations,
		"analysis":              s.renderer().Render(analysis),
	}
	return mcp.ToolResult{Data: data, Metadata: meta}, nil
}

func listFailedTasks(ctx context.Context, client healthomics.OmicsAPI, runID string, limit int) ([]omicstypes.TaskListItem, bool, error) {
	var items []omicstypes.TaskListItem
	var token *string
	for {
		out, err := client.ListRunTasks(ctx, &omics.ListRunTasksInput{
			Id:            aws.String(runID),
			Status:        omicstypes.TaskStatusFailed,
			MaxResults:    aws.Int32(listTasksPageSize),
			StartingToken: token,
		})
		if err != nil {
			return nil, false, err
		}
		items = append(items, out.Items...)
		if len(items) >= limit {
			return items[:limit], len(items) > limit || aws.ToString(out.NextToken) != "", nil
		}
		if aws.ToString(out.NextToken) == "" {
			return items, false, nil
		}
		token = out.NextToken
	}
}

func readSource(ctx context.Context, fetcher *runlogs.Fetcher, q runlogs.Query) source {
	// Newest events carry the failure.
	q.StartFromHead = false
	page, err := fetcher.Fetch(ctx, q)
	if err != nil {
		return source{page: page, err: err}
	}
	return source{page: page}
}

// inspectTask gathers one failed task's details, its own log and the engine
// log for the task's execution window.
func inspectTask(ctx context.Context, client healthomics.OmicsAPI, fetcher *runlogs.Fetcher, runID string, item omicstypes.TaskListItem, limit int32) *candidate {
	cand := &candidate{
		taskID:       aws.ToString(item.TaskId),
		name:         aws.ToString(item.Name),
		status:       string(item.Status),
		instanceType: aws.ToString(item.InstanceType),
		cpus:         aws.ToInt32(item.Cpus),
		memory:       aws.ToInt32(item.Memory),
		startTime:    item.StartTime,
		stopTime:     item.StopTime,
	}
	detail, err := client.GetRunTask(ctx, &omics.GetRunTaskInput{Id: aws.String(runID), TaskId: item.TaskId})
	if err != nil {
		cand.detailErr = err
	} else {
		cand.status = string(detail.Status)
		cand.statusMessage = aws.ToString(detail.StatusMessage)
		cand.failureReason = aws.ToString(detail.FailureReason)
		if detail.StartTime != nil {
			cand.startTime = detail.StartTime
		}
		if detail.StopTime != nil {
			cand.stopTime = detail.StopTime
		}
	}

	cand.taskLogs = readSource(ctx, fetcher, runlogs.Query{
		Category: runlogs.CategoryTask,
		RunID:    runID,
		TaskID:   cand.taskID,
		Limit:    limit,
	})
	engine := runlogs.Query{Category: runlogs.CategoryEngine, RunID: runID, Limit: limit, StartTime: cand.startTime}
	if cand.stopTime != nil {
		// EndTime is exclusive.
		end := cand.stopTime.Add(time.Second)
		engine.EndTime = &end
	}
	cand.engineLogs = readSource(ctx, fetcher, engine)

	engineLines := cand.engineLogs.messages()
	cand.exitLine = findExitIndicator(engineLines)
	lines := append([]string{cand.failureReason, cand.statusMessage}, cand.taskLogs.messages()...)
	lines = append(lines, engineLines...)
	cand.hints = matchHints(lines)
	cand.errors = unmatchedErrors(lines, maxErrorLines)
	return cand
}

// checkRole verifies the run role trusts the HealthOmics service principal.
func (s *Service) checkRole(ctx context.Context, region, roleArn string) map[string]any {
	out := map[string]any{"roleArn": roleArn}
	skip := func(reason string) map[string]any {
		out["status"] = "skipped"
		out["reason"] = reason
		return out
	}
	fail := func(err error) map[string]any {
		out["status"] = "error"
		out["error"] = err.Error()
		return out
	}
	switch {
	case s.diagnosisConfig().SkipRoleCheck:
		return skip("disabled by diagnosis.skip_role_check")
	case roleArn == "":
		return skip("run has no role ARN")
	case s.iamClient == nil:
		return skip("IAM client unavailable")
	}
	name, err := roleName(roleArn)
	if err != nil {
		return fail(err)
	}
	out["roleName"] = name
	client, _, err := s.iamClient(ctx, region)
	if err != nil {
		return fail(err)
	}
	role, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return fail(mcp.Wrap("GetRole", err))
	}
	if role.Role == nil {
		return fail(fmt.Errorf("role %s not returned", name))
	}
	doc, err := iampolicy.Parse(aws.ToString(role.Role.AssumeRolePolicyDocument))
	if err != nil {
		return fail(fmt.Errorf("trust policy: %w", err))
	}
	trusted := doc.Grants("Service", omicsPrincipal, "sts:AssumeRole")
	out["trustsHealthOmics"] = trusted
	if trusted {
		out["status"] = "ok"
	} else {
		out["status"] = "untrusted"
	}
	return out
}

func roleName(roleArn string) (string, error) {
	idx := strings.Index(roleArn, ":role/")
	if idx < 0 {
		return "", fmt.Errorf("%s is not an IAM role ARN", roleArn)
	}
	path := roleArn[idx+len(":role/"):]
	name := path[strings.LastIndex(path, "/")+1:]
	if name == "" {
		return "", fmt.Errorf("%s is not an IAM role ARN", roleArn)
	}
	return name, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ToolResult{Data: map[string]any{"error": err.Error()}}
}
