package omicsruns

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	"github.com/aws/aws-sdk-go-v2/service/omics/document"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"
	"github.com/google/uuid"

	"healthomics/internal/healthomics"
	"healthomics/internal/mcp"
)

const defaultPageSize = 10

type Service struct {
	ctx         mcp.ToolsetContext
	omicsClient healthomics.OmicsClientFunc
	toolsetID   string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, omicsClient healthomics.OmicsClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, omicsClient: omicsClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "StartRun",
			Description: "Start a HealthOmics workflow run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaStartRun(),
			Safety:      mcp.SafetyWrite,
			Handler:     svc.handleStartRun,
		},
		{
			Name:        "ListRuns",
			Description: "List workflow runs, optionally filtered by status, name and creation time.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListRuns(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListRuns,
		},
		{
			Name:        "GetRun",
			Description: "Get details of a workflow run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetRun(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetRun,
		},
		{
			Name:        "ListRunTasks",
			Description: "List the tasks of a workflow run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListRunTasks(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListRunTasks,
		},
		{
			Name:        "GetRunTask",
			Description: "Get details of one task in a workflow run.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetRunTask(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetRunTask,
		},
	}
}

type startRunArgs struct {
	WorkflowID          string            `json:"workflowId" validate:"required"`
	RoleArn             string            `json:"roleArn" validate:"required,startswith=arn:"`
	Name                string            `json:"name" validate:"required"`
	OutputURI           string            `json:"outputUri" validate:"required,startswith=s3://"`
	Parameters          map[string]any    `json:"parameters"`
	WorkflowType        string            `json:"workflowType" validate:"omitempty,oneof=PRIVATE READY2RUN"`
	WorkflowVersionName string            `json:"workflowVersionName"`
	StorageType         string            `json:"storageType" validate:"omitempty,oneof=STATIC DYNAMIC"`
	StorageCapacity     *int              `json:"storageCapacity" validate:"omitempty,max=2147483647"`
	CacheID             string            `json:"cacheId"`
	CacheBehavior       string            `json:"cacheBehavior" validate:"omitempty,oneof=CACHE_ALWAYS CACHE_ON_FAILURE"`
	RunGroupID          string            `json:"runGroupId"`
	Priority            *int              `json:"priority" validate:"omitempty,min=0,max=2147483647"`
	LogLevel            string            `json:"logLevel" validate:"omitempty,oneof=OFF FATAL ERROR ALL"`
	RequestID           string            `json:"requestId"`
	Tags                map[string]string `json:"tags"`
	Region              string            `json:"region"`
}

type listRunsArgs struct {
	mcp.Page
	Status        string `json:"status" validate:"omitempty,oneof=PENDING STARTING RUNNING STOPPING COMPLETED DELETED CANCELLED FAILED"`
	Name          string `json:"name"`
	RunGroupID    string `json:"runGroupId"`
	CreatedAfter  string `json:"createdAfter"`
	CreatedBefore string `json:"createdBefore"`
	Region        string `json:"region"`
}

type getRunArgs struct {
	RunID  string `json:"runId" validate:"required"`
	Region string `json:"region"`
}

type listRunTasksArgs struct {
	mcp.Page
	RunID  string `json:"runId" validate:"required"`
	Status string `json:"status" validate:"omitempty,oneof=PENDING STARTING RUNNING STOPPING COMPLETED CANCELLED FAILED"`
	Region string `json:"region"`
}

type getRunTaskArgs struct {
	RunID  string `json:"runId" validate:"required"`
	TaskID string `json:"taskId" validate:"required"`
	Region string `json:"region"`
}

// buildStartRunInput applies the storage and cache rules and normalizes the
// output URI.
func buildStartRunInput(args startRunArgs) (*omics.StartRunInput, error) {
	outputURI, err := healthomics.NormalizeOutputURI(args.OutputURI)
	if err != nil {
		return nil, mcp.Invalid("outputUri: %v", err)
	}
	storageType := omicstypes.StorageType(args.StorageType)
	if storageType == "" {
		storageType = omicstypes.StorageTypeDynamic
	}
	input := &omics.StartRunInput{
		WorkflowId:  aws.String(args.WorkflowID),
		RoleArn:     aws.String(args.RoleArn),
		Name:        aws.String(args.Name),
		OutputUri:   aws.String(outputURI),
		StorageType: storageType,
		RequestId:   aws.String(args.RequestID),
		Tags:        args.Tags,
	}
	switch storageType {
	case omicstypes.StorageTypeStatic:
		if args.StorageCapacity == nil || *args.StorageCapacity <= 0 {
			return nil, mcp.Invalid("storageCapacity is required and must be positive for STATIC storage")
		}
		input.StorageCapacity = aws.Int32(int32(*args.StorageCapacity))
	default:
		if args.StorageCapacity != nil {
			return nil, mcp.Invalid("storageCapacity is only valid with STATIC storage")
		}
	}
	if args.CacheBehavior != "" && strings.TrimSpace(args.CacheID) == "" {
		return nil, mcp.Invalid("cacheBehavior requires cacheId")
	}
	if args.CacheID != "" {
		input.CacheId = aws.String(args.CacheID)
		input.CacheBehavior = omicstypes.CacheBehavior(args.CacheBehavior)
	}
	if strings.TrimSpace(args.RequestID) == "" {
		input.RequestId = aws.String(uuid.NewString())
	}
	if args.WorkflowType != "" {
		input.WorkflowType = omicstypes.WorkflowType(args.WorkflowType)
	}
	if args.WorkflowVersionName != "" {
		input.WorkflowVersionName = aws.String(args.WorkflowVersionName)
	}
	if args.RunGroupID != "" {
		input.RunGroupId = aws.String(args.RunGroupID)
	}
	if args.Priority != nil {
		input.Priority = aws.Int32(int32(*args.Priority))
	}
	if args.LogLevel != "" {
		input.LogLevel = omicstypes.RunLogLevel(args.LogLevel)
	}
	if args.Parameters != nil {
		input.Parameters = document.NewLazyDocument(args.Parameters)
	}
	return input, nil
}

func (s *Service) handleStartRun(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args startRunArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	input, err := buildStartRunInput(args)
	if err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("StartRun", err)
	}
	out, err := client.StartRun(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("StartRun", err)
	}
	data := map[string]any{
		"region":              usedRegion,
		"id":                  aws.ToString(out.Id),
		"arn":                 aws.ToString(out.Arn),
		"uuid":                aws.ToString(out.Uuid),
		"status":              string(out.Status),
		"name":                args.Name,
		"workflowId":          args.WorkflowID,
		"workflowVersionName": args.WorkflowVersionName,
		"outputUri":           aws.ToString(input.OutputUri),
		"storageType":         string(input.StorageType),
		"requestId":           aws.ToString(input.RequestId),
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{aws.ToString(out.Arn)}}}, nil
}

func (s *Service) handleListRuns(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args listRunsArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	after, err := mcp.ParseTimeArg("createdAfter", args.CreatedAfter)
	if err != nil {
		return errorResult(err), err
	}
	before, err := mcp.ParseTimeArg("createdBefore", args.CreatedBefore)
	if err != nil {
		return errorResult(err), err
	}
	if after != nil && before != nil && after.After(*before) {
		err := mcp.Invalid("createdAfter must not be later than createdBefore")
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListRuns", err)
	}
	input := &omics.ListRunsInput{
		MaxResults: aws.Int32(args.Limit(defaultPageSize)),
		Status:     omicstypes.RunStatus(args.Status),
	}
	if args.NextToken != "" {
		input.StartingToken = aws.String(args.NextToken)
	}
	if args.Name != "" {
		input.Name = aws.String(args.Name)
	}
	if args.RunGroupID != "" {
		input.RunGroupId = aws.String(args.RunGroupID)
	}
	out, err := client.ListRuns(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListRuns", err)
	}
	runs := make([]map[string]any, 0, len(out.Items))
	for _, item := range out.Items {
		if !createdWithin(item.CreationTime, after, before) {
			continue
		}
		runs = append(runs, summarizeRunItem(item))
	}
	data := map[string]any{"region": usedRegion, "runs": runs}
	if token := aws.ToString(out.NextToken); token != "" {
		data["nextToken"] = token
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion}}, nil
}

// createdWithin filters on creation time, which ListRuns cannot do server-side.
func createdWithin(created *time.Time, after, before *time.Time) bool {
	if after == nil && before == nil {
		return true
	}
	if created == nil {
		return false
	}
	if after != nil && created.Before(*after) {
		return false
	}
	if before != nil && created.After(*before) {
		return false
	}
	return true
}

func (s *Service) handleGetRun(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args getRunArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("GetRun", err)
	}
	out, err := client.GetRun(ctx, &omics.GetRunInput{Id: aws.String(args.RunID)})
	if err != nil {
		return errorResult(err), mcp.Wrap("GetRun", err)
	}
	data := SummarizeRun(out)
	data["region"] = usedRegion
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion, Resources: []string{aws.ToString(out.Arn)}}}, nil
}

func (s *Service) handleListRunTasks(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args listRunTasksArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListRunTasks", err)
	}
	input := &omics.ListRunTasksInput{
		Id:         aws.String(args.RunID),
		MaxResults: aws.Int32(args.Limit(defaultPageSize)),
		Status:     omicstypes.TaskStatus(args.Status),
	}
	if args.NextToken != "" {
		input.StartingToken = aws.String(args.NextToken)
	}
	out, err := client.ListRunTasks(ctx, input)
	if err != nil {
		return errorResult(err), mcp.Wrap("ListRunTasks", err)
	}
	tasks := make([]map[string]any, 0, len(out.Items))
	for _, item := range out.Items {
		tasks = append(tasks, summarizeTaskItem(item))
	}
	data := map[string]any{"region": usedRegion, "runId": args.RunID, "tasks": tasks}
	if token := aws.ToString(out.NextToken); token != "" {
		data["nextToken"] = token
	}
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion}}, nil
}

func (s *Service) handleGetRunTask(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args getRunTaskArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	client, usedRegion, err := s.omicsClient(ctx, args.Region)
	if err != nil {
		return errorResult(err), mcp.Wrap("GetRunTask", err)
	}
	out, err := client.GetRunTask(ctx, &omics.GetRunTaskInput{Id: aws.String(args.RunID), TaskId: aws.String(args.TaskID)})
	if err != nil {
		return errorResult(err), mcp.Wrap("GetRunTask", err)
	}
	data := SummarizeTask(out)
	data["region"] = usedRegion
	data["runId"] = args.RunID
	return mcp.ToolResult{Data: data, Metadata: mcp.ToolMetadata{Region: usedRegion}}, nil
}

// SummarizeRun flattens GetRun output. Empty optional fields are omitted.
func SummarizeRun(out *omics.GetRunOutput) map[string]any {
	data := map[string]any{
		"id":           aws.ToString(out.Id),
		"arn":          aws.ToString(out.Arn),
		"uuid":         aws.ToString(out.Uuid),
		"name":         aws.ToString(out.Name),
		"status":       string(out.Status),
		"workflowId":   aws.ToString(out.WorkflowId),
		"workflowType": string(out.WorkflowType),
		"roleArn":      aws.ToString(out.RoleArn),
		"outputUri":    aws.ToString(out.OutputUri),
		"storageType":  string(out.StorageType),
		"creationTime": healthomics.FormatTime(out.CreationTime),
	}
	optional := map[string]string{
		"workflowVersionName": aws.ToString(out.WorkflowVersionName),
		"statusMessage":       aws.ToString(out.StatusMessage),
		"failureReason":       aws.ToString(out.FailureReason),
		"runGroupId":          aws.ToString(out.RunGroupId),
		"logLevel":            string(out.LogLevel),
		"startTime":           healthomics.FormatTime(out.StartTime),
		"stopTime":            healthomics.FormatTime(out.StopTime),
	}
	for key, value := range optional {
		if value != "" {
			data[key] = value
		}
	}
	if out.StorageCapacity != nil {
		data["storageCapacity"] = aws.ToInt32(out.StorageCapacity)
	}
	if out.Priority != nil {
		data["priority"] = aws.ToInt32(out.Priority)
	}
	return data
}

func SummarizeTask(out *omics.GetRunTaskOutput) map[string]any {
	data := map[string]any{
		"taskId":       aws.ToString(out.TaskId),
		"name":         aws.ToString(out.Name),
		"status":       string(out.Status),
		"cpus":         aws.ToInt32(out.Cpus),
		"memory":       aws.ToInt32(out.Memory),
		"gpus":         aws.ToInt32(out.Gpus),
		"instanceType": aws.ToString(out.InstanceType),
		"logStream":    aws.ToString(out.LogStream),
		"creationTime": healthomics.FormatTime(out.CreationTime),
	}
	optional := map[string]string{
		"statusMessage": aws.ToString(out.StatusMessage),
		"failureReason": aws.ToString(out.FailureReason),
		"startTime":     healthomics.FormatTime(out.StartTime),
		"stopTime":      healthomics.FormatTime(out.StopTime),
	}
	for key, value := range optional {
		if value != "" {
			data[key] = value
		}
	}
	return data
}

func summarizeRunItem(item omicstypes.RunListItem) map[string]any {
	data := map[string]any{
		"id":           aws.ToString(item.Id),
		"arn":          aws.ToString(item.Arn),
		"name":         aws.ToString(item.Name),
		"status":       string(item.Status),
		"workflowId":   aws.ToString(item.WorkflowId),
		"creationTime": healthomics.FormatTime(item.CreationTime),
	}
	if item.StartTime != nil {
		data["startTime"] = healthomics.FormatTime(item.StartTime)
	}
	if item.StopTime != nil {
		data["stopTime"] = healthomics.FormatTime(item.StopTime)
	}
	return data
}

func summarizeTaskItem(item omicstypes.TaskListItem) map[string]any {
	data := map[string]any{
		"taskId":       aws.ToString(item.TaskId),
		"name":         aws.ToString(item.Name),
		"status":       string(item.Status),
		"cpus":         aws.ToInt32(item.Cpus),
		"memory":       aws.ToInt32(item.Memory),
		"instanceType": aws.ToString(item.InstanceType),
		"creationTime": healthomics.FormatTime(item.CreationTime),
	}
	if item.StartTime != nil {
		data["startTime"] = healthomics.FormatTime(item.StartTime)
	}
	if item.StopTime != nil {
		data["stopTime"] = healthomics.FormatTime(item.StopTime)
	}
	return data
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ToolResult{Data: map[string]any{"error": err.Error()}}
}
