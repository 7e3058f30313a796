package omicsruns

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"

	"healthomics/internal/healthomics"
	"healthomics/internal/healthomics/omicstest"
	"healthomics/internal/mcp"
	"healthomics/internal/redact"
)

func newService(fake *omicstest.Omics) *Service {
	return &Service{
		ctx: mcp.ToolsetContext{Redactor: redact.New()},
		omicsClient: func(context.Context, string) (healthomics.OmicsAPI, string, error) {
			return fake, "us-west-2", nil
		},
	}
}

func validStartArgs() map[string]any {
	return map[string]any{
		"workflowId": "1234567",
		"roleArn":    "arn:aws:iam::123456789012:role/OmicsRun",
		"name":       "sample-run",
		"outputUri":  "s3://results/runs",
		"parameters": map[string]any{"sample": "NA12878"},
	}
}

func withArgs(overrides map[string]any) map[string]any {
	args := validStartArgs()
	for k, v := range overrides {
		args[k] = v
	}
	return args
}

func TestStartRunValidation(t *testing.T) {
	fake := omicstest.NewOmics()
	svc := newService(fake)
	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{"missingRole", map[string]any{"workflowId": "1", "name": "r", "outputUri": "s3://b/"}, "roleArn is required"},
		{"badOutput", withArgs(map[string]any{"outputUri": "/tmp/out"}), "outputUri must start with"},
		{"staticWithoutCapacity", withArgs(map[string]any{"storageType": "STATIC"}), "required and must be positive"},
		{"staticZeroCapacity", withArgs(map[string]any{"storageType": "STATIC", "storageCapacity": 0}), "required and must be positive"},
		{"dynamicWithCapacity", withArgs(map[string]any{"storageCapacity": 1200}), "only valid with STATIC"},
		{"cacheBehaviorWithoutID", withArgs(map[string]any{"cacheBehavior": "CACHE_ALWAYS"}), "cacheBehavior requires cacheId"},
		{"badCacheBehavior", withArgs(map[string]any{"cacheId": "c", "cacheBehavior": "SOMETIMES"}), "cacheBehavior must be one of"},
		{"badLogLevel", withArgs(map[string]any{"logLevel": "DEBUG"}), "logLevel must be one of"},
		{"capacityOverflow", withArgs(map[string]any{"storageType": "STATIC", "storageCapacity": int64(4294967297)}), "storageCapacity must be at most 2147483647"},
		{"capacityJustOverInt32", withArgs(map[string]any{"storageType": "STATIC", "storageCapacity": int64(2147483648)}), "storageCapacity must be at most 2147483647"},
		{"priorityOverflow", withArgs(map[string]any{"priority": int64(2147483648)}), "priority must be at most 2147483647"},
		{"negativePriority", withArgs(map[string]any{"priority": -1}), "priority must be at least 0"},
		{"badStorageType", withArgs(map[string]any{"storageType": "ELASTIC"}), "storageType must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.handleStartRun(context.Background(), mcp.ToolRequest{Arguments: tt.args})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error %q, got %v", tt.wantErr, err)
			}
		})
	}
	if len(fake.Calls) != 0 {
		t.Fatalf("validation errors must not reach AWS, got %v", fake.Calls)
	}
}

func TestStartRunBuildsInput(t *testing.T) {
	fake := omicstest.NewOmics()
	var got *omics.StartRunInput
	fake.StartRunFn = func(in *omics.StartRunInput) (*omics.StartRunOutput, error) {
		got = in
		return &omics.StartRunOutput{Id: aws.String("7654321"), Arn: aws.String("arn:aws:omics:us-west-2:123456789012:run/7654321"), Status: omicstypes.RunStatusPending}, nil
	}
	result, err := newService(fake).handleStartRun(context.Background(), mcp.ToolRequest{Arguments: withArgs(map[string]any{
		"storageType":     "STATIC",
		"storageCapacity": 1200,
		"cacheId":         "cache-1",
		"cacheBehavior":   "CACHE_ON_FAILURE",
		"logLevel":        "ALL",
		"priority":        5,
	})})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if aws.ToString(got.OutputUri) != "s3://results/runs/" {
		t.Fatalf("expected trailing slash, got %q", aws.ToString(got.OutputUri))
	}
	if got.StorageType != omicstypes.StorageTypeStatic || aws.ToInt32(got.StorageCapacity) != 1200 {
		t.Fatalf("unexpected storage %v %v", got.StorageType, got.StorageCapacity)
	}
	if got.CacheBehavior != omicstypes.CacheBehaviorCacheOnFailure || aws.ToString(got.CacheId) != "cache-1" {
		t.Fatalf("unexpected cache settings %v %v", got.CacheBehavior, got.CacheId)
	}
	if aws.ToString(got.RequestId) == "" || got.Parameters == nil || aws.ToInt32(got.Priority) != 5 {
		t.Fatalf("expected request id, parameters and priority, got %#v", got)
	}
	data := result.Data.(map[string]any)
	if data["id"] != "7654321" || data["status"] != "PENDING" || data["region"] != "us-west-2" {
		t.Fatalf("unexpected result %#v", data)
	}
}

func TestStartRunDefaultsDynamic(t *testing.T) {
	input, err := buildStartRunInput(startRunArgs{
		WorkflowID: "1",
		RoleArn:    "arn:aws:iam::1:role/r",
		Name:       "r",
		OutputURI:  "s3://b/out/",
		RequestID:  "req-1",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if input.StorageType != omicstypes.StorageTypeDynamic || input.StorageCapacity != nil {
		t.Fatalf("expected DYNAMIC default, got %v", input.StorageType)
	}
	if aws.ToString(input.RequestId) != "req-1" || aws.ToString(input.OutputUri) != "s3://b/out/" {
		t.Fatalf("unexpected input %#v", input)
	}
}

func TestListRunsFiltersByCreationTime(t *testing.T) {
	fake := omicstest.NewOmics()
	day := func(d int) *time.Time {
		ts := time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
		return &ts
	}
	var got *omics.ListRunsInput
	fake.ListRunsFn = func(in *omics.ListRunsInput) (*omics.ListRunsOutput, error) {
		got = in
		return &omics.ListRunsOutput{Items: []omicstypes.RunListItem{
			{Id: aws.String("1"), Status: omicstypes.RunStatusCompleted, CreationTime: day(1)},
			{Id: aws.String("2"), Status: omicstypes.RunStatusCompleted, CreationTime: day(5)},
			{Id: aws.String("3"), Status: omicstypes.RunStatusCompleted, CreationTime: day(9)},
		}, NextToken: aws.String("more")}, nil
	}
	result, err := newService(fake).handleListRuns(context.Background(), mcp.ToolRequest{Arguments: map[string]any{
		"status":        "COMPLETED",
		"createdAfter":  "2024-06-02T00:00:00Z",
		"createdBefore": "2024-06-08T00:00:00Z",
		"maxResults":    50,
	}})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if got.Status != omicstypes.RunStatusCompleted || aws.ToInt32(got.MaxResults) != 50 {
		t.Fatalf("unexpected input %#v", got)
	}
	data := result.Data.(map[string]any)
	runs := data["runs"].([]map[string]any)
	if len(runs) != 1 || runs[0]["id"] != "2" {
		t.Fatalf("expected only run 2, got %#v", runs)
	}
	if data["nextToken"] != "more" {
		t.Fatalf("expected cursor passthrough")
	}
}

func TestListRunsValidation(t *testing.T) {
	fake := omicstest.NewOmics()
	svc := newService(fake)
	for _, args := range []map[string]any{
		{"status": "DONE"},
		{"createdAfter": "yesterday"},
		{"createdAfter": "2024-06-09T00:00:00Z", "createdBefore": "2024-06-01T00:00:00Z"},
		{"maxResults": 101},
	} {
		if _, err := svc.handleListRuns(context.Background(), mcp.ToolRequest{Arguments: args}); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
	if len(fake.Calls) != 0 {
		t.Fatalf("unexpected AWS calls %v", fake.Calls)
	}
}

func TestGetRunAndTasks(t *testing.T) {
	fake := omicstest.NewOmics()
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	stop := start.Add(time.Hour)
	fake.AddRun(&omics.GetRunOutput{
		Id:            aws.String("1"),
		Arn:           aws.String("arn:run/1"),
		Uuid:          aws.String("uuid-1"),
		Status:        omicstypes.RunStatusFailed,
		FailureReason: aws.String("TASK_FAILED"),
		StartTime:     &start,
		StopTime:      &stop,
	})
	fake.AddTask("1", &omics.GetRunTaskOutput{TaskId: aws.String("11"), Name: aws.String("align"), Status: omicstypes.TaskStatusCompleted, Cpus: aws.Int32(4), Memory: aws.Int32(16)})
	fake.AddTask("1", &omics.GetRunTaskOutput{TaskId: aws.String("12"), Name: aws.String("call"), Status: omicstypes.TaskStatusFailed, StatusMessage: aws.String("exit 137")})
	svc := newService(fake)

	result, err := svc.handleGetRun(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1"}})
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	run := result.Data.(map[string]any)
	if run["failureReason"] != "TASK_FAILED" || run["stopTime"] != "2024-06-01T09:00:00Z" || run["uuid"] != "uuid-1" {
		t.Fatalf("unexpected run %#v", run)
	}
	if _, ok := run["statusMessage"]; ok {
		t.Fatalf("expected empty statusMessage to be omitted")
	}

	result, err = svc.handleListRunTasks(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1", "status": "FAILED"}})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	tasks := result.Data.(map[string]any)["tasks"].([]map[string]any)
	if len(tasks) != 1 || tasks[0]["taskId"] != "12" {
		t.Fatalf("unexpected tasks %#v", tasks)
	}

	result, err = svc.handleGetRunTask(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1", "taskId": "11"}})
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	task := result.Data.(map[string]any)
	if task["cpus"] != int32(4) || task["name"] != "align" {
		t.Fatalf("unexpected task %#v", task)
	}
}

func TestGetRunTaskNotFoundIsClassified(t *testing.T) {
	fake := omicstest.NewOmics()
	fake.AddRun(&omics.GetRunOutput{Id: aws.String("1")})
	_, err := newService(fake).handleGetRunTask(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1", "taskId": "999"}})
	if err == nil {
		t.Fatalf("expected not found error")
	}
	envelope := mcp.BuildErrorEnvelope(err, nil)
	detail := envelope["error"].(mcp.ErrorDetail)
	if detail.Code != "not_found" || detail.Kind != mcp.KindService || detail.Operation != "GetRunTask" {
		t.Fatalf("unexpected classification %#v", detail)
	}
}
