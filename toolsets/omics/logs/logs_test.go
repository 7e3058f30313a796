package omicslogs

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"

	"healthomics/internal/config"
	"healthomics/internal/healthomics"
	"healthomics/internal/healthomics/omicstest"
	"healthomics/internal/mcp"
	"healthomics/internal/redact"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, fake *omicstest.Omics, logs *omicstest.Logs) *Service {
	t.Helper()
	cfg := config.DefaultConfig()
	return &Service{
		ctx: mcp.ToolsetContext{Config: &cfg, Redactor: redact.New()},
		omicsClient: func(context.Context, string) (healthomics.OmicsAPI, string, error) {
			return fake, "us-east-1", nil
		},
		logsClient: func(context.Context, string) (healthomics.LogsAPI, string, error) {
			return logs, "us-east-1", nil
		},
	}
}

func seed(logs *omicstest.Logs, stream string, n int) {
	for i := 0; i < n; i++ {
		logs.Add(config.DefaultLogGroup, stream, base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("%s line %d", stream, i))
	}
}

func events(t *testing.T, result mcp.ToolResult) []map[string]any {
	t.Helper()
	return result.Data.(map[string]any)["events"].([]map[string]any)
}

func TestManifestLogsMissingGroupIsEmpty(t *testing.T) {
	fake := omicstest.NewOmics()
	fake.AddRun(&omics.GetRunOutput{Id: aws.String("1234567"), Uuid: aws.String("run-uuid")})
	svc := newService(t, fake, omicstest.NewLogs())
	result, err := svc.handleGetRunManifestLogs(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1234567"}})
	if err != nil {
		t.Fatalf("expected empty result, got %v", err)
	}
	data := result.Data.(map[string]any)
	if len(events(t, result)) != 0 || data["missing"] != true {
		t.Fatalf("unexpected data %#v", data)
	}
	if data["logStream"] != "manifest/run/1234567/run-uuid" || data["runUuid"] != "run-uuid" {
		t.Fatalf("expected uuid lookup, got %#v", data)
	}
	if fake.CallCount("GetRun") != 1 {
		t.Fatalf("expected one GetRun call")
	}
}

func TestManifestLogsWithExplicitUUIDSkipsLookup(t *testing.T) {
	fake := omicstest.NewOmics()
	logs := omicstest.NewLogs()
	seed(logs, "manifest/run/1/u-1", 3)
	svc := newService(t, fake, logs)
	result, err := svc.handleGetRunManifestLogs(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1", "runUuid": "u-1"}})
	if err != nil {
		t.Fatalf("manifest logs: %v", err)
	}
	if len(events(t, result)) != 3 || len(fake.Calls) != 0 {
		t.Fatalf("expected 3 events and no omics calls, got %d %v", len(events(t, result)), fake.Calls)
	}
}

func TestLogToolsOrdering(t *testing.T) {
	logs := omicstest.NewLogs()
	seed(logs, "run/1", 6)
	seed(logs, "run/1/engine", 6)
	seed(logs, "run/1/task/2", 6)
	svc := newService(t, omicstest.NewOmics(), logs)
	tests := []struct {
		name    string
		handler mcp.ToolHandler
		args    map[string]any
	}{
		{"run", svc.handleGetRunLogs, map[string]any{"runId": "1"}},
		{"engine", svc.handleGetRunEngineLogs, map[string]any{"runId": "1"}},
		{"task", svc.handleGetTaskLogs, map[string]any{"runId": "1", "taskId": "2"}},
	}
	for _, tt := range tests {
		for _, head := range []bool{true, false} {
			args := map[string]any{"startFromHead": head}
			for k, v := range tt.args {
				args[k] = v
			}
			result, err := tt.handler(context.Background(), mcp.ToolRequest{Arguments: args})
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			evs := events(t, result)
			if len(evs) != 6 {
				t.Fatalf("%s: expected 6 events, got %d", tt.name, len(evs))
			}
			for i := 1; i < len(evs); i++ {
				prev, cur := evs[i-1]["timestamp"].(string), evs[i]["timestamp"].(string)
				if head && cur < prev || !head && cur > prev {
					t.Fatalf("%s head=%v: out of order at %d", tt.name, head, i)
				}
			}
		}
	}
}

func TestRunLogsPagination(t *testing.T) {
	logs := omicstest.NewLogs()
	seed(logs, "run/1", 12)
	svc := newService(t, omicstest.NewOmics(), logs)
	args := map[string]any{"runId": "1", "limit": 5}
	var sizes []int
	for i := 0; i < 4; i++ {
		result, err := svc.handleGetRunLogs(context.Background(), mcp.ToolRequest{Arguments: args})
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		data := result.Data.(map[string]any)
		sizes = append(sizes, len(events(t, result)))
		token, ok := data["nextToken"].(string)
		if !ok {
			break
		}
		args = map[string]any{"runId": "1", "limit": 5, "nextToken": token}
	}
	if fmt.Sprint(sizes) != "[5 5 2]" {
		t.Fatalf("expected 5, 5, 2, got %v", sizes)
	}
}

func TestLogArgumentValidation(t *testing.T) {
	logs := omicstest.NewLogs()
	svc := newService(t, omicstest.NewOmics(), logs)
	cases := []struct {
		handler mcp.ToolHandler
		args    map[string]any
		wantErr string
	}{
		{svc.handleGetRunLogs, map[string]any{}, "runId is required"},
		{svc.handleGetRunLogs, map[string]any{"runId": "1", "limit": 20000}, "limit must be at most"},
		{svc.handleGetRunLogs, map[string]any{"runId": "1", "startTime": "noon"}, "startTime must be an RFC 3339"},
		{svc.handleGetRunLogs, map[string]any{"runId": "1", "startTime": "2024-01-02T00:00:00Z", "endTime": "2024-01-01T00:00:00Z"}, "startTime must be before endTime"},
		{svc.handleGetTaskLogs, map[string]any{"runId": "1"}, "taskId is required"},
		{svc.handleListRunLogStreams, map[string]any{}, "runId is required"},
	}
	for _, tt := range cases {
		_, err := tt.handler(context.Background(), mcp.ToolRequest{Arguments: tt.args})
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Fatalf("expected %q, got %v", tt.wantErr, err)
		}
	}
	if len(logs.Calls) != 0 {
		t.Fatalf("expected no log calls, got %d", len(logs.Calls))
	}
}

func TestBlankLogIDsAreValidationErrors(t *testing.T) {
	logs := omicstest.NewLogs()
	svc := newService(t, omicstest.NewOmics(), logs)
	cases := []struct {
		handler mcp.ToolHandler
		args    map[string]any
		wantErr string
	}{
		{svc.handleGetRunLogs, map[string]any{"runId": " "}, "runId must not be blank"},
		{svc.handleGetTaskLogs, map[string]any{"runId": "1", "taskId": "\t"}, "taskId must not be blank"},
		{svc.handleListRunLogStreams, map[string]any{"runId": "  "}, "runId must not be blank"},
	}
	for _, tt := range cases {
		_, err := tt.handler(context.Background(), mcp.ToolRequest{Arguments: tt.args})
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Fatalf("expected %q, got %v", tt.wantErr, err)
		}
		if mcp.KindOf(err) != mcp.KindValidation {
			t.Fatalf("expected validation kind for %v, got %q", tt.args, mcp.KindOf(err))
		}
	}
	if len(logs.Calls) != 0 {
		t.Fatalf("expected no log calls, got %d", len(logs.Calls))
	}
}

func TestLogLimitHonorsConfig(t *testing.T) {
	logs := omicstest.NewLogs()
	seed(logs, "run/1", 3)
	svc := newService(t, omicstest.NewOmics(), logs)
	svc.ctx.Config.Logs.DefaultLimit = 2
	svc.ctx.Config.Logs.MaxLimit = 50
	result, err := svc.handleGetRunLogs(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1"}})
	if err != nil {
		t.Fatalf("run logs: %v", err)
	}
	if len(events(t, result)) != 2 || aws.ToInt32(logs.Calls[0].Limit) != 2 {
		t.Fatalf("expected configured default limit")
	}
	if _, err := svc.handleGetRunLogs(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1", "limit": 51}}); err == nil {
		t.Fatalf("expected max limit error")
	}
}

func TestListRunLogStreams(t *testing.T) {
	logs := omicstest.NewLogs()
	seed(logs, "run/1", 1)
	seed(logs, "run/1/engine", 1)
	seed(logs, "run/1/task/7", 1)
	seed(logs, "manifest/run/1/u", 1)
	svc := newService(t, omicstest.NewOmics(), logs)
	result, err := svc.handleListRunLogStreams(context.Background(), mcp.ToolRequest{Arguments: map[string]any{"runId": "1"}})
	if err != nil {
		t.Fatalf("list streams: %v", err)
	}
	streams := result.Data.(map[string]any)["logStreams"].([]map[string]any)
	if len(streams) != 4 {
		t.Fatalf("expected 4 streams, got %#v", streams)
	}
}
