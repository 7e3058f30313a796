// Package runlogs reads HealthOmics run logs from CloudWatch Logs.
package runlogs

import (
	"fmt"
	"strings"

	"healthomics/internal/mcp"
)

// Category names one of the log sources a run writes to.
type Category string

const (
	CategoryRun      Category = "run"
	CategoryEngine   Category = "engine"
	CategoryTask     Category = "task"
	CategoryManifest Category = "manifest"
)

// Categories lists every category in reporting order.
var Categories = []Category{CategoryRun, CategoryEngine, CategoryTask, CategoryManifest}

// StreamName resolves the log stream for a category. taskID is required for
// task logs; runUUID is optional for manifest logs.
func StreamName(category Category, runID, taskID, runUUID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", mcp.Invalid("runId must not be blank")
	}
	switch category {
	case CategoryRun:
		return "run/" + runID, nil
	case CategoryEngine:
		return "run/" + runID + "/engine", nil
	case CategoryTask:
		taskID = strings.TrimSpace(taskID)
		if taskID == "" {
			return "", mcp.Invalid("taskId must not be blank for task logs")
		}
		return "run/" + runID + "/task/" + taskID, nil
	case CategoryManifest:
		if runUUID = strings.TrimSpace(runUUID); runUUID != "" {
			return "manifest/run/" + runID + "/" + runUUID, nil
		}
		return "manifest/run/" + runID, nil
	default:
		return "", fmt.Errorf("unknown log category %q", category)
	}
}
