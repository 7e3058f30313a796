package omicsruns

var runStatuses = []string{"PENDING", "STARTING", "RUNNING", "STOPPING", "COMPLETED", "DELETED", "CANCELLED", "FAILED"}

func regionProp() map[string]any {
	return map[string]any{"type": "string", "description": "AWS region; defaults to the server region."}
}

func schemaStartRun() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflowId":          map[string]any{"type": "string"},
			"roleArn":             map[string]any{"type": "string"},
			"name":                map[string]any{"type": "string"},
			"outputUri":           map[string]any{"type": "string", "description": "s3:// prefix for run outputs."},
			"parameters":          map[string]any{"type": "object"},
			"workflowType":        map[string]any{"type": "string", "enum": []string{"PRIVATE", "READY2RUN"}},
			"workflowVersionName": map[string]any{"type": "string"},
			"storageType":         map[string]any{"type": "string", "enum": []string{"STATIC", "DYNAMIC"}, "default": "DYNAMIC"},
			"storageCapacity":     map[string]any{"type": "integer", "minimum": 1, "description": "GiB; required for STATIC storage."},
			"cacheId":             map[string]any{"type": "string"},
			"cacheBehavior":       map[string]any{"type": "string", "enum": []string{"CACHE_ALWAYS", "CACHE_ON_FAILURE"}},
			"runGroupId":          map[string]any{"type": "string"},
			"priority":            map[string]any{"type": "integer", "minimum": 0},
			"logLevel":            map[string]any{"type": "string", "enum": []string{"OFF", "FATAL", "ERROR", "ALL"}},
			"requestId":           map[string]any{"type": "string"},
			"tags":                map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
			"region":              regionProp(),
		},
		"required": []string{"workflowId", "roleArn", "name", "outputUri"},
	}
}

func schemaListRuns() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status":        map[string]any{"type": "string", "enum": runStatuses},
			"name":          map[string]any{"type": "string"},
			"runGroupId":    map[string]any{"type": "string"},
			"createdAfter":  map[string]any{"type": "string", "format": "date-time"},
			"createdBefore": map[string]any{"type": "string", "format": "date-time"},
			"maxResults":    map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": 10},
			"nextToken":     map[string]any{"type": "string"},
			"region":        regionProp(),
		},
	}
}

func schemaGetRun() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"runId":  map[string]any{"type": "string"},
			"region": regionProp(),
		},
		"required": []string{"runId"},
	}
}

func schemaListRunTasks() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"runId":      map[string]any{"type": "string"},
			"status":     map[string]any{"type": "string", "enum": []string{"PENDING", "STARTING", "RUNNING", "STOPPING", "COMPLETED", "CANCELLED", "FAILED"}},
			"maxResults": map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": 10},
			"nextToken":  map[string]any{"type": "string"},
			"region":     regionProp(),
		},
		"required": []string{"runId"},
	}
}

func schemaGetRunTask() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"runId":  map[string]any{"type": "string"},
			"taskId": map[string]any{"type": "string"},
			"region": regionProp(),
		},
		"required": []string{"runId", "taskId"},
	}
}
