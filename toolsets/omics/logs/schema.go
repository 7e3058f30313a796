package omicslogs

func logProps() map[string]any {
	return map[string]any{
		"runId":         map[string]any{"type": "string"},
		"startTime":     map[string]any{"type": "string", "format": "date-time", "description": "RFC 3339 lower bound (inclusive)."},
		"endTime":       map[string]any{"type": "string", "format": "date-time", "description": "RFC 3339 upper bound (exclusive)."},
		"limit":         map[string]any{"type": "integer", "minimum": 1, "maximum": 10000, "default": 100},
		"nextToken":     map[string]any{"type": "string"},
		"startFromHead": map[string]any{"type": "boolean", "default": true, "description": "Oldest first when true, newest first when false."},
		"region":        map[string]any{"type": "string"},
	}
}

func schemaRunLogs() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": logProps(),
		"required":   []string{"runId"},
	}
}

func schemaManifestLogs() map[string]any {
	props := logProps()
	props["runUuid"] = map[string]any{"type": "string", "description": "Looked up with GetRun when omitted."}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"runId"},
	}
}

func schemaTaskLogs() map[string]any {
	props := logProps()
	props["taskId"] = map[string]any{"type": "string"}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"runId", "taskId"},
	}
}

func schemaListRunLogStreams() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"runId":      map[string]any{"type": "string"},
			"maxResults": map[string]any{"type": "integer", "minimum": 1, "maximum": 50, "default": 50},
			"nextToken":  map[string]any{"type": "string"},
			"region":     map[string]any{"type": "string"},
		},
		"required": []string{"runId"},
	}
}
