package omicsdiagnose

func schemaDiagnoseRunFailure() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"runId":          map[string]any{"type": "string", "description": "ID of the failed run."},
			"maxFailedTasks": map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "description": "Failed tasks to inspect; defaults to the server setting."},
			"logLimit":       map[string]any{"type": "integer", "minimum": 1, "maximum": 1000, "description": "Newest events read per log stream."},
			"region":         map[string]any{"type": "string", "description": "AWS region; defaults to the server region."},
		},
		"required": []string{"runId"},
	}
}
