package omicsanalyze

func schemaAnalyzeRun() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"runIds": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
				"maxItems": 10,
			},
			"headroom": map[string]any{"type": "number", "minimum": 0, "maximum": 1, "default": defaultHeadroom, "description": "Fraction added to peak usage when recommending CPUs and memory."},
			"region":   map[string]any{"type": "string", "description": "AWS region; defaults to the server region."},
		},
		"required": []string{"runIds"},
	}
}
