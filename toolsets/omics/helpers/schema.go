package omicshelpers

func schemaPackageWorkflow() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mainFileContent": map[string]any{"type": "string", "description": "Content of the main workflow file."},
			"mainFileName":    map[string]any{"type": "string", "default": defaultMainFile},
			"additionalFiles": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
				"description":          "Auxiliary files keyed by relative path.",
			},
			"s3Uri":  map[string]any{"type": "string", "description": "Upload the bundle to this s3://bucket/key."},
			"region": map[string]any{"type": "string", "description": "AWS region for the upload; defaults to the server region."},
		},
		"required": []string{"mainFileContent"},
	}
}

func schemaGetSupportedRegions() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"region": map[string]any{"type": "string", "description": "Region used to query SSM; defaults to the server region."},
		},
	}
}
