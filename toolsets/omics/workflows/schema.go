package omicsworkflows

var (
	regionProp     = map[string]any{"type": "string", "description": "AWS region; defaults to the server region."}
	maxResultsProp = map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": 10}
	nextTokenProp  = map[string]any{"type": "string"}
)

func parameterTemplateProp() map[string]any {
	return map[string]any{
		"type": "object",
		"additionalProperties": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{"type": "string"},
				"optional":    map[string]any{"type": "boolean"},
			},
		},
	}
}

func definitionProps() map[string]any {
	return map[string]any{
		"definitionZipBase64": map[string]any{"type": "string", "description": "Base64-encoded workflow definition zip."},
		"definitionUri":       map[string]any{"type": "string", "description": "s3:// URI of the workflow definition zip."},
		"description":         map[string]any{"type": "string"},
		"engine":              map[string]any{"type": "string", "enum": []string{"WDL", "NEXTFLOW", "CWL"}},
		"main":                map[string]any{"type": "string", "description": "Path of the main file inside the zip."},
		"parameterTemplate":   parameterTemplateProp(),
		"storageType":         map[string]any{"type": "string", "enum": []string{"STATIC", "DYNAMIC"}},
		"storageCapacity":     map[string]any{"type": "integer", "minimum": 1, "description": "GiB; STATIC storage only."},
		"tags":                map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		"requestId":           map[string]any{"type": "string", "description": "Idempotency token; generated when omitted."},
		"region":              regionProp,
	}
}

func schemaListWorkflows() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflowType": map[string]any{"type": "string", "enum": []string{"PRIVATE", "READY2RUN", "SHARED"}},
			"name":         map[string]any{"type": "string"},
			"maxResults":   maxResultsProp,
			"nextToken":    nextTokenProp,
			"region":       regionProp,
		},
	}
}

func schemaCreateWorkflow() map[string]any {
	props := definitionProps()
	props["name"] = map[string]any{"type": "string"}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"name"},
	}
}

func schemaGetWorkflow() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflowId":       map[string]any{"type": "string"},
			"workflowType":     map[string]any{"type": "string", "enum": []string{"PRIVATE", "READY2RUN", "SHARED"}},
			"exportDefinition": map[string]any{"type": "boolean", "description": "Include a presigned URL for the definition."},
			"region":           regionProp,
		},
		"required": []string{"workflowId"},
	}
}

func schemaCreateWorkflowVersion() map[string]any {
	props := definitionProps()
	props["workflowId"] = map[string]any{"type": "string"}
	props["versionName"] = map[string]any{"type": "string"}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"workflowId", "versionName"},
	}
}

func schemaListWorkflowVersions() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflowId":   map[string]any{"type": "string"},
			"workflowType": map[string]any{"type": "string", "enum": []string{"PRIVATE", "READY2RUN", "SHARED"}},
			"maxResults":   maxResultsProp,
			"nextToken":    nextTokenProp,
			"region":       regionProp,
		},
		"required": []string{"workflowId"},
	}
}

func schemaGetWorkflowVersion() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflowId":       map[string]any{"type": "string"},
			"versionName":      map[string]any{"type": "string"},
			"workflowType":     map[string]any{"type": "string", "enum": []string{"PRIVATE", "READY2RUN", "SHARED"}},
			"exportDefinition": map[string]any{"type": "boolean"},
			"region":           regionProp,
		},
		"required": []string{"workflowId", "versionName"},
	}
}
