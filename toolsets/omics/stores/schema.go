package omicsstores

func pageProps() map[string]any {
	return map[string]any{
		"maxResults": map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": defaultPageSize},
		"nextToken":  map[string]any{"type": "string"},
		"region":     map[string]any{"type": "string", "description": "AWS region; defaults to the server region."},
	}
}

func schemaListStores() map[string]any {
	props := pageProps()
	props["name"] = map[string]any{"type": "string", "description": "Filter by store name."}
	return map[string]any{"type": "object", "properties": props}
}

func schemaGetStore(idField string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			idField:  map[string]any{"type": "string"},
			"region": map[string]any{"type": "string", "description": "AWS region; defaults to the server region."},
		},
		"required": []string{idField},
	}
}

func schemaListReadSets() map[string]any {
	props := pageProps()
	props["sequenceStoreId"] = map[string]any{"type": "string"}
	props["name"] = map[string]any{"type": "string"}
	props["sampleId"] = map[string]any{"type": "string"}
	props["subjectId"] = map[string]any{"type": "string"}
	props["referenceArn"] = map[string]any{"type": "string"}
	props["status"] = map[string]any{"type": "string", "enum": []string{"ARCHIVED", "ACTIVATING", "ACTIVE", "DELETING", "DELETED", "PROCESSING_UPLOAD", "UPLOAD_FAILED"}}
	props["fileType"] = map[string]any{"type": "string", "enum": []string{"FASTQ", "BAM", "CRAM", "UBAM"}}
	props["createdAfter"] = map[string]any{"type": "string", "format": "date-time"}
	props["createdBefore"] = map[string]any{"type": "string", "format": "date-time"}
	return map[string]any{"type": "object", "properties": props, "required": []string{"sequenceStoreId"}}
}
