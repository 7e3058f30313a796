package ecrimages

func schemaVerifyContainerImages() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"imageUris": map[string]any{
				"description": "ECR image URIs (account.dkr.ecr.region.amazonaws.com/repo[:tag]); a single string is accepted.",
				"oneOf": []any{
					map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 1, "maxItems": 50},
					map[string]any{"type": "string"},
				},
			},
		},
		"required": []string{"imageUris"},
	}
}

func schemaGenerateECRRepositoryPolicy() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"additionalPrincipals": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Account ids, IAM ARNs or service principals to grant pull access.",
			},
			"includeCrossAccountAccess": map[string]any{
				"type":        "boolean",
				"default":     false,
				"description": "Allow any account's HealthOmics service to pull.",
			},
		},
	}
}
