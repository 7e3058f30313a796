package ecrimages

import (
	"context"
	"encoding/json"
	"strings"

	"healthomics/internal/mcp"
)

// policyActions are granted by generated policies, a superset of pullActions.
var policyActions = []string{"ecr:GetDownloadUrlForLayer", "ecr:BatchGetImage", "ecr:BatchCheckLayerAvailability"}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string                       `json:"Sid"`
	Effect    string                       `json:"Effect"`
	Principal any                          `json:"Principal"`
	Action    []string                     `json:"Action"`
	Condition map[string]map[string]string `json:"Condition,omitempty"`
}

type generatePolicyArgs struct {
	AdditionalPrincipals      []string `json:"additionalPrincipals" validate:"omitempty,dive,required"`
	IncludeCrossAccountAccess bool     `json:"includeCrossAccountAccess"`
}

func (s *Service) handleGenerateECRRepositoryPolicy(_ context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	var args generatePolicyArgs
	if err := mcp.DecodeArgs(req.Arguments, &args); err != nil {
		return errorResult(err), err
	}
	doc := buildPolicy(args.AdditionalPrincipals, args.IncludeCrossAccountAccess)
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errorResult(err), mcp.Wrap("GenerateECRRepositoryPolicy", err)
	}
	policyJSON := string(raw)

	instructions := []string{
		"To apply this policy to your ECR repository, use one of the following methods:",
		"",
		"1. AWS CLI:",
		"   aws ecr set-repository-policy --repository-name YOUR_REPO_NAME --policy-text '" + strings.ReplaceAll(policyJSON, "'", `'\''`) + "'",
		"",
		"2. AWS Console:",
		"   - Open Amazon ECR and select your repository",
		`   - On the "Permissions" tab choose "Edit policy JSON" and paste the document`,
		"",
		"3. CloudFormation/CDK:",
		"   Use the policy document as the repository policy in your templates",
		"",
		"Required permissions for HealthOmics:",
	}
	for _, action := range policyActions {
		instructions = append(instructions, "  - "+action)
	}

	principals := append([]string{omicsPrincipal}, args.AdditionalPrincipals...)
	return mcp.ToolResult{Data: map[string]any{
		"policyDocument":     doc,
		"policyJson":         policyJSON,
		"usageInstructions":  instructions,
		"requiredActions":    policyActions,
		"principalsIncluded": principals,
	}}, nil
}

func buildPolicy(additional []string, crossAccount bool) policyDocument {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "AllowHealthOmicsAccess",
			Effect:    "Allow",
			Principal: map[string]any{"Service": omicsPrincipal},
			Action:    policyActions,
		}},
	}
	if len(additional) > 0 {
		awsPrincipals, servicePrincipals := classifyPrincipals(additional)
		principal := map[string]any{}
		if len(awsPrincipals) > 0 {
			principal["AWS"] = awsPrincipals
		}
		if len(servicePrincipals) > 0 {
			principal["Service"] = servicePrincipals
		}
		if len(principal) > 0 {
			doc.Statement = append(doc.Statement, policyStatement{
				Sid:       "AllowAdditionalPrincipals",
				Effect:    "Allow",
				Principal: principal,
				Action:    policyActions,
			})
		}
	}
	if crossAccount {
		doc.Statement = append(doc.Statement, policyStatement{
			Sid:       "AllowCrossAccountAccess",
			Effect:    "Allow",
			Principal: "*",
			Action:    policyActions,
			Condition: map[string]map[string]string{
				"StringEquals": {"aws:PrincipalServiceName": omicsPrincipal},
			},
		})
	}
	return doc
}

// classifyPrincipals sorts principals into IAM principals (account ids become
// account root ARNs) and service principals.
func classifyPrincipals(principals []string) ([]string, []string) {
	var awsPrincipals, servicePrincipals []string
	for _, principal := range principals {
		principal = strings.TrimSpace(principal)
		switch {
		case strings.HasPrefix(principal, "arn:aws:iam::"):
			awsPrincipals = append(awsPrincipals, principal)
		case isAccountID(strings.ReplaceAll(principal, "-", "")):
			awsPrincipals = append(awsPrincipals, "arn:aws:iam::"+strings.ReplaceAll(principal, "-", "")+":root")
		default:
			servicePrincipals = append(servicePrincipals, principal)
		}
	}
	return awsPrincipals, servicePrincipals
}

func isAccountID(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
