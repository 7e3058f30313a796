package iampolicy

import (
	"net/url"
	"testing"
)

const trustPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"Service":["ec2.amazonaws.com","omics.amazonaws.com"]},"Action":"sts:AssumeRole"}]}`

func TestParseTrustPolicy(t *testing.T) {
	for _, raw := range []string{trustPolicy, url.QueryEscape(trustPolicy)} {
		doc, err := Parse(raw)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(doc.Statements) != 1 {
			t.Fatalf("expected one statement, got %d", len(doc.Statements))
		}
		if !doc.Grants("Service", "omics.amazonaws.com", "sts:AssumeRole") {
			t.Fatalf("expected omics to be trusted")
		}
		if doc.Grants("Service", "lambda.amazonaws.com", "sts:AssumeRole") {
			t.Fatalf("lambda must not be trusted")
		}
	}
}

func TestGrantsActions(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		want   bool
	}{
		{"exact", `{"Statement":[{"Effect":"Allow","Principal":{"Service":"omics.amazonaws.com"},"Action":["ecr:BatchGetImage","ecr:GetDownloadUrlForLayer"]}]}`, true},
		{"serviceWildcard", `{"Statement":{"Effect":"Allow","Principal":{"Service":"omics.amazonaws.com"},"Action":"ecr:*"}}`, true},
		{"anyPrincipal", `{"Statement":[{"Effect":"Allow","Principal":"*","Action":"*"}]}`, true},
		{"missingAction", `{"Statement":[{"Effect":"Allow","Principal":{"Service":"omics.amazonaws.com"},"Action":"ecr:BatchGetImage"}]}`, false},
		{"deny", `{"Statement":[{"Effect":"Deny","Principal":{"Service":"omics.amazonaws.com"},"Action":"ecr:*"}]}`, false},
		{"otherPrincipal", `{"Statement":[{"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::123456789012:root"},"Action":"ecr:*"}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.policy)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got := doc.Grants("Service", "omics.amazonaws.com", "ecr:BatchGetImage", "ecr:GetDownloadUrlForLayer")
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatalf("expected error for empty document")
	}
	if _, err := Parse("{not json"); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
