package render

import (
	"strings"
	"testing"

	"healthomics/internal/redact"
)

func TestRenderRedactsEvidence(t *testing.T) {
	analysis := NewAnalysis()
	analysis.AddCause("task 42 ran out of memory", "exit code 137", "high")
	analysis.AddEvidence("taskLogs", []string{"aws_session_token=FwoGZXIvYXdzEBYaDHqa0AP1"})
	analysis.AddNextCheck("Increase task memory")
	analysis.AddNextCheck("Increase task memory")
	analysis.AddResource("run/1234567")
	analysis.AddResource("run/1234567")

	out := NewRenderer(redact.New()).Render(analysis)
	evidence := out["evidence"].([]EvidenceItem)
	if len(evidence) != 1 {
		t.Fatalf("expected one evidence item, got %d", len(evidence))
	}
	logs := evidence[0].Details.([]string)
	if strings.Contains(logs[0], "FwoGZXIvYXdzEBYaDHqa0AP1") {
		t.Fatalf("expected session token redacted: %v", logs)
	}
	if checks := out["recommendedNextChecks"].([]string); len(checks) != 1 {
		t.Fatalf("expected deduplicated checks, got %v", checks)
	}
	if resources := out["resourcesExamined"].([]string); len(resources) != 1 {
		t.Fatalf("expected deduplicated resources, got %v", resources)
	}
	if causes := out["likelyRootCauses"].([]Cause); causes[0].Severity != "high" {
		t.Fatalf("unexpected causes: %#v", causes)
	}
}

func TestRenderEmptyAnalysisUsesEmptySlices(t *testing.T) {
	out := NewRenderer(nil).Render(Analysis{})
	if causes := out["likelyRootCauses"].([]Cause); causes == nil || len(causes) != 0 {
		t.Fatalf("expected empty causes slice")
	}
	if checks := out["recommendedNextChecks"].([]string); checks == nil {
		t.Fatalf("expected empty checks slice")
	}
}
