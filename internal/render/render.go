package render

import (
	"time"

	"healthomics/internal/redact"
)

// Analysis is the human-facing summary attached to diagnosis results.
type Analysis struct {
	LikelyRootCauses      []Cause        `json:"likelyRootCauses"`
	Evidence              []EvidenceItem `json:"evidence"`
	RecommendedNextChecks []string       `json:"recommendedNextChecks"`
	ResourcesExamined     []string       `json:"resourcesExamined"`
	GeneratedAt           time.Time      `json:"generatedAt"`
}

type Cause struct {
	Summary  string `json:"summary"`
	Details  string `json:"details,omitempty"`
	Severity string `json:"severity,omitempty"`
}

type EvidenceItem struct {
	Summary string `json:"summary"`
	Details any    `json:"details,omitempty"`
}

type Renderer interface {
	Render(analysis Analysis) map[string]any
}

type JSONRenderer struct {
	redactor *redact.Redactor
}

func NewRenderer(redactor *redact.Redactor) *JSONRenderer {
	return &JSONRenderer{redactor: redactor}
}

func (r *JSONRenderer) Render(analysis Analysis) map[string]any {
	causes := analysis.LikelyRootCauses
	if causes == nil {
		causes = []Cause{}
	}
	evidence := make([]EvidenceItem, 0, len(analysis.Evidence))
	for _, item := range analysis.Evidence {
		if r != nil && r.redactor != nil {
			item.Details = r.redactor.RedactValue(item.Details)
		}
		evidence = append(evidence, item)
	}
	checks := analysis.RecommendedNextChecks
	if checks == nil {
		checks = []string{}
	}
	resources := analysis.ResourcesExamined
	if resources == nil {
		resources = []string{}
	}
	return map[string]any{
		"likelyRootCauses":      causes,
		"evidence":              evidence,
		"recommendedNextChecks": checks,
		"resourcesExamined":     resources,
		"generatedAt":           analysis.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

func NewAnalysis() Analysis {
	return Analysis{GeneratedAt: time.Now()}
}

func (a *Analysis) AddCause(summary, details, severity string) {
	a.LikelyRootCauses = append(a.LikelyRootCauses, Cause{Summary: summary, Details: details, Severity: severity})
}

func (a *Analysis) AddEvidence(summary string, details any) {
	a.Evidence = append(a.Evidence, EvidenceItem{Summary: summary, Details: details})
}

// AddNextCheck appends check unless it is already present.
func (a *Analysis) AddNextCheck(check string) {
	for _, existing := range a.RecommendedNextChecks {
		if existing == check {
			return
		}
	}
	a.RecommendedNextChecks = append(a.RecommendedNextChecks, check)
}

func (a *Analysis) AddResource(ref string) {
	for _, existing := range a.ResourcesExamined {
		if existing == ref {
			return
		}
	}
	a.ResourcesExamined = append(a.ResourcesExamined, ref)
}
