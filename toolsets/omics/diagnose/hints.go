package omicsdiagnose

import (
	"regexp"
	"strings"
)

// Hint is a remediation suggestion attached to a log line that matched one
// of the known failure signatures.
type Hint struct {
	ID          string
	Summary     string
	Remediation string
	Line        string
}

func (h Hint) Map() map[string]any {
	return map[string]any{
		"id":          h.ID,
		"summary":     h.Summary,
		"remediation": h.Remediation,
		"line":        h.Line,
	}
}

type signature struct {
	id          string
	summary     string
	remediation string
	needles     []string
}

// Order matters only for output; every signature is tested.
var signatures = []signature{
	{
		id:          "out_of_memory",
		summary:     "Task ran out of memory",
		remediation: "Increase the task's memory allocation in the workflow definition or split its input.",
		needles:     []string{"outofmemory", "out of memory", "oomkilled", "oom-kill", "oom killer", "exit code 137", "exit status 137", "cannot allocate memory", "memoryerror"},
	},
	{
		id:          "image_pull",
		summary:     "Container image could not be pulled",
		remediation: "Check the image URI and that the ECR repository policy grants omics.amazonaws.com pull access (VerifyContainerImages).",
		needles:     []string{"cannotpullcontainer", "pull access denied", "failed to pull", "errimagepull", "manifest unknown", "image not found", "repository does not exist"},
	},
	{
		id:          "permission_denied",
		summary:     "Access was denied",
		remediation: "Check the run role's IAM permissions for the S3 inputs, outputs, ECR and CloudWatch Logs.",
		needles:     []string{"accessdenied", "access denied", "permission denied", "not authorized", "unauthorizedoperation"},
	},
	{
		id:          "missing_input",
		summary:     "An input file is missing",
		remediation: "Verify the input URIs in the run parameters exist and are readable by the run role.",
		needles:     []string{"no such file or directory", "nosuchkey", "nosuchbucket", "filenotfound", "file not found", "does not exist"},
	},
	{
		id:          "disk_space",
		summary:     "Run storage is exhausted",
		remediation: "Increase storageCapacity for STATIC storage or switch the run to DYNAMIC storage.",
		needles:     []string{"no space left on device", "disk quota exceeded", "not enough space", "insufficient disk"},
	},
	{
		id:          "timeout",
		summary:     "Operation timed out",
		remediation: "Check for stalled steps or slow data transfer and consider raising the task's time limit.",
		needles:     []string{"timed out", "timeout", "deadline exceeded"},
	},
}

var (
	exitIndicator = regexp.MustCompile(`(?i)exit(ed)?\s+(with\s+)?(code|status)\s*[:=]?\s*[1-9][0-9]*|non-zero exit`)
	errorMarker   = regexp.MustCompile(`(?i)\b(error|exception|fatal|failed|failure)\b`)
)

// matchHints returns one hint per signature found in lines, keyed to the
// first matching line.
func matchHints(lines []string) []Hint {
	var hints []Hint
	for _, sig := range signatures {
		if line, ok := firstMatch(lines, sig.needles); ok {
			hints = append(hints, Hint{ID: sig.id, Summary: sig.summary, Remediation: sig.remediation, Line: line})
		}
	}
	return hints
}

func firstMatch(lines []string, needles []string) (string, bool) {
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				return line, true
			}
		}
	}
	return "", false
}

// findExitIndicator returns the first line reporting a non-zero exit.
func findExitIndicator(lines []string) string {
	for _, line := range lines {
		if exitIndicator.MatchString(line) {
			return line
		}
	}
	return ""
}

// unmatchedErrors returns error-looking lines that no signature explains,
// verbatim and capped at limit.
func unmatchedErrors(lines []string, limit int) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, line := range lines {
		if len(out) >= limit {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || seen[trimmed] || !errorMarker.MatchString(trimmed) {
			continue
		}
		if len(matchHints([]string{trimmed})) > 0 {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}

func hintMaps(hints []Hint) []map[string]any {
	out := make([]map[string]any, 0, len(hints))
	for _, hint := range hints {
		out = append(out, hint.Map())
	}
	return out
}
