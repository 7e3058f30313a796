package redact

import (
	"regexp"
)

var (
	// Access key ids: long-term (AKIA) and temporary (ASIA) credentials.
	accessKeyPattern = regexp.MustCompile(`\b(?:AKIA|ASIA|AROA|AIDA)[A-Z0-9]{16}\b`)
	// key=value style secrets as they show up in error text and presigned URLs.
	secretPattern = regexp.MustCompile(`(?i)(aws_secret_access_key|secretaccesskey|aws_session_token|sessiontoken|x-amz-security-token|x-amz-signature)(["']?\s*[:=]\s*["']?)([A-Za-z0-9/+=%._\-]{16,})`)
)

const mask = "[REDACTED]"

// Redactor masks AWS credential material. Run ids, UUIDs and ARNs pass
// through unchanged.
type Redactor struct{}

func New() *Redactor {
	return &Redactor{}
}

func (r *Redactor) RedactString(input string) string {
	out := secretPattern.ReplaceAllString(input, "${1}${2}"+mask)
	return accessKeyPattern.ReplaceAllString(out, mask)
}

func (r *Redactor) RedactMap(input map[string]any) map[string]any {
	output := make(map[string]any, len(input))
	for k, v := range input {
		output[k] = r.RedactValue(v)
	}
	return output
}

func (r *Redactor) RedactValue(input any) any {
	switch v := input.(type) {
	case string:
		return r.RedactString(v)
	case map[string]any:
		return r.RedactMap(v)
	case []any:
		redacted := make([]any, 0, len(v))
		for _, item := range v {
			redacted = append(redacted, r.RedactValue(item))
		}
		return redacted
	case []string:
		redacted := make([]string, 0, len(v))
		for _, item := range v {
			redacted = append(redacted, r.RedactString(item))
		}
		return redacted
	case []map[string]any:
		redacted := make([]map[string]any, 0, len(v))
		for _, item := range v {
			redacted = append(redacted, r.RedactMap(item))
		}
		return redacted
	default:
		return input
	}
}
