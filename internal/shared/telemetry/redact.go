package telemetry

import (
	"fmt"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var secretPattern = regexp.MustCompile(`sk-[A-Za-z0-9_\-]{4,}`)

var sensitiveKeys = []string{"api_key", "apikey", "authorization", "credential", "secret", "password", "access_token"}

// Redact returns a copy of fields with credential-like keys masked and any
// embedded provider keys scrubbed from string values.
func Redact(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if isSensitiveKey(k) {
			out[k] = redacted
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

// RedactString replaces provider keys found in s with a masked marker.
func RedactString(s string) string {
	return secretPattern.ReplaceAllString(s, "sk-***")
}

func redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return RedactString(val)
	case error:
		return RedactString(val.Error())
	case fmt.Stringer:
		return RedactString(val.String())
	case map[string]any:
		return Redact(val)
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
