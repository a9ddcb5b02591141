package logutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textOnly = bluemonday.StrictPolicy()

// IsSensitiveLogField returns true when a key likely contains sensitive data.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch {
	case strings.Contains(normalized, "token"):
		return true
	case strings.Contains(normalized, "secret"):
		return true
	case strings.Contains(normalized, "password"):
		return true
	case strings.Contains(normalized, "accesskey"):
		return true
	default:
		return false
	}
}

// RedactValue redacts a value when the key looks sensitive.
func RedactValue(key, value string) string {
	if value == "" {
		return ""
	}
	if IsSensitiveLogField(key) {
		return "[REDACTED]"
	}
	return value
}

// TextPreview strips markup from a page source and returns a single-line,
// whitespace-collapsed, truncated preview of the visible text.
func TextPreview(markup string, maxChars int) string {
	text := html.UnescapeString(textOnly.Sanitize(markup))
	return TruncateForLog(strings.Join(strings.Fields(text), " "), maxChars)
}

// TruncateForLog returns a single-line truncated preview for unstructured values.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	runes := []rune(normalized)
	if maxChars <= 0 || len(runes) <= maxChars {
		return normalized
	}
	return string(runes[:maxChars]) + "... [truncated]"
}
