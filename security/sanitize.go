package security

import (
	"html"
	"strings"
)

var stripper = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")

// Sanitize strips HTML significant characters from untrusted input. Strings
// are trimmed, escaped and stripped of any remaining angle brackets or
// quotes. Maps are sanitized by value and slices by element; every other
// type is returned untouched.
func Sanitize(value any) any {
	switch v := value.(type) {
	case string:
		return SanitizeString(v)
	case map[string]any:
		return sanitizeMap(v)
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, item := range v {
			out[key] = SanitizeString(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Sanitize(item)
		}
		return out
	case []string:
		return sanitizeStrings(v)
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i] = sanitizeMap(item)
		}
		return out
	case map[string][]string:
		out := make(map[string][]string, len(v))
		for key, items := range v {
			out[key] = sanitizeStrings(items)
		}
		return out
	default:
		return value
	}
}

// SanitizeString is the string variant of Sanitize
func SanitizeString(s string) string {
	return stripper.Replace(html.EscapeString(strings.TrimSpace(s)))
}

func sanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, item := range m {
		out[key] = Sanitize(item)
	}
	return out
}

func sanitizeStrings(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = SanitizeString(item)
	}
	return out
}
