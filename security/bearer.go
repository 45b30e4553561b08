package security

import "strings"

// IsValidTokenFormat reports whether token has the header.claims.signature
// shape with no empty segment.
func IsValidTokenFormat(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
	}
	return true
}
