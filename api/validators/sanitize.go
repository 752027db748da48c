package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the value at maxLen
// bytes. A maxLen of zero leaves the length unchecked.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// NormalizeVariant lowercases a size or color selection so equal variants
// compare equal regardless of how the client cased them.
func NormalizeVariant(input string, maxLen int) string {
	return strings.ToLower(SanitizeString(input, maxLen))
}
