// Package strings provides string-slice normalization for request decoding.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  ed25519:a ", "ed25519:b", "ed25519:a", "", "  "})
//	// Returns: []string{"ed25519:a", "ed25519:b"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// FirstBlank returns the index of the first element that is empty after
// trimming, or -1 when there is none.
func FirstBlank(values []string) int {
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			return i
		}
	}
	return -1
}
