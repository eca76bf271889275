package worker

import (
	"sort"
	"strings"
)

// Substitute applies the configured message rewrites. Patterns are applied
// longest-first so overlapping patterns behave deterministically regardless
// of map iteration order.
func Substitute(message string, substitutions map[string]string) string {
	if len(substitutions) == 0 {
		return message
	}

	patterns := make([]string, 0, len(substitutions))
	for pattern := range substitutions {
		patterns = append(patterns, pattern)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})

	for _, pattern := range patterns {
		message = strings.ReplaceAll(message, pattern, substitutions[pattern])
	}
	return message
}
