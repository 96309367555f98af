package reconcile

import "strings"

// SuggestJoinColumn proposes a default join column: the first column whose
// name contains "email", ignoring case. It is a convenience for front ends
// and plays no part in matching.
func SuggestJoinColumn(columns []string) (string, bool) {
	for _, c := range columns {
		if strings.Contains(strings.ToLower(c), "email") {
			return c, true
		}
	}
	return "", false
}
