package herd

import (
	"strconv"
	"strings"
)

// ParseKinds parses a comma separated kind list, ignoring anything that is
// not a number.
func ParseKinds(kinds string) []int {
	if kinds == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(kinds, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, k)
	}
	return out
}

// KindsToString renders a kind list back into the stored form.
func KindsToString(kinds []int) string {
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, strconv.Itoa(k))
	}
	return strings.Join(parts, ",")
}

// MergeKinds unions two kind sets, keeping first-seen order.
func MergeKinds(existing []int, updates []int) []int {
	seen := make(map[int]bool, len(existing))
	out := make([]int, 0, len(existing)+len(updates))
	for _, k := range existing {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range updates {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
