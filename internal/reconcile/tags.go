package reconcile

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// PediatricTag marks campaigns for patients under 18.
const PediatricTag = "pediatric"

// DeriveTags computes keyword tags from a condition, a category and a patient age.
// Each whitespace-separated condition word and the category become lowercase tags;
// an age under 18 adds PediatricTag. Unparseable ages add nothing.
func DeriveTags(condition, category, age string) []string {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(condition)) {
		set[word] = struct{}{}
	}
	if c := strings.ToLower(strings.TrimSpace(category)); c != "" {
		set[c] = struct{}{}
	}
	if isMinor(age) {
		set[PediatricTag] = struct{}{}
	}
	return sortedKeys(set)
}

// isMinor reports whether age reads as a number below 18. Fractional ages,
// which hand-edited documents store as JSON numbers, are truncated first.
func isMinor(age string) bool {
	age = strings.TrimSpace(age)
	if n, err := strconv.Atoi(age); err == nil {
		return n < 18
	}
	f, err := strconv.ParseFloat(age, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return math.Trunc(f) < 18
}

// MergeTags unions tag sets, lowercasing and dropping blanks.
// The result is sorted and never nil.
func MergeTags(sets ...[]string) []string {
	set := make(map[string]struct{})
	for _, tags := range sets {
		for _, tag := range tags {
			if t := strings.ToLower(strings.TrimSpace(tag)); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
