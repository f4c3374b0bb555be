// Package ranking parses peer-review text into label permutations and
// aggregates them into a consensus ordering.
package ranking

import (
	"regexp"
	"sort"
	"strings"
)

// markerPattern locates the start of the machine-readable ranking block.
// Reviewers are prompted to end their critique with "FINAL RANKING:" followed
// by one numbered line per label.
var markerPattern = regexp.MustCompile(`(?i)final\s+ranking\s*:`)

// numberedLine matches "1. text", "2) text" and similar list forms.
var numberedLine = regexp.MustCompile(`^\s*\d+\s*[.)]\s*(.+)$`)

// Parse extracts an ordered label permutation from a reviewer's raw text.
//
// It scans the numbered lines after the last "FINAL RANKING:" marker and
// matches each line against the expected labels. The result must be an exact
// permutation of expected: any missing, duplicated, or unknown label rejects
// the whole submission and Parse returns nil. Callers keep the raw text for
// display either way.
func Parse(raw string, expected []string) []string {
	if len(expected) == 0 {
		return nil
	}

	markers := markerPattern.FindAllStringIndex(raw, -1)
	if len(markers) == 0 {
		return nil
	}
	block := raw[markers[len(markers)-1][1]:]

	// Longest label first so "Response A1" never matches "Response A".
	byLength := make([]string, len(expected))
	copy(byLength, expected)
	sort.Slice(byLength, func(i, j int) bool { return len(byLength[i]) > len(byLength[j]) })

	var labels []string
	seen := map[string]bool{}
	started := false
	for _, line := range strings.Split(block, "\n") {
		match := numberedLine.FindStringSubmatch(line)
		if match == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if started {
				break
			}
			continue
		}
		started = true

		label := matchLabel(match[1], byLength)
		if label == "" || seen[label] {
			return nil
		}
		seen[label] = true
		labels = append(labels, label)
	}

	if len(labels) != len(expected) {
		return nil
	}
	return labels
}

// matchLabel finds the expected label a numbered line refers to. Lines often
// carry trailing commentary ("1. Response B - most thorough"), so a substring
// match is enough; candidates arrive longest first.
func matchLabel(text string, candidates []string) string {
	lowered := strings.ToLower(text)
	for _, candidate := range candidates {
		if strings.Contains(lowered, strings.ToLower(candidate)) {
			return candidate
		}
	}
	return ""
}
