package storage

import "unicode/utf8"

// DefaultMaxResponseBytes caps a stored stage payload at 256KB.
const DefaultMaxResponseBytes = 262144

// TruncationMarker is appended to any payload cut by the size cap so readers
// can tell the text is incomplete.
const TruncationMarker = "\n[TRUNCATED]"

// Truncate cuts text to at most maxBytes of UTF-8, backing off to the nearest
// rune boundary, and appends the truncation marker. Text at or under the cap
// is returned unchanged. A non-positive maxBytes disables the cap.
func Truncate(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + TruncationMarker
}
