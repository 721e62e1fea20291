package matching

import (
	"regexp"
	"strings"
)

var (
	// An invoice or receipt marker followed by a code of 4+ alphanumerics.
	markerRef = regexp.MustCompile(`(?i)\b(?:invoice|inv|receipt|rcpt|rechnung|beleg)\b[\s#:.\-/]*(?:(?:no|nr|number)\b\.?[\s#:.\-]*)?([a-z0-9]{4,})`)
	// PO-style fallback: PO-12345, AB-0042.
	prefixedRef = regexp.MustCompile(`(?i)\b([a-z]{2,}-\d{3,})\b`)
)

// ExtractReference returns the first invoice or document reference found
// in text, or "" when there is none.
func ExtractReference(text string) string {
	if text == "" {
		return ""
	}
	if m := markerRef.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := prefixedRef.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// SameReference reports whether both references are present and equal,
// ignoring case.
func SameReference(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}
