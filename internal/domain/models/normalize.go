package models

import "strings"

// NormalizeEntryText flattens an entry to a single non-empty line. Both
// storage backends apply it on append so entry counts and bytes stay
// identical between them.
func NormalizeEntryText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
