package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user-supplied plain text (captions, names, bios) and trims it.
func SanitizeText(input string) string {
	// StrictPolicy escapes entities; the stored value is plain text, so unescape once.
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}
