package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user input. The result is HTML-escaped text
// and is stored as is; it must not be unescaped before rendering.
func SanitizeText(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(strictPolicy.Sanitize(input))
}
