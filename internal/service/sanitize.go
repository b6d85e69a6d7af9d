package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// cleanText strips markup and returns plain text. Responses are JSON, so entities
// bluemonday escapes (&, <, quotes) are decoded back into the characters the user typed.
func cleanText(policy *bluemonday.Policy, raw string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(raw)))
}
