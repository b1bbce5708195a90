package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const MaxNameLength = 32

var (
	htmlPolicy      = bluemonday.StrictPolicy()
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// SanitizeString removes potentially dangerous characters
func SanitizeString(input string) string {
	// Trim whitespace
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Limit length
	if len(input) > 1000 {
		input = input[:1000]
	}

	return input
}

// SanitizeHTML removes all HTML tags
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeName cleans a claimant display name: markup stripped, runs of
// whitespace collapsed, capped at MaxNameLength runes.
func SanitizeName(input string) string {
	name := SanitizeHTML(SanitizeString(input))
	name = whitespaceRegex.ReplaceAllString(strings.TrimSpace(name), " ")
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return strings.TrimSpace(name)
}
