package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	urlPattern        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeQuery lower-cases and trims text. The result is the canonical form
// used for QA keys, throttle counters and filter checks.
func NormalizeQuery(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// StripURLs removes http(s) and www. links and collapses the whitespace left behind.
func StripURLs(text string) string {
	stripped := urlPattern.ReplaceAllString(text, "")
	return CollapseWhitespace(stripped)
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims the ends.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// GenerateMessageID creates a unique message identifier using UUID v4.
func GenerateMessageID() string {
	return uuid.New().String()
}
