package format

import (
	"strings"
)

var quoteReplacer = strings.NewReplacer(
	"“", "\"",
	"”", "\"",
	"‘", "'",
	"’", "'",
)

// PreprocessText straightens curly quotes and trims trailing whitespace.
func PreprocessText(text string) string {
	if text == "" {
		return text
	}
	return strings.TrimRight(quoteReplacer.Replace(text), " \t\n")
}
