package lookup

import (
	"io"
	"strings"

	"tanyabot/utils"

	"golang.org/x/net/html"
)

// StripHTML returns the visible text of an HTML fragment: tags dropped,
// entities decoded, whitespace collapsed. Search APIs wrap matches in <b> or
// <span class="searchmatch">, which is all this needs to undo.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return utils.CollapseWhitespace(fragment)
	}

	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return utils.CollapseWhitespace(fragment)
			}
			return utils.CollapseWhitespace(sb.String())
		case html.StartTagToken:
			if isInvisible(z) {
				skip++
			}
		case html.EndTagToken:
			if isInvisible(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func isInvisible(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
