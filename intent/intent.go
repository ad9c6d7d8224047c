// Package intent answers small talk and advice requests from fixed keyword
// rules, before the bot reaches for an external lookup.
package intent

import (
	"context"
	"strings"
)

// Canned replies.
const (
	AboutBotText     = "Saya adalah bot yang dirancang untuk membantu Anda dengan berbagai pertanyaan. 🤖"
	AboutCreatorText = "Saya dibuat oleh Welli Ardiansyah."
)

// Rule answers Response when the query contains any of Keywords.
type Rule struct {
	Keywords []string
	Response string
}

// DefaultRules is the built-in small talk, checked in order.
var DefaultRules = []Rule{
	{Keywords: []string{"siapa kamu", "apa itu"}, Response: AboutBotText},
	{Keywords: []string{"siapa penciptamu", "siapa yang membuatmu"}, Response: AboutCreatorText},
	{Keywords: []string{"apa kabar", "bagaimana kabarmu"}, Response: "Saya baik-baik saja, terima kasih! Bagaimana dengan Anda?"},
	{Keywords: []string{"cinta", "suka"}, Response: "Cinta adalah emosi yang mendalam. Apakah Anda memiliki pengalaman yang ingin dibagikan?"},
	{Keywords: []string{"musik"}, Response: "Musik adalah bagian penting dari budaya kita. Jenis musik apa yang Anda suka?"},
	{Keywords: []string{"film"}, Response: "Film bisa menjadi pengalaman yang menghibur. Apa film terakhir yang Anda tonton?"},
	{Keywords: []string{"cuaca"}, Response: "Cuaca bisa sangat berpengaruh pada suasana hati. Anda ingin tahu tentang cuaca di mana?"},
	{Keywords: []string{"makanan"}, Response: "Makanan adalah bagian penting dari kehidupan. Apa makanan favorit Anda?"},
	{Keywords: []string{"teknologi"}, Response: "Teknologi terus berkembang. Apa yang terbaru yang Anda dengar?"},
}

// Matcher checks rules in order; the first rule with a keyword contained in
// the query wins. It is immutable and safe for concurrent use.
type Matcher struct {
	rules []Rule
}

// NewMatcher builds a matcher over rules. Keywords are lower-cased and
// trimmed; empty keywords and rules without a response are skipped.
func NewMatcher(rules ...Rule) *Matcher {
	m := &Matcher{}
	for _, r := range rules {
		if strings.TrimSpace(r.Response) == "" {
			continue
		}
		var keywords []string
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) > 0 {
			m.rules = append(m.rules, Rule{Keywords: keywords, Response: r.Response})
		}
	}
	return m
}

// Match returns the response of the first rule matching the normalized query.
func (m *Matcher) Match(query string) (string, bool) {
	for _, r := range m.rules {
		for _, k := range r.Keywords {
			if strings.Contains(query, k) {
				return r.Response, true
			}
		}
	}
	return "", false
}

// Resolve lets the matcher stand in the pipeline next to the other answer sources.
func (m *Matcher) Resolve(_ context.Context, query string) (string, bool) {
	return m.Match(query)
}

// Len returns the number of usable rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}
