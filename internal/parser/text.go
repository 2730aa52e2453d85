package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripMarkup returns the text content of an HTML fragment with whitespace
// collapsed. Plain text passes through unchanged apart from whitespace.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
