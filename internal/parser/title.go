package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ArticleTitle returns the best title for an article page: readability's
// title, then <title>, <h1>, og:title and meta title.
func ArticleTitle(htmlContent string) string {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title
	}
	for _, sel := range []string{"meta[property='og:title']", "meta[name='title']"} {
		if title, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(title) != "" {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

// ReadableText returns readability's main-content text, or "".
func ReadableText(htmlContent string) string {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return ""
	}
	return collapseLines(article.TextContent)
}
