package parser

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ArticleLinks returns absolute article URLs found on a listing page. It
// prefers anchors inside listing containers and falls back to any anchor
// whose text is longer than minText characters. Results are de-duplicated,
// keep document order and are capped at limit (0 means no cap).
func ArticleLinks(doc *goquery.Document, pageURL string, minText, limit int) []string {
	base, _ := url.Parse(pageURL)

	links := collectLinks(doc.Find(ListingSelector), base, limit, func(*goquery.Selection) bool { return true })
	if len(links) > 0 {
		return links
	}
	return collectLinks(doc.Find("a[href]"), base, limit, func(s *goquery.Selection) bool {
		return utf8.RuneCountInString(strings.TrimSpace(s.Text())) > minText
	})
}

func collectLinks(sel *goquery.Selection, base *url.URL, limit int, keep func(*goquery.Selection) bool) []string {
	var links []string
	seen := make(map[string]bool)
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || !keep(s) {
			return true
		}
		abs := ResolveURL(base, href)
		if abs == "" || seen[abs] {
			return true
		}
		seen[abs] = true
		links = append(links, abs)
		return limit <= 0 || len(links) < limit
	})
	return links
}

// ResolveURL makes href absolute against base. Fragments, javascript: and
// mailto: links resolve to "".
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}
