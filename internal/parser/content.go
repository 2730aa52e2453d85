package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContainerText returns the text of the first element matching
// ContentSelector, or "" when the page has no such container.
func ContainerText(doc *goquery.Document) string {
	sel := doc.Find(ContentSelector).First()
	if sel.Length() == 0 {
		return ""
	}
	sel = sel.Clone()
	sel.Find("script, style, noscript").Remove()
	return strings.Join(renderLines(sel.Get(0)), "\n")
}

// BodyText renders the visible body text line by line and keeps only lines
// longer than minLen characters that contain none of the markers.
func BodyText(body []byte, minLen int, markers []string) (string, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	for _, n := range htmlquery.Find(doc, "//script|//style|//noscript|//template") {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	root := htmlquery.FindOne(doc, "//body")
	if root == nil {
		root = doc
	}

	var kept []string
	for _, line := range renderLines(root) {
		if utf8.RuneCountInString(line) <= minLen || containsAny(line, markers) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), nil
}

// renderLines approximates innerText: block elements and <br> break lines.
func renderLines(root *html.Node) []string {
	var (
		lines []string
		cur   strings.Builder
	)
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				flush()
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(root)
	flush()
	return lines
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true, atom.Td: true,
	atom.Th: true, atom.Tr: true, atom.Ul: true,
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// collapseLines trims every line and drops blank ones.
func collapseLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
