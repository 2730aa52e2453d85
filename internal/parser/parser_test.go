package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestArticleLinksFromListing(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<nav><a href="/about">About us and our long mission statement here</a></nav>
		<article><a href="/news/1">One</a></article>
		<div class="news-item"><a href="https://other.example/news/2">Two</a></div>
		<div class="post"><a href="/news/1#comments">One again</a></div>
		<div class="post"><a href="javascript:void(0)">JS</a></div>
	</body></html>`)

	got := ArticleLinks(doc, "https://town.example/list", 30, 10)
	want := []string{"https://town.example/news/1", "https://other.example/news/2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("link %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestArticleLinksFallbackAndCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(`<a href="/short">Too short</a>`)
	for i := 0; i < 15; i++ {
		b.WriteString(`<a href="/story-` + string(rune('a'+i)) + `">Huntington library announces extended summer reading hours</a>`)
	}
	b.WriteString("</body></html>")

	got := ArticleLinks(mustDoc(t, b.String()), "https://town.example/", 30, 10)
	if len(got) != 10 {
		t.Fatalf("expected cap of 10, got %d", len(got))
	}
	for _, l := range got {
		if strings.HasSuffix(l, "/short") {
			t.Errorf("short anchor should be skipped: %s", l)
		}
	}
}

func TestContainerText(t *testing.T) {
	doc := mustDoc(t, `<html><body><header>Site</header>
		<main><h1>Park reopens</h1><script>var x=1;</script><p>The  park   reopened Saturday.</p></main>
	</body></html>`)
	got := ContainerText(doc)
	if strings.Contains(got, "var x") {
		t.Errorf("script leaked: %q", got)
	}
	if !strings.Contains(got, "The park reopened Saturday.") {
		t.Errorf("unexpected text %q", got)
	}
	if ContainerText(mustDoc(t, "<html><body><p>x</p></body></html>")) != "" {
		t.Error("expected empty text without a container")
	}
}

func TestBodyTextFiltersLines(t *testing.T) {
	page := `<html><body>
		<div>Menu</div>
		<p>The Town Board approved a new bike lane on New York Avenue this week.</p>
		<p>We use Cookie files to improve the experience of every single visitor.</p>
		<style>.x{color:red}</style>
		<p>Residents can read the full Privacy Policy of this site at any moment.</p>
		<p>Volunteers will plant trees at Heckscher Park on <b>Saturday morning</b> at nine.</p>
	</body></html>`

	got, err := BodyText([]byte(page), 30, BoilerplateMarkers)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[1], "on Saturday morning at nine") {
		t.Errorf("inline markup should stay on one line: %q", lines[1])
	}
}

func TestArticleTitleFallbacks(t *testing.T) {
	if got := ArticleTitle(`<html><head><title>Harbor Festival Returns</title></head><body></body></html>`); got != "Harbor Festival Returns" {
		t.Errorf("title = %q", got)
	}
	if got := ArticleTitle(`<html><head><meta property="og:title" content="OG Title"></head><body></body></html>`); got != "OG Title" {
		t.Errorf("og title = %q", got)
	}
}

func TestStripMarkup(t *testing.T) {
	tests := map[string]string{
		"<p>Hello <b>Huntington</b></p>":  "Hello Huntington",
		"plain   text\n here":             "plain text here",
		"Fish &amp; Chips <br/>on Main":    "Fish & Chips on Main",
		"<script>alert(1)</script>Visible": "Visible",
	}
	for in, want := range tests {
		if got := StripMarkup(in); got != want {
			t.Errorf("StripMarkup(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{
		"Mon, 02 Jan 2006 15:04:05 -0700",
		"2024-05-01T10:00:00Z",
		"2024-05-01",
		"Jan 2, 2024",
	} {
		if _, ok := ParseDate(s); !ok {
			t.Errorf("ParseDate(%q) failed", s)
		}
	}
	if _, ok := ParseDate("yesterday"); ok {
		t.Error("expected failure for free text")
	}
}
