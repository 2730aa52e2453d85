package pipeline

import (
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// HTMLSanitizeMiddleware strips HTML tags from text fields.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(rec *types.NewsRecord) (*types.NewsRecord, error) {
	for _, f := range textFields(rec) {
		if *f == "" {
			continue
		}
		cleaned := m.stripRe.ReplaceAllString(*f, "")
		cleaned = html.UnescapeString(cleaned)
		// Description and summary keep their line breaks.
		if f == &rec.Description || f == &rec.Summary {
			cleaned = collapseSpaces(cleaned)
		} else {
			cleaned = strings.Join(strings.Fields(cleaned), " ")
		}
		*f = cleaned
	}
	return rec, nil
}

var spaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)

func collapseSpaces(s string) string {
	lines := strings.Split(spaceRun.ReplaceAllString(s, " "), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// ConfidenceMiddleware clamps the confidence score to [0, 1].
type ConfidenceMiddleware struct{}

func (m *ConfidenceMiddleware) Name() string { return "confidence" }

func (m *ConfidenceMiddleware) Process(rec *types.NewsRecord) (*types.NewsRecord, error) {
	switch {
	case math.IsNaN(rec.Confidence) || rec.Confidence < 0:
		rec.Confidence = 0
	case rec.Confidence > 1:
		rec.Confidence = 1
	}
	return rec, nil
}

// TruncateMiddleware cuts fields to their column limits, counted in runes.
// Zero means unlimited.
type TruncateMiddleware struct {
	Title    int
	Headline int
}

func (m *TruncateMiddleware) Name() string { return "truncate" }

func (m *TruncateMiddleware) Process(rec *types.NewsRecord) (*types.NewsRecord, error) {
	if m.Title > 0 {
		rec.Title = types.Truncate(rec.Title, m.Title)
	}
	if m.Headline > 0 {
		rec.Headline = types.Truncate(rec.Headline, m.Headline)
	}
	return rec, nil
}
