package pipeline

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func located(title string) *types.NewsRecord {
	r := &types.NewsRecord{Title: title, Category: types.CategoryNews, SourceURL: "https://example.com/a"}
	r.SetCoordinates(types.GeoPoint{Latitude: 40.87, Longitude: -73.43})
	return r
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	rec := located("  Hello World  ")
	rec.Summary = " spaces "

	result, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Hello World" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	if result.Summary != "spaces" {
		t.Errorf("expected trimmed summary, got %q", result.Summary)
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{}

	if result, err := m.Process(located("Hello")); err != nil || result == nil {
		t.Error("record with title and coordinates should pass")
	}

	if result, err := m.Process(located("")); result != nil || err != nil {
		t.Error("record without title should be dropped (nil, nil)")
	}

	_, err := m.Process(&types.NewsRecord{Title: "Nowhere"})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	rec := located(`<p>Hello <b>World</b></p> &amp; <a href="x">link</a>`)
	rec.Summary = "<p>First   line</p>\n\n<p>Second</p>"

	result, err := m.Process(rec)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.Title != "Hello World & link" {
		t.Errorf("expected 'Hello World & link', got %q", result.Title)
	}
	if result.Summary != "First line\nSecond" {
		t.Errorf("summary = %q", result.Summary)
	}
}

func TestCategoryMiddleware(t *testing.T) {
	tests := []struct {
		in   types.Category
		want types.Category
	}{
		{"Politics", types.CategoryNews},
		{"crime & safety", types.CategoryCrime},
		{"", types.CategoryNews},
		{"Event", types.CategoryEvent},
	}
	for _, tt := range tests {
		rec := located("t")
		rec.Category = tt.in
		got, _ := (&CategoryMiddleware{}).Process(rec)
		if got.Category != tt.want {
			t.Errorf("category %q: expected %q, got %q", tt.in, tt.want, got.Category)
		}
	}
}

func TestConfidenceMiddleware(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.7, 1}, {-0.2, 0}, {math.NaN(), 0}, {0.42, 0.42},
	}
	for _, tt := range tests {
		rec := located("t")
		rec.Confidence = tt.in
		got, _ := (&ConfidenceMiddleware{}).Process(rec)
		if got.Confidence != tt.want {
			t.Errorf("confidence %v: expected %v, got %v", tt.in, tt.want, got.Confidence)
		}
	}
}

func TestTruncateMiddleware(t *testing.T) {
	rec := located(strings.Repeat("é", 300))
	got, _ := (&TruncateMiddleware{Title: 255}).Process(rec)
	if n := len([]rune(got.Title)); n != 255 {
		t.Errorf("expected 255 runes, got %d", n)
	}
}

func TestDefaultTimeMiddleware(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m := &DefaultTimeMiddleware{Now: func() time.Time { return fixed }}

	got, _ := m.Process(located("t"))
	if !got.PublishedAt.Equal(fixed) {
		t.Errorf("expected default time, got %v", got.PublishedAt)
	}

	earlier := fixed.Add(-time.Hour)
	rec := located("t")
	rec.PublishedAt = earlier
	got, _ = m.Process(rec)
	if !got.PublishedAt.Equal(earlier) {
		t.Error("existing publication time must be kept")
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := Default(testLogger)
	if p.Len() != 7 {
		t.Fatalf("expected 7 middlewares, got %d", p.Len())
	}

	rec := located("  <b>Fair</b> on Main St ")
	rec.Category = "Politics"
	rec.Confidence = 3

	got, err := p.Process(rec)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Fair on Main St" || got.Category != types.CategoryNews || got.Confidence != 1 {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.PublishedAt.IsZero() {
		t.Error("publication time not defaulted")
	}

	_, err = p.Process(&types.NewsRecord{Title: "No coordinates"})
	var perr *types.PipelineError
	if !errors.As(err, &perr) || perr.Stage != "required_fields" {
		t.Fatalf("expected PipelineError at required_fields, got %v", err)
	}
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Error("pipeline error should unwrap to ValidationError")
	}
}
