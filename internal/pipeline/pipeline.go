// Package pipeline normalizes news records between extraction and persistence.
package pipeline

import (
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *types.NewsRecord) (*types.NewsRecord, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates an empty Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default creates the normalization chain applied to every record before
// deduplication: trim, sanitize, coerce category, clamp confidence, truncate,
// default the publication time, then require a title and coordinates.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(&CategoryMiddleware{})
	p.Use(&ConfidenceMiddleware{})
	p.Use(&TruncateMiddleware{Title: 255, Headline: 255})
	p.Use(&DefaultTimeMiddleware{})
	p.Use(&RequiredFieldsMiddleware{})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *types.NewsRecord) (*types.NewsRecord, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:  mw.Name(),
				Record: current,
				Err:    err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "url", rec.SourceURL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// textFields returns pointers to every free-text field of a record.
func textFields(r *types.NewsRecord) []*string {
	return []*string{&r.Title, &r.Headline, &r.Description, &r.Summary, &r.Location, &r.SourceName}
}

// TrimMiddleware trims whitespace from all text fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.NewsRecord) (*types.NewsRecord, error) {
	for _, f := range textFields(rec) {
		*f = strings.TrimSpace(*f)
	}
	rec.SourceURL = strings.TrimSpace(rec.SourceURL)
	return rec, nil
}

// CategoryMiddleware maps any unknown category to News.
type CategoryMiddleware struct{}

func (m *CategoryMiddleware) Name() string { return "category" }

func (m *CategoryMiddleware) Process(rec *types.NewsRecord) (*types.NewsRecord, error) {
	rec.Category = types.CoerceCategory(string(rec.Category))
	return rec, nil
}

// DefaultTimeMiddleware sets a missing publication time to the processing time.
type DefaultTimeMiddleware struct {
	Now func() time.Time
}

func (m *DefaultTimeMiddleware) Name() string { return "default_time" }

func (m *DefaultTimeMiddleware) Process(rec *types.NewsRecord) (*types.NewsRecord, error) {
	if rec.PublishedAt.IsZero() {
		now := time.Now
		if m.Now != nil {
			now = m.Now
		}
		rec.PublishedAt = now().UTC()
	}
	return rec, nil
}

// RequiredFieldsMiddleware drops records without a title and rejects records
// without valid coordinates.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *types.NewsRecord) (*types.NewsRecord, error) {
	if rec.Title == "" {
		return nil, nil
	}
	if !rec.HasCoordinates() {
		return nil, &types.ValidationError{Field: "coordinates", Reason: "missing or out of range"}
	}
	return rec, nil
}
