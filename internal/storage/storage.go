// Package storage persists news records, data sources and scrape run logs.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/geo"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Store is the interface for all record backends.
type Store interface {
	// ListActiveSources returns every source with the active flag set.
	ListActiveSources(ctx context.Context) ([]types.SourceDescriptor, error)

	// ExistsByTitleAndURL reports whether a record has the exact source URL
	// or the same title, ignoring case.
	ExistsByTitleAndURL(ctx context.Context, title, url string) (bool, error)

	// Save persists one record. Each save is independently durable.
	Save(ctx context.Context, rec *types.NewsRecord) (*types.NewsRecord, error)

	// ListRecords returns records matching f, newest publication first.
	ListRecords(ctx context.Context, f Filter) ([]*types.NewsRecord, error)

	CreateRun(ctx context.Context, run *types.ScrapeRun) error
	UpdateRun(ctx context.Context, run *types.ScrapeRun) error
	ListRuns(ctx context.Context, limit int) ([]*types.ScrapeRun, error)

	// UpsertSource inserts src, or updates the source with the same URL.
	// It reports whether a new source was created.
	UpsertSource(ctx context.Context, src *types.SourceDescriptor) (bool, error)
	SetSourceActive(ctx context.Context, id string, active bool) error
	ListSources(ctx context.Context) ([]types.SourceDescriptor, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Filter narrows ListRecords.
type Filter struct {
	Category     types.Category
	Start        time.Time // inclusive lower bound on date_time
	End          time.Time // inclusive upper bound on date_time
	CreatedAfter time.Time
	Near         *types.GeoPoint
	RadiusKm     float64
	Limit        int
}

// matches applies every filter field except Limit.
func (f Filter) matches(r *types.NewsRecord) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if !f.Start.IsZero() && r.PublishedAt.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && r.PublishedAt.After(f.End) {
		return false
	}
	if !f.CreatedAfter.IsZero() && !r.CreatedAt.After(f.CreatedAfter) {
		return false
	}
	return f.withinRadius(r)
}

func (f Filter) withinRadius(r *types.NewsRecord) bool {
	if f.Near == nil || f.RadiusKm <= 0 {
		return true
	}
	return geo.HaversineKm(*f.Near, r.Point()) <= f.RadiusKm
}

// applyRadius is the post-filter used by backends that cannot evaluate distance in the query.
func (f Filter) applyRadius(records []*types.NewsRecord) []*types.NewsRecord {
	if f.Near == nil || f.RadiusKm <= 0 {
		return limit(records, f.Limit)
	}
	out := records[:0]
	for _, r := range records {
		if f.withinRadius(r) {
			out = append(out, r)
		}
	}
	return limit(out, f.Limit)
}

func limit(records []*types.NewsRecord, n int) []*types.NewsRecord {
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}

func sortNewestFirst(records []*types.NewsRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PublishedAt.After(records[j].PublishedAt)
	})
}

// prepareRecord rejects records that must never be persisted and fills ids and timestamps.
func prepareRecord(rec *types.NewsRecord) (*types.NewsRecord, error) {
	if rec == nil {
		return nil, &types.ValidationError{Field: "record", Reason: "nil"}
	}
	if strings.TrimSpace(rec.Title) == "" {
		return nil, &types.ValidationError{Field: "title", Reason: "empty"}
	}
	if !rec.HasCoordinates() {
		return nil, &types.ValidationError{Field: "coordinates", Reason: "missing or out of range"}
	}
	out := rec.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	if out.PublishedAt.IsZero() {
		out.PublishedAt = out.CreatedAt
	}
	return out, nil
}

func prepareSource(src *types.SourceDescriptor) error {
	if strings.TrimSpace(src.URL) == "" {
		return &types.ValidationError{Field: "url", Reason: "empty"}
	}
	if strings.TrimSpace(src.Name) == "" {
		return &types.ValidationError{Field: "source_name", Reason: "empty"}
	}
	if src.Category == "" {
		src.Category = types.CategoryNews
	} else {
		src.Category = types.CoerceCategory(string(src.Category))
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Open creates the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(logger), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg, logger)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
