// Package dedup rejects news items already seen in the current batch or
// already persisted: a duplicate has the same canonical source URL or a
// title whose word-set Jaccard similarity reaches the threshold.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/storage"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Reasons reported by Check.
const (
	ReasonURL   = "url"
	ReasonTitle = "title"
	ReasonStore = "store"
)

type seenTitle struct {
	title  string
	tokens tokenSet
}

// Batch is the set of items accepted so far in one run or aggregation.
// It is safe for concurrent use.
type Batch struct {
	threshold float64

	mu     sync.RWMutex
	urls   map[string]struct{}
	titles []seenTitle
}

// NewBatch creates an empty Batch. A non-positive threshold uses DefaultThreshold.
func NewBatch(threshold float64) *Batch {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Batch{
		threshold: threshold,
		urls:      make(map[string]struct{}),
	}
}

// Check reports whether (title, url) duplicates an accepted item, and why.
func (b *Batch) Check(title, rawURL string) (bool, string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if rawURL != "" {
		if _, ok := b.urls[hashURL(CanonicalizeURL(rawURL))]; ok {
			return true, ReasonURL
		}
	}
	tokens := Tokens(title)
	if len(tokens) == 0 {
		return false, ""
	}
	for _, seen := range b.titles {
		if jaccardSets(tokens, seen.tokens) >= b.threshold {
			return true, ReasonTitle
		}
	}
	return false, ""
}

// Add records an accepted item.
func (b *Batch) Add(title, rawURL string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rawURL != "" {
		b.urls[hashURL(CanonicalizeURL(rawURL))] = struct{}{}
	}
	if tokens := Tokens(title); len(tokens) > 0 {
		b.titles = append(b.titles, seenTitle{title: title, tokens: tokens})
	}
}

// Len returns the number of accepted titles.
func (b *Batch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.titles)
}

// ExistenceChecker is the store query used for persisted duplicates.
type ExistenceChecker interface {
	ExistsByTitleAndURL(ctx context.Context, title, url string) (bool, error)
}

// RecordLister loads persisted records for Prime.
type RecordLister interface {
	ListRecords(ctx context.Context, f storage.Filter) ([]*types.NewsRecord, error)
}

// Deduplicator combines an in-run Batch with a store lookup.
type Deduplicator struct {
	batch  *Batch
	store  ExistenceChecker
	logger *slog.Logger

	byURL, byTitle, byStore atomic.Int64
}

// New creates a Deduplicator. store may be nil to check the batch only.
func New(threshold float64, store ExistenceChecker, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		batch:  NewBatch(threshold),
		store:  store,
		logger: logger.With("component", "dedup"),
	}
}

// IsDuplicate checks the batch first, then the store.
func (d *Deduplicator) IsDuplicate(ctx context.Context, title, rawURL string) (bool, string, error) {
	if dup, reason := d.batch.Check(title, rawURL); dup {
		if reason == ReasonURL {
			d.byURL.Add(1)
		} else {
			d.byTitle.Add(1)
		}
		return true, reason, nil
	}
	if d.store == nil {
		return false, "", nil
	}
	exists, err := d.store.ExistsByTitleAndURL(ctx, title, rawURL)
	if err != nil {
		return false, "", fmt.Errorf("check stored duplicates: %w", err)
	}
	if exists {
		d.byStore.Add(1)
		return true, ReasonStore, nil
	}
	return false, "", nil
}

// Accept adds an item to the batch once it has been persisted.
func (d *Deduplicator) Accept(title, rawURL string) {
	d.batch.Add(title, rawURL)
}

// Prime loads records created since the given time into the batch so fuzzy
// title matching also covers persisted items. It returns how many were loaded.
func (d *Deduplicator) Prime(ctx context.Context, lister RecordLister, since time.Time) (int, error) {
	records, err := lister.ListRecords(ctx, storage.Filter{CreatedAfter: since})
	if err != nil {
		return 0, fmt.Errorf("prime dedup batch: %w", err)
	}
	for _, r := range records {
		d.batch.Add(r.Title, r.SourceURL)
	}
	d.logger.Debug("dedup batch primed", "records", len(records), "since", since)
	return len(records), nil
}

// Stats returns duplicate counts by reason.
func (d *Deduplicator) Stats() map[string]int64 {
	return map[string]int64{
		ReasonURL:   d.byURL.Load(),
		ReasonTitle: d.byTitle.Load(),
		ReasonStore: d.byStore.Load(),
	}
}

// Collapse keeps the first of every group of duplicate records, preserving order.
func Collapse(records []*types.NewsRecord, threshold float64) []*types.NewsRecord {
	batch := NewBatch(threshold)
	out := make([]*types.NewsRecord, 0, len(records))
	for _, r := range records {
		if dup, _ := batch.Check(r.Title, r.SourceURL); dup {
			continue
		}
		batch.Add(r.Title, r.SourceURL)
		out = append(out, r)
	}
	return out
}
