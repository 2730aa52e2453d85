// Package engine drives scrape runs: it walks the active sources, turns
// fetched candidates into geolocated records and keeps the run log current.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/dedup"
	"github.com/IshaanNene/NewsCatcher/internal/observability"
	"github.com/IshaanNene/NewsCatcher/internal/pipeline"
	"github.com/IshaanNene/NewsCatcher/internal/storage"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// SourceFetcher turns one source into candidate documents.
type SourceFetcher interface {
	Fetch(ctx context.Context, src types.SourceDescriptor) ([]types.Candidate, error)
}

// Extractor converts raw text into structured fields. It never fails.
type Extractor interface {
	Extract(ctx context.Context, rawText, sourceURL string) types.ExtractionResult
}

// Geocoder resolves free-text locations. Any failure is types.ErrNotFound.
type Geocoder interface {
	Resolve(ctx context.Context, text string) (types.GeoPoint, error)
}

// LocationCollector gathers candidates about one place from several outlets.
type LocationCollector interface {
	Collect(ctx context.Context, location string) ([]types.Candidate, error)
}

// LocationFunc adapts a function to LocationCollector.
type LocationFunc func(ctx context.Context, location string) ([]types.Candidate, error)

func (f LocationFunc) Collect(ctx context.Context, location string) ([]types.Candidate, error) {
	return f(ctx, location)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Store     storage.Store
	Fetcher   SourceFetcher
	Extractor Extractor
	Geocoder  Geocoder

	// Locations feed CollectLocation.
	Locations []LocationCollector

	// Metrics may be nil.
	Metrics *observability.Metrics

	// Release is closed at the end of every run, e.g. the shared browser.
	Release []io.Closer
}

// Orchestrator runs the ingestion pipeline.
type Orchestrator struct {
	store     storage.Store
	fetcher   SourceFetcher
	extractor Extractor
	geocoder  Geocoder
	locations []LocationCollector
	release   []io.Closer
	pipeline  *pipeline.Pipeline
	metrics   *observability.Metrics

	threshold float64
	lookback  time.Duration

	logger *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Orchestrator {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	threshold := cfg.Dedup.Threshold
	if threshold <= 0 {
		threshold = dedup.DefaultThreshold
	}
	return &Orchestrator{
		store:     deps.Store,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		geocoder:  deps.Geocoder,
		locations: deps.Locations,
		release:   deps.Release,
		pipeline:  pipeline.Default(logger),
		metrics:   metrics,
		threshold: threshold,
		lookback:  cfg.Dedup.Lookback,
		logger:    logger.With("component", "orchestrator"),
		now:       time.Now,
	}
}

// Metrics returns the counters updated by this orchestrator.
func (o *Orchestrator) Metrics() *observability.Metrics {
	return o.metrics
}

// Stats returns a snapshot of the pipeline counters.
func (o *Orchestrator) Stats() map[string]int64 {
	return o.metrics.Snapshot()
}

// Run executes one scrape run over every active source. Sources are processed
// sequentially; a failing source is logged and counted, never fatal. The
// returned error is only set when the run record itself cannot be created.
func (o *Orchestrator) Run(ctx context.Context) (*types.ScrapeRun, error) {
	defer o.releaseAll()

	rl := beginRun(o.now())
	if err := o.store.CreateRun(ctx, rl.snapshot()); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	o.metrics.RunsStarted.Add(1)
	o.logger.Info("scrape run started", "run", rl.run.ID)

	sources, err := o.store.ListActiveSources(ctx)
	if err != nil {
		rl.abort("Listing sources", err)
		return o.finish(ctx, rl), nil
	}
	if len(sources) == 0 {
		rl.note("No active data sources found")
		o.logger.Warn("no active data sources found")
		return o.finish(ctx, rl), nil
	}

	rl.progress(len(sources))
	rl.note("Scraping in progress")
	o.update(ctx, rl)

	dd := o.newDeduplicator(ctx)
	for _, src := range sources {
		o.logger.Info("processing source", "source", src.Name, "url", src.URL)
		rl.note("Processing: %s", src.Name)

		n, err := o.runSource(ctx, src, dd)
		if err != nil {
			serr := &types.SourceError{Source: src.Name, Err: err}
			rl.fail(serr)
			o.metrics.SourcesFailed.Add(1)
			o.logger.Error("source failed", "error", serr)
		} else {
			rl.succeed(src.Name, n)
			o.metrics.SourcesOK.Add(1)
		}
		o.update(ctx, rl)
	}

	return o.finish(ctx, rl), nil
}

// runSource fetches and processes one source. Panics are converted to errors
// so that one source can never abort the run.
func (o *Orchestrator) runSource(ctx context.Context, src types.SourceDescriptor, dd *dedup.Deduplicator) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	candidates, err := o.fetcher.Fetch(ctx, src)
	if err != nil {
		return 0, err
	}
	saved, err := o.process(ctx, candidates, dd)
	return len(saved), err
}

func (o *Orchestrator) finish(ctx context.Context, rl *runLog) *types.ScrapeRun {
	rl.finish(o.now())
	o.update(ctx, rl)

	run := rl.snapshot()
	if run.Status == types.RunCompleted {
		o.metrics.RunsCompleted.Add(1)
	} else {
		o.metrics.RunsDegraded.Add(1)
	}
	o.logger.Info("scrape run finished",
		"run", run.ID,
		"status", run.Status,
		"successful", run.Successful,
		"errors", run.Errors,
		"elapsed", run.EndTime.Sub(run.StartTime).Round(time.Millisecond),
	)
	return run
}

// update persists the run. Failures are logged; the run continues.
func (o *Orchestrator) update(ctx context.Context, rl *runLog) {
	// The final write must land even when the run context was cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.store.UpdateRun(ctx, rl.snapshot()); err != nil {
		o.logger.Error("update run failed", "run", rl.run.ID, "error", err)
	}
}

func (o *Orchestrator) releaseAll() {
	for _, c := range o.release {
		if err := c.Close(); err != nil {
			o.logger.Warn("release failed", "error", err)
		}
	}
}

// newDeduplicator returns a store-backed deduplicator primed with recent records.
func (o *Orchestrator) newDeduplicator(ctx context.Context) *dedup.Deduplicator {
	dd := dedup.New(o.threshold, o.store, o.logger)
	if o.lookback <= 0 {
		return dd
	}
	if _, err := dd.Prime(ctx, o.store, o.now().Add(-o.lookback)); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warn("dedup priming failed", "error", err)
	}
	return dd
}
