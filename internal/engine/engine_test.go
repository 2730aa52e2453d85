package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/ai"
	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/fetcher"
	"github.com/IshaanNene/NewsCatcher/internal/sources"
	"github.com/IshaanNene/NewsCatcher/internal/storage"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var huntington = types.GeoPoint{Latitude: 40.8682, Longitude: -73.4257, Region: "NY"}

// --- fakes ---

type fakeExtractor struct {
	fn func(text, url string) types.ExtractionResult
}

func (f *fakeExtractor) Extract(_ context.Context, text, url string) types.ExtractionResult {
	return f.fn(text, url)
}

// firstLine extracts every candidate as a confident local event in Huntington.
func firstLine(text, _ string) types.ExtractionResult {
	title, _, _ := strings.Cut(text, "\n")
	return types.ExtractionResult{
		Title:       title,
		Description: text,
		Summary:     text,
		Category:    types.CategoryEvent,
		Location:    "Huntington, NY",
		Confidence:  0.9,
		Method:      types.MethodProvider,
	}
}

type fakeGeocoder struct {
	mu     sync.Mutex
	points map[string]types.GeoPoint
	calls  []string
}

func newGeocoder() *fakeGeocoder {
	return &fakeGeocoder{points: map[string]types.GeoPoint{
		"huntington, ny": huntington,
		"northport, ny":  {Latitude: 40.9009, Longitude: -73.3432},
	}}
}

func (g *fakeGeocoder) Resolve(_ context.Context, text string) (types.GeoPoint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, text)
	if p, ok := g.points[strings.ToLower(strings.TrimSpace(text))]; ok {
		return p, nil
	}
	return types.GeoPoint{}, types.ErrNotFound
}

type fakeFetcher struct {
	bySource map[string]func() ([]types.Candidate, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, src types.SourceDescriptor) ([]types.Candidate, error) {
	fn, ok := f.bySource[src.Name]
	if !ok {
		return nil, nil
	}
	return fn()
}

func candidates(prefix string, n int) func() ([]types.Candidate, error) {
	return func() ([]types.Candidate, error) {
		out := make([]types.Candidate, n)
		for i := range out {
			title := fmt.Sprintf("%s report %d", prefix, i)
			out[i] = types.Candidate{
				Text:  title + "\n\nbody",
				URL:   fmt.Sprintf("https://%s.example/%d", strings.ToLower(prefix), i),
				Title: title,
			}
		}
		return out, nil
	}
}

// recordingStore captures every run snapshot written by the orchestrator.
type recordingStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	updates []*types.ScrapeRun
	listErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: storage.NewMemoryStore(testLogger)}
}

func (s *recordingStore) UpdateRun(ctx context.Context, run *types.ScrapeRun) error {
	s.mu.Lock()
	s.updates = append(s.updates, run.Clone())
	s.mu.Unlock()
	return s.MemoryStore.UpdateRun(ctx, run)
}

func (s *recordingStore) ListActiveSources(ctx context.Context) ([]types.SourceDescriptor, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.ListActiveSources(ctx)
}

func addSources(t *testing.T, store storage.Store, names ...string) {
	t.Helper()
	for _, name := range names {
		src := &types.SourceDescriptor{Name: name, URL: "https://" + strings.ToLower(name) + ".example/feed", Active: true}
		if _, err := store.UpsertSource(context.Background(), src); err != nil {
			t.Fatal(err)
		}
	}
}

func newOrchestrator(store storage.Store, deps Deps) *Orchestrator {
	cfg := config.DefaultConfig()
	cfg.Dedup.Lookback = 0
	deps.Store = store
	if deps.Geocoder == nil {
		deps.Geocoder = newGeocoder()
	}
	if deps.Extractor == nil {
		deps.Extractor = &fakeExtractor{fn: firstLine}
	}
	return New(cfg, deps, testLogger)
}

func countPrefix(lines []string, prefix string) int {
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// --- scenarios ---

func TestRunRSSFeedScenario(t *testing.T) {
	var items strings.Builder
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&items, `<item><title>Entry %d</title><link>https://news.example/entry-%d</link>`+
			`<description>Body of entry %d</description></item>`, i, i, i)
	}
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><title>Local</title>` + items.String() + `</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	client, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	excluded := map[int]bool{2: true, 5: true, 7: true}
	unlocatable := map[int]bool{4: true, 9: true}
	extractor := &fakeExtractor{fn: func(text, url string) types.ExtractionResult {
		n, _ := strconv.Atoi(strings.TrimPrefix(url, "https://news.example/entry-"))
		res := firstLine(text, url)
		if excluded[n] {
			res.ExcludedReason = "national politics"
		}
		if unlocatable[n] {
			res.Location = "Atlantis"
		}
		return res
	}}

	store := newRecordingStore()
	if _, err := store.UpsertSource(context.Background(), &types.SourceDescriptor{Name: "Patch", URL: srv.URL, Active: true}); err != nil {
		t.Fatal(err)
	}
	o := newOrchestrator(store, Deps{
		Fetcher:   sources.NewRSSFetcher(client, cfg, testLogger),
		Extractor: extractor,
	})

	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != types.RunCompleted {
		t.Fatalf("status = %s, log = %v", run.Status, run.Log)
	}

	records, _ := store.ListRecords(context.Background(), storage.Filter{})
	if len(records) != 15 {
		t.Fatalf("got %d records, want 15", len(records))
	}
	for _, r := range records {
		if !r.HasCoordinates() {
			t.Errorf("record without coordinates: %+v", r)
		}
		n, _ := strconv.Atoi(strings.TrimPrefix(r.SourceURL, "https://news.example/entry-"))
		if n > 20 || excluded[n] || unlocatable[n] {
			t.Errorf("unexpected record for entry %d", n)
		}
	}
	if countPrefix(run.Log, "✓ Patch: Found 15 items") != 1 {
		t.Errorf("log = %v", run.Log)
	}

	stats := o.Stats()
	if stats["records_excluded"] != 3 || stats["records_ungeocoded"] != 2 || stats["candidates"] != 20 {
		t.Errorf("stats = %v", stats)
	}
}

func TestRunIsolatesSourceFailure(t *testing.T) {
	store := newRecordingStore()
	addSources(t, store, "Alpha", "Broken", "Gamma", "Delta")

	longErr := errors.New("connection reset: " + strings.Repeat("x", 300))
	o := newOrchestrator(store, Deps{Fetcher: &fakeFetcher{bySource: map[string]func() ([]types.Candidate, error){
		"Alpha":  candidates("Alpha", 2),
		"Broken": func() ([]types.Candidate, error) { return nil, longErr },
		"Gamma":  candidates("Gamma", 1),
		"Delta":  candidates("Delta", 3),
	}}})

	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != types.RunCompletedWithErrors {
		t.Errorf("status = %s", run.Status)
	}
	if run.Total != 4 || run.Successful != 3 || run.Errors != 1 {
		t.Errorf("counts total=%d ok=%d errors=%d", run.Total, run.Successful, run.Errors)
	}
	if run.EndTime == nil {
		t.Error("terminal run must have an end time")
	}

	var errLines []string
	for _, l := range run.Log {
		if strings.HasPrefix(l, "✗") {
			errLines = append(errLines, l)
		}
	}
	if len(errLines) != 1 {
		t.Fatalf("expected one error entry, got %v", errLines)
	}
	msg := strings.TrimPrefix(errLines[0], "✗ Broken: Error - ")
	if msg == errLines[0] || len([]rune(msg)) != 200 {
		t.Errorf("error entry not truncated to 200 characters: %q", errLines[0])
	}

	records, _ := store.ListRecords(context.Background(), storage.Filter{})
	if len(records) != 6 {
		t.Errorf("got %d records, want 6", len(records))
	}
}

func TestRunRecoversFromPanickingSource(t *testing.T) {
	store := newRecordingStore()
	addSources(t, store, "Alpha", "Crashy")
	o := newOrchestrator(store, Deps{Fetcher: &fakeFetcher{bySource: map[string]func() ([]types.Candidate, error){
		"Alpha":  candidates("Alpha", 1),
		"Crashy": func() ([]types.Candidate, error) { panic("nil map") },
	}}})

	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Successful != 1 || run.Errors != 1 || run.Status != types.RunCompletedWithErrors {
		t.Errorf("unexpected run %+v", run)
	}
	if countPrefix(run.Log, "✗ Crashy: Error - panic: nil map") != 1 {
		t.Errorf("log = %v", run.Log)
	}
}

func TestRunWithoutProviderUsesBasicExtraction(t *testing.T) {
	store := newRecordingStore()
	addSources(t, store, "Alpha")
	fetch := &fakeFetcher{bySource: map[string]func() ([]types.Candidate, error){
		"Alpha": func() ([]types.Candidate, error) {
			c, _ := candidates("Alpha", 4)()
			for i := range c {
				c[i].DefaultLocation = "Huntington, NY"
			}
			return c, nil
		},
	}}
	cfg := config.DefaultConfig()
	o := newOrchestrator(store, Deps{
		Fetcher:   fetch,
		Extractor: ai.NewExtractor(cfg.Extraction, testLogger),
	})

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	records, _ := store.ListRecords(context.Background(), storage.Filter{})
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	for _, r := range records {
		if r.Confidence != 0.3 {
			t.Errorf("confidence = %v, want 0.3", r.Confidence)
		}
		if r.Category != types.CategoryNews {
			t.Errorf("category = %q", r.Category)
		}
	}
}

func TestRunWithNoSources(t *testing.T) {
	store := newRecordingStore()
	o := newOrchestrator(store, Deps{Fetcher: &fakeFetcher{}})

	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != types.RunCompleted || run.EndTime == nil {
		t.Errorf("unexpected run %+v", run)
	}
	if len(run.Log) != 1 || run.Log[0] != "No active data sources found" {
		t.Errorf("log = %v", run.Log)
	}
}

func TestRunListSourcesFailure(t *testing.T) {
	store := newRecordingStore()
	store.listErr = errors.New("db unavailable")
	o := newOrchestrator(store, Deps{Fetcher: &fakeFetcher{}})

	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != types.RunCompletedWithErrors {
		t.Errorf("status = %s", run.Status)
	}
	stored, _ := store.ListRuns(context.Background(), 1)
	if len(stored) != 1 || stored[0].Status != types.RunCompletedWithErrors {
		t.Errorf("stored run = %+v", stored)
	}
}

func TestRunStateTransitions(t *testing.T) {
	store := newRecordingStore()
	addSources(t, store, "Alpha", "Beta")
	o := newOrchestrator(store, Deps{Fetcher: &fakeFetcher{bySource: map[string]func() ([]types.Candidate, error){
		"Alpha": candidates("Alpha", 1),
		"Beta":  candidates("Beta", 1),
	}}})

	run, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// in_progress entry, one per source, then the terminal write.
	if len(store.updates) != 4 {
		t.Fatalf("got %d run updates, want 4", len(store.updates))
	}
	for i, u := range store.updates[:3] {
		if u.Status != types.RunInProgress || u.EndTime != nil || u.Total != 2 {
			t.Errorf("update %d = %+v", i, u)
		}
	}
	if store.updates[1].Successful != 1 || store.updates[2].Successful != 2 {
		t.Errorf("successful counts not incremental")
	}
	last := store.updates[3]
	if last.Status != types.RunCompleted || last.EndTime == nil || last.ID != run.ID {
		t.Errorf("final update = %+v", last)
	}
}

// --- candidate processing ---

func TestProcessCandidatesDedupAndCoercion(t *testing.T) {
	store := newRecordingStore()
	ctx := context.Background()
	existing := &types.NewsRecord{Title: "Old news", SourceURL: "https://n.example/stored", Category: types.CategoryNews}
	existing.SetCoordinates(huntington)
	if _, err := store.Save(ctx, existing); err != nil {
		t.Fatal(err)
	}

	extractor := &fakeExtractor{fn: func(text, url string) types.ExtractionResult {
		res := firstLine(text, url)
		res.Category = "Politics"
		return res
	}}
	o := newOrchestrator(store, Deps{Extractor: extractor})

	cands := []types.Candidate{
		{Text: "Town board approves new park budget", URL: "https://n.example/1"},
		{Text: "Town board approves new park budget today", URL: "https://n.example/2"},
		{Text: "Different story entirely", URL: "https://n.example/stored"},
		{Text: "Harbor festival returns", URL: "https://n.example/3"},
	}
	saved, err := o.ProcessCandidates(ctx, types.SourceDescriptor{Name: "Test"}, cands)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d, want 2", len(saved))
	}
	for _, r := range saved {
		if r.Category != types.CategoryNews {
			t.Errorf("category %q was not coerced to News", r.Category)
		}
	}
	if o.Stats()["records_duplicate"] != 2 {
		t.Errorf("stats = %v", o.Stats())
	}
}

func TestProcessCandidatesLocationFallbackAndHint(t *testing.T) {
	store := newRecordingStore()
	geo := newGeocoder()
	extractor := &fakeExtractor{fn: func(text, url string) types.ExtractionResult {
		r := ai.EmptyResult("Failed to process content")
		return r
	}}
	o := newOrchestrator(store, Deps{Extractor: extractor, Geocoder: geo})

	cands := []types.Candidate{{
		Text:            "Food drive at the library",
		URL:             "https://n.example/drive",
		Title:           "Food drive at the library",
		DefaultLocation: "Northport, NY",
		CategoryHint:    types.CategoryCause,
	}}
	saved, err := o.ProcessCandidates(context.Background(), types.SourceDescriptor{}, cands)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 {
		t.Fatalf("saved %d, want 1", len(saved))
	}
	r := saved[0]
	if r.Title != "Food drive at the library" || r.Category != types.CategoryCause || r.Location != "Northport, NY" {
		t.Errorf("unexpected record %+v", r)
	}
	if r.Latitude != 40.9009 {
		t.Errorf("latitude = %v", r.Latitude)
	}
	if r.PublishedAt.IsZero() {
		t.Error("publication time should default to processing time")
	}
}

func TestProcessCandidatesUnresolvedFallbackTriedOnce(t *testing.T) {
	geo := newGeocoder()
	extractor := &fakeExtractor{fn: func(text, url string) types.ExtractionResult {
		res := firstLine(text, url)
		res.Location = "Atlantis"
		return res
	}}
	o := newOrchestrator(newRecordingStore(), Deps{Extractor: extractor, Geocoder: geo})

	saved, err := o.ProcessCandidates(context.Background(), types.SourceDescriptor{},
		[]types.Candidate{{Text: "Lost city found", URL: "https://n.example/x", DefaultLocation: "atlantis"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 0 {
		t.Errorf("record without coordinates must not be saved")
	}
	if len(geo.calls) != 1 {
		t.Errorf("geocoder calls = %v", geo.calls)
	}
}

// --- location batches ---

type fixedCollector struct {
	cands []types.Candidate
	err   error
}

func (c *fixedCollector) Collect(context.Context, string) ([]types.Candidate, error) {
	return c.cands, c.err
}

func TestCollectLocationCollapsesBeforePersisting(t *testing.T) {
	store := newRecordingStore()
	feeds := &fixedCollector{cands: []types.Candidate{
		{Text: "Huntington library opens new wing", URL: "https://patch.example/a"},
		{Text: "Village fair this weekend", URL: "https://patch.example/b"},
	}}
	api := LocationFunc(func(_ context.Context, loc string) ([]types.Candidate, error) {
		return []types.Candidate{
			{Text: "Huntington library opens new wing!", URL: "https://newsapi.example/a"},
			{Text: "Village fair this weekend", URL: "https://patch.example/b?utm_source=x"},
		}, nil
	})
	broken := &fixedCollector{err: errors.New("feed down")}
	o := newOrchestrator(store, Deps{Locations: []LocationCollector{feeds, broken, api}})

	saved, err := o.CollectLocation(context.Background(), "Huntington, NY")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d, want 2", len(saved))
	}
	if saved[0].SourceURL != "https://patch.example/a" {
		t.Errorf("first record should win, got %s", saved[0].SourceURL)
	}

	again, err := o.CollectLocation(context.Background(), "Huntington, NY")
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("second batch should be fully deduplicated against the store, saved %d", len(again))
	}
}

func TestCollectLocationAllCollectorsFail(t *testing.T) {
	o := newOrchestrator(newRecordingStore(), Deps{Locations: []LocationCollector{
		&fixedCollector{err: errors.New("a")},
		&fixedCollector{err: errors.New("b")},
	}})
	if _, err := o.CollectLocation(context.Background(), "Huntington, NY"); err == nil {
		t.Error("expected error when every collector fails")
	}
	if _, err := o.CollectLocation(context.Background(), "  "); !errors.Is(err, types.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

// --- scheduler ---

func TestNextDaily(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		at   string
		want time.Time
	}{
		{"00:00", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
		{"12:15", time.Date(2024, 5, 1, 12, 15, 0, 0, time.UTC)},
		{"10:30", time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := NextDaily(base, tt.at)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("NextDaily(%s) = %v, want %v", tt.at, got, tt.want)
		}
	}
	if _, err := NextDaily(base, "25:99"); err == nil {
		t.Error("expected parse error")
	}
}

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(context.Context) (*types.ScrapeRun, error) {
	r.started <- struct{}{}
	<-r.release
	return &types.ScrapeRun{ID: "run", Status: types.RunCompleted}, nil
}

func TestSchedulerNeverOverlaps(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewScheduler(r, config.ScheduleConfig{Interval: time.Hour}, testLogger)

	done := make(chan bool)
	go func() { done <- s.Trigger(context.Background(), "interval") }()
	<-r.started

	if s.Trigger(context.Background(), "daily") {
		t.Error("second trigger must be skipped while a run is active")
	}
	close(r.release)
	if !<-done {
		t.Error("first trigger should have run")
	}
	if s.Skipped() != 1 {
		t.Errorf("skipped = %d", s.Skipped())
	}
}

type countingRunner struct {
	ran chan struct{}
}

func (r *countingRunner) Run(context.Context) (*types.ScrapeRun, error) {
	r.ran <- struct{}{}
	return &types.ScrapeRun{ID: "run", Status: types.RunCompleted}, nil
}

func TestSchedulerRunsOnStart(t *testing.T) {
	r := &countingRunner{ran: make(chan struct{}, 4)}
	s := NewScheduler(r, config.ScheduleConfig{Interval: time.Hour, DailyAt: "00:00"}, testLogger)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-r.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not run on start")
	}
	s.Stop()

	bad := NewScheduler(r, config.ScheduleConfig{}, testLogger)
	if err := bad.Start(context.Background()); err == nil {
		t.Error("expected error for zero interval")
	}
}
