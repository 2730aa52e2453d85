package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Metrics tracks operational metrics for the ingestion pipeline.
type Metrics struct {
	// Run metrics
	RunsStarted   atomic.Int64
	RunsCompleted atomic.Int64
	RunsDegraded  atomic.Int64

	// Source metrics
	SourcesOK     atomic.Int64
	SourcesFailed atomic.Int64

	// Record metrics
	Candidates        atomic.Int64
	RecordsStored     atomic.Int64
	RecordsDropped    atomic.Int64
	RecordsDuplicate  atomic.Int64
	RecordsExcluded   atomic.Int64
	RecordsUngeocoded atomic.Int64

	// Extraction metrics, by path
	ExtractProvider  atomic.Int64
	ExtractHeuristic atomic.Int64
	ExtractBasic     atomic.Int64
	ExtractFailed    atomic.Int64

	mu     sync.RWMutex
	probes map[string]probe

	logger *slog.Logger
}

// probe is a counter owned by another component and read at scrape time.
type probe struct {
	help string
	read func() int64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		probes: make(map[string]probe),
		logger: logger.With("component", "metrics"),
	}
}

// Register exposes a counter owned elsewhere, such as geocoder cache hits.
func (m *Metrics) Register(name, help string, read func() int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = probe{help: help, read: read}
}

// CountExtraction increments the counter for the path that produced res.
func (m *Metrics) CountExtraction(res types.ExtractionResult) {
	switch res.Method {
	case types.MethodProvider:
		m.ExtractProvider.Add(1)
	case types.MethodHeuristic:
		m.ExtractHeuristic.Add(1)
	case types.MethodBasic:
		m.ExtractBasic.Add(1)
	default:
		m.ExtractFailed.Add(1)
	}
}

type metric struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) collect() []metric {
	out := []metric{
		{"newscatcher_runs_started_total", "Total scrape runs started", m.RunsStarted.Load()},
		{"newscatcher_runs_completed_total", "Total scrape runs completed without errors", m.RunsCompleted.Load()},
		{"newscatcher_runs_degraded_total", "Total scrape runs completed with errors", m.RunsDegraded.Load()},
		{"newscatcher_sources_ok_total", "Total sources processed successfully", m.SourcesOK.Load()},
		{"newscatcher_sources_failed_total", "Total sources that failed", m.SourcesFailed.Load()},
		{"newscatcher_candidates_total", "Total candidate documents fetched", m.Candidates.Load()},
		{"newscatcher_records_stored_total", "Total records persisted", m.RecordsStored.Load()},
		{"newscatcher_records_dropped_total", "Total records dropped by normalization", m.RecordsDropped.Load()},
		{"newscatcher_records_duplicate_total", "Total records rejected as duplicates", m.RecordsDuplicate.Load()},
		{"newscatcher_records_excluded_total", "Total records excluded by extraction", m.RecordsExcluded.Load()},
		{"newscatcher_records_ungeocoded_total", "Total records without resolvable location", m.RecordsUngeocoded.Load()},
		{"newscatcher_extract_provider_total", "Extractions answered by a provider", m.ExtractProvider.Load()},
		{"newscatcher_extract_heuristic_total", "Extractions parsed by the line-prefix heuristic", m.ExtractHeuristic.Load()},
		{"newscatcher_extract_basic_total", "Extractions without a provider", m.ExtractBasic.Load()},
		{"newscatcher_extract_failed_total", "Extractions that failed", m.ExtractFailed.Load()},
	}

	m.mu.RLock()
	names := make([]string, 0, len(m.probes))
	for name := range m.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := m.probes[name]
		out = append(out, metric{name, p.help, p.read()})
	}
	m.mu.RUnlock()
	return out
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.collect() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Handler returns the mux serving metrics at path and a liveness probe at /health.
func (m *Metrics) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(path),
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}

// Snapshot returns all metrics as a map keyed without the newscatcher_ prefix and _total suffix.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, metric := range m.collect() {
		name := strings.TrimSuffix(strings.TrimPrefix(metric.name, "newscatcher_"), "_total")
		out[name] = metric.value
	}
	return out
}
