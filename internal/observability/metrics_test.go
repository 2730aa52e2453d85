package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.RecordsStored.Add(3)
	m.CountExtraction(types.ExtractionResult{Method: types.MethodBasic})
	m.CountExtraction(types.ExtractionResult{Method: types.MethodFailed})
	m.Register("newscatcher_geocode_cache_hits_total", "Geocoder cache hits", func() int64 { return 7 })

	srv := httptest.NewServer(m.Handler("/metrics"))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	for _, want := range []string{
		"newscatcher_records_stored_total 3",
		"newscatcher_extract_basic_total 1",
		"newscatcher_extract_failed_total 1",
		"# TYPE newscatcher_geocode_cache_hits_total counter",
		"newscatcher_geocode_cache_hits_total 7",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}

	resp, err = srv.Client().Get(srv.URL + "/health")
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("health: %v %v", resp, err)
	}
	resp.Body.Close()
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.SourcesFailed.Add(2)
	m.Register("newscatcher_bytes_downloaded_total", "Bytes downloaded", func() int64 { return 512 })

	snap := m.Snapshot()
	if snap["sources_failed"] != 2 {
		t.Errorf("sources_failed = %d", snap["sources_failed"])
	}
	if snap["bytes_downloaded"] != 512 {
		t.Errorf("bytes_downloaded = %d", snap["bytes_downloaded"])
	}
}
