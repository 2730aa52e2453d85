package geo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeProvider struct {
	mu       sync.Mutex
	queries  []string
	results  map[string][]types.GeoCandidate
	fallback []types.GeoCandidate
	err      error
	interval time.Duration
}

func (f *fakeProvider) Name() string               { return "fake" }
func (f *fakeProvider) MinInterval() time.Duration { return f.interval }

func (f *fakeProvider) Geocode(_ context.Context, q string) ([]types.GeoCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[q]; ok {
		return r, nil
	}
	return f.fallback, nil
}

func (f *fakeProvider) Reverse(context.Context, float64, float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Huntington, Suffolk County, New York", nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

var huntington = types.GeoCandidate{Latitude: 40.8682, Longitude: -73.4257, AdminRegion: []string{"NY", "New York"}}

func newTestResolver(p Provider) *Resolver {
	return NewResolver(NewBias(config.DefaultConfig().Region), testLogger, p)
}

func TestResolveEmptyInputSkipsProvider(t *testing.T) {
	p := &fakeProvider{fallback: []types.GeoCandidate{huntington}}
	r := newTestResolver(p)

	for _, in := range []string{"", "   ", "\t\n"} {
		if _, err := r.Resolve(context.Background(), in); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrNotFound", in, err)
		}
	}
	if p.calls() != 0 {
		t.Errorf("provider called %d times", p.calls())
	}
}

func TestResolveCachesNormalizedInput(t *testing.T) {
	p := &fakeProvider{fallback: []types.GeoCandidate{huntington}}
	r := newTestResolver(p)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "Main Street Park")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(ctx, "  main   STREET park ")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("cached point differs: %v vs %v", first, second)
	}
	if p.calls() != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls())
	}
	if r.CacheHits() != 1 || r.ProviderCalls() != 1 {
		t.Errorf("hits=%d calls=%d", r.CacheHits(), r.ProviderCalls())
	}
}

func TestResolveBiasesAmbiguousQueries(t *testing.T) {
	tests := []struct {
		in        string
		wantQuery string
	}{
		{"Main Street Park", "Main Street Park, NY"},
		{"Heckscher Park, Huntington, NY", "Heckscher Park, Huntington, NY"},
		{"Springfield, IL", "Springfield, IL"},
		{"Centerport", "Centerport"},
		{"Suffolk County courthouse", "Suffolk County courthouse"},
	}
	for _, tt := range tests {
		p := &fakeProvider{fallback: []types.GeoCandidate{huntington}}
		if _, err := newTestResolver(p).Resolve(context.Background(), tt.in); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if p.queries[0] != tt.wantQuery {
			t.Errorf("query for %q = %q, want %q", tt.in, p.queries[0], tt.wantQuery)
		}
	}
}

func TestResolveCachesStrippedVariant(t *testing.T) {
	p := &fakeProvider{fallback: []types.GeoCandidate{huntington}}
	r := newTestResolver(p)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "Town Hall, NY"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(ctx, "Town Hall"); err != nil {
		t.Fatal(err)
	}
	if p.calls() != 1 {
		t.Errorf("stripped variant missed cache: %v", p.queries)
	}
}

func TestResolvePrefersTargetRegion(t *testing.T) {
	wv := types.GeoCandidate{Latitude: 38.4192, Longitude: -82.4452, AdminRegion: []string{"WV", "West Virginia"}}
	p := &fakeProvider{fallback: []types.GeoCandidate{wv, huntington}}

	got, err := newTestResolver(p).Resolve(context.Background(), "Huntington")
	if err != nil {
		t.Fatal(err)
	}
	if got.Latitude != huntington.Latitude || got.Region != "NY" {
		t.Errorf("got %v, want the New York candidate", got)
	}

	p2 := &fakeProvider{fallback: []types.GeoCandidate{wv}}
	got, _ = newTestResolver(p2).Resolve(context.Background(), "Huntington")
	if got.Latitude != wv.Latitude {
		t.Errorf("expected first candidate when none match, got %v", got)
	}
}

func TestResolveProviderFailureIsNotFound(t *testing.T) {
	for name, p := range map[string]*fakeProvider{
		"error": {err: &types.ProviderError{Provider: "fake", Op: "geocode", Err: errors.New("boom")}},
		"empty": {},
		"invalid": {fallback: []types.GeoCandidate{{Latitude: 123, Longitude: 0}}},
	} {
		_, err := newTestResolver(p).Resolve(context.Background(), "Somewhere")
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestResolveWithoutProvider(t *testing.T) {
	r := NewResolver(nil, testLogger, nil)
	if _, err := r.Resolve(context.Background(), "Huntington"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if r.Provider() != "" {
		t.Errorf("provider = %q", r.Provider())
	}
}

func TestResolveUsesFirstNonNilProvider(t *testing.T) {
	second := &fakeProvider{fallback: []types.GeoCandidate{huntington}}
	third := &fakeProvider{fallback: []types.GeoCandidate{huntington}}
	r := NewResolver(nil, testLogger, nil, second, third)
	if _, err := r.Resolve(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if second.calls() != 1 || third.calls() != 0 {
		t.Errorf("calls second=%d third=%d", second.calls(), third.calls())
	}
}

func TestRateLimitSpacesCalls(t *testing.T) {
	interval := 80 * time.Millisecond
	p := &fakeProvider{fallback: []types.GeoCandidate{huntington}, interval: interval}
	r := newTestResolver(p)
	ctx := context.Background()

	start := time.Now()
	for _, q := range []string{"alpha", "beta", "gamma"} {
		if _, err := r.Resolve(ctx, q); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 2*interval-10*time.Millisecond {
		t.Errorf("three calls finished in %s, expected at least %s", elapsed, 2*interval)
	}

	// A cache hit never waits.
	start = time.Now()
	if _, err := r.Resolve(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > interval/2 {
		t.Error("cache hit waited on the rate limiter")
	}
}

func TestResolversDoNotShareLimiters(t *testing.T) {
	interval := 300 * time.Millisecond
	a := newTestResolver(&fakeProvider{fallback: []types.GeoCandidate{huntington}, interval: interval})
	b := newTestResolver(&fakeProvider{fallback: []types.GeoCandidate{huntington}, interval: interval})

	start := time.Now()
	a.Resolve(context.Background(), "alpha")
	b.Resolve(context.Background(), "alpha")
	if time.Since(start) > interval/2 {
		t.Error("independent resolvers were serialized")
	}
}

func TestReverse(t *testing.T) {
	r := newTestResolver(&fakeProvider{})
	desc, err := r.Reverse(context.Background(), types.GeoPoint{Latitude: 40.87, Longitude: -73.43})
	if err != nil || !strings.Contains(desc, "Huntington") {
		t.Errorf("Reverse = %q, %v", desc, err)
	}

	failing := newTestResolver(&fakeProvider{err: errors.New("down")})
	if _, err := failing.Reverse(context.Background(), types.GeoPoint{}); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestHaversine(t *testing.T) {
	huntingtonNY := types.GeoPoint{Latitude: 40.8682, Longitude: -73.4257}
	northport := types.GeoPoint{Latitude: 40.9009, Longitude: -73.3432}
	d := HaversineKm(huntingtonNY, northport)
	if d < 6 || d > 9 {
		t.Errorf("distance = %.2f km", d)
	}
}
