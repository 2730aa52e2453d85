package geo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Resolver turns location text into a GeoPoint. Each Resolver owns its cache
// and rate limiter, so separate resolvers never wait on each other.
type Resolver struct {
	provider Provider
	limiter  *rate.Limiter
	bias     *Bias
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]types.GeoPoint

	cacheHits atomic.Int64
	calls     atomic.Int64
}

// NewResolver uses the first non-nil provider for every call. A nil bias
// disables query rewriting and region preference.
func NewResolver(bias *Bias, logger *slog.Logger, providers ...Provider) *Resolver {
	r := &Resolver{
		bias:   bias,
		logger: logger.With("component", "geo_resolver"),
		cache:  make(map[string]types.GeoPoint),
	}
	if r.bias == nil {
		r.bias = &Bias{}
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.provider = p
		r.limiter = newLimiter(p)
		break
	}
	if r.provider != nil {
		r.logger.Info("geocoding provider selected", "provider", r.provider.Name(), "min_interval", r.provider.MinInterval())
	} else {
		r.logger.Warn("no geocoding provider configured")
	}
	return r
}

func newLimiter(p Provider) *rate.Limiter {
	if p.MinInterval() <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.MinInterval()), 1)
}

// Resolve geocodes text. Every failure, including an empty input, yields an
// error wrapping types.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, text string) (types.GeoPoint, error) {
	key := normalizeKey(text)
	if key == "" {
		return types.GeoPoint{}, fmt.Errorf("%w: empty location", types.ErrNotFound)
	}
	if p, ok := r.lookup(key); ok {
		return p, nil
	}

	query, biased := r.bias.Apply(text)
	queryKey := normalizeKey(query)
	if biased {
		if p, ok := r.lookup(queryKey); ok {
			return p, nil
		}
	}

	if r.provider == nil {
		return types.GeoPoint{}, fmt.Errorf("%w: %v", types.ErrNotFound, types.ErrNoProvider)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return types.GeoPoint{}, fmt.Errorf("%w: %v", types.ErrNotFound, err)
	}

	r.calls.Add(1)
	cands, err := r.provider.Geocode(ctx, query)
	if err != nil {
		r.logger.Warn("geocoding failed", "query", query, "error", err)
		return types.GeoPoint{}, fmt.Errorf("%w: %q", types.ErrNotFound, text)
	}
	cands = validCandidates(cands)
	if len(cands) == 0 {
		r.logger.Debug("no geocoding results", "query", query)
		return types.GeoPoint{}, fmt.Errorf("%w: %q", types.ErrNotFound, text)
	}

	point := r.bias.Prefer(cands).Point()
	r.store(point, key, queryKey, r.bias.Strip(key))
	r.logger.Debug("geocoded", "query", query, "lat", point.Latitude, "lng", point.Longitude, "region", point.Region)
	return point, nil
}

// Reverse describes the place at p using the same provider.
func (r *Resolver) Reverse(ctx context.Context, p types.GeoPoint) (string, error) {
	if r.provider == nil {
		return "", fmt.Errorf("%w: %v", types.ErrNotFound, types.ErrNoProvider)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrNotFound, err)
	}
	r.calls.Add(1)
	desc, err := r.provider.Reverse(ctx, p.Latitude, p.Longitude)
	if err != nil || desc == "" {
		r.logger.Warn("reverse geocoding failed", "point", p.String(), "error", err)
		return "", fmt.Errorf("%w: %s", types.ErrNotFound, p)
	}
	return desc, nil
}

// Provider returns the name of the selected provider, or "".
func (r *Resolver) Provider() string {
	if r.provider == nil {
		return ""
	}
	return r.provider.Name()
}

// CacheHits returns how many lookups were answered from the cache.
func (r *Resolver) CacheHits() int64 { return r.cacheHits.Load() }

// ProviderCalls returns how many requests were sent to the provider.
func (r *Resolver) ProviderCalls() int64 { return r.calls.Load() }

func (r *Resolver) lookup(key string) (types.GeoPoint, bool) {
	r.mu.RLock()
	p, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		r.cacheHits.Add(1)
	}
	return p, ok
}

func (r *Resolver) store(p types.GeoPoint, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if k != "" {
			r.cache[k] = p
		}
	}
}

func validCandidates(cands []types.GeoCandidate) []types.GeoCandidate {
	out := cands[:0:0]
	for _, c := range cands {
		if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
			continue
		}
		if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(a, b types.GeoPoint) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Latitude - a.Latitude)
	dLng := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
