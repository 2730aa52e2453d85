// Package geo resolves free-text locations to coordinates through a single
// configured geocoding provider, with a per-resolver cache, regional bias and
// rate limiting.
package geo

import (
	"context"
	"net/http"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Provider is a geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) ([]types.GeoCandidate, error)
	Reverse(ctx context.Context, lat, lng float64) (string, error)

	// MinInterval is the minimum spacing between two calls to this provider.
	MinInterval() time.Duration
}

// ProvidersFromConfig returns the configured providers in priority order:
// Google when an API key is present, then Nominatim.
func ProvidersFromConfig(cfg config.GeoConfig) []Provider {
	client := &http.Client{Timeout: cfg.Timeout}
	var providers []Provider
	if cfg.GoogleAPIKey != "" {
		providers = append(providers, NewGoogleProvider(cfg.GoogleEndpoint, cfg.GoogleAPIKey, cfg.GoogleInterval, client))
	}
	if cfg.NominatimEndpoint != "" {
		providers = append(providers, NewNominatimProvider(cfg.NominatimEndpoint, cfg.NominatimUserAgent, cfg.NominatimInterval, client))
	}
	return providers
}
