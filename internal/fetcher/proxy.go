package fetcher

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/IshaanNene/NewsCatcher/internal/config"
)

// ProxyManager rotates outbound proxies for feed and API requests.
type ProxyManager struct {
	mu       sync.RWMutex
	proxies  []*proxyEntry
	rotation string
	index    atomic.Int64
	logger   *slog.Logger
}

type proxyEntry struct {
	URL     *url.URL
	Healthy bool
	LastErr error
}

// NewProxyManager creates a ProxyManager from configuration, skipping unparsable URLs.
func NewProxyManager(cfg *config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	pm := &ProxyManager{
		proxies:  make([]*proxyEntry, 0, len(cfg.URLs)),
		rotation: cfg.Rotation,
		logger:   logger.With("component", "proxy_manager"),
	}
	for _, rawURL := range cfg.URLs {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			pm.logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
			continue
		}
		pm.proxies = append(pm.proxies, &proxyEntry{URL: u, Healthy: true})
	}
	pm.logger.Info("proxy manager initialized", "count", len(pm.proxies), "rotation", cfg.Rotation)
	return pm
}

type proxyKey struct{}

// withProxy pins the proxy used for one request.
func withProxy(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, proxyKey{}, u)
}

// ProxyFunc returns an http.Transport-compatible proxy function. It uses the
// proxy pinned on the request context, so a failure can be attributed to it.
func (pm *ProxyManager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(r *http.Request) (*url.URL, error) {
		if u, ok := r.Context().Value(proxyKey{}).(*url.URL); ok {
			return u, nil
		}
		return pm.Next(), nil
	}
}

// Next returns the next healthy proxy, or nil for a direct connection.
func (pm *ProxyManager) Next() *url.URL {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	healthy := make([]*proxyEntry, 0, len(pm.proxies))
	for _, p := range pm.proxies {
		if p.Healthy {
			healthy = append(healthy, p)
		}
	}
	if len(healthy) == 0 {
		return nil
	}
	if pm.rotation == "random" {
		return healthy[rand.Intn(len(healthy))].URL
	}
	idx := pm.index.Add(1) % int64(len(healthy))
	return healthy[idx].URL
}

// MarkFailed takes a proxy out of rotation. When every proxy has failed,
// requests go out directly until one is marked healthy again.
func (pm *ProxyManager) MarkFailed(proxyURL *url.URL, err error) {
	if proxyURL == nil {
		return
	}
	pm.setHealth(proxyURL, false, err)
	pm.logger.Warn("proxy marked unhealthy", "proxy", proxyURL.Host, "error", err)
}

// MarkHealthy returns a proxy to rotation.
func (pm *ProxyManager) MarkHealthy(proxyURL *url.URL) {
	if proxyURL == nil {
		return
	}
	pm.setHealth(proxyURL, true, nil)
}

func (pm *ProxyManager) setHealth(proxyURL *url.URL, healthy bool, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, p := range pm.proxies {
		if p.URL.String() == proxyURL.String() {
			p.Healthy = healthy
			p.LastErr = err
			return
		}
	}
}

// Healthy returns the number of proxies still in rotation.
func (pm *ProxyManager) Healthy() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	n := 0
	for _, p := range pm.proxies {
		if p.Healthy {
			n++
		}
	}
	return n
}

// Count returns the total number of proxies.
func (pm *ProxyManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.proxies)
}
