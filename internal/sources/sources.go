// Package sources turns configured source descriptors into raw candidate
// documents. Each fetch strategy (feed, rendered website, news search API)
// implements Fetcher; Router classifies a descriptor and dispatches it.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/fetcher"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Fetcher produces candidates for one source. An error means the source
// could not be reached or read at all; an empty slice is a normal outcome.
type Fetcher interface {
	Fetch(ctx context.Context, src types.SourceDescriptor) ([]types.Candidate, error)
}

// Router dispatches each source to the strategy its classification selects.
type Router struct {
	classifier *Classifier
	fetchers   map[types.SourceKind]Fetcher
	logger     *slog.Logger
}

// NewRouter creates a Router. A nil strategy leaves that kind unsupported.
func NewRouter(classifier *Classifier, logger *slog.Logger, rss, website, api Fetcher) *Router {
	r := &Router{
		classifier: classifier,
		fetchers:   make(map[types.SourceKind]Fetcher),
		logger:     logger.With("component", "source_router"),
	}
	if rss != nil {
		r.fetchers[types.SourceRSS] = rss
	}
	if website != nil {
		r.fetchers[types.SourceWebsite] = website
	}
	if api != nil {
		r.fetchers[types.SourceAPI] = api
	}
	return r
}

// Fetch classifies src and runs the matching strategy.
func (r *Router) Fetch(ctx context.Context, src types.SourceDescriptor) ([]types.Candidate, error) {
	kind := r.classifier.Classify(ctx, src.URL)
	f, ok := r.fetchers[kind]
	if !ok {
		return nil, fmt.Errorf("no fetcher for %s source %q", kind, src.URL)
	}
	r.logger.Debug("source classified", "source", src.Name, "kind", kind)
	return f.Fetch(ctx, src)
}

// get issues one browser-like GET through the shared HTTP fetcher.
func get(ctx context.Context, f fetcher.Fetcher, rawURL, purpose string, timeout time.Duration, retries int, headers map[string]string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Purpose = purpose
	req.Timeout = timeout
	req.MaxRetries = retries
	for k, v := range headers {
		req.Headers.Set(k, v)
	}
	return fetcher.FetchWithRetry(ctx, f, req, time.Second)
}

func baseCandidate(src types.SourceDescriptor) types.Candidate {
	return types.Candidate{
		SourceName:      src.Name,
		DefaultLocation: src.Location,
		CategoryHint:    src.Category,
	}
}
