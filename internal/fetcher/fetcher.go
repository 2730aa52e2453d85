package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Fetcher is the interface for plain request fetchers.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// FetchWithRetry calls f until it succeeds, the error is not retryable, or
// req.MaxRetries is exhausted. Rate-limited responses wait for their Retry-After.
func FetchWithRetry(ctx context.Context, f Fetcher, req *types.Request, delay time.Duration) (*types.Response, error) {
	for {
		resp, err := f.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.IsRetryable() || req.RetryCount >= req.MaxRetries {
			return nil, err
		}
		req.RetryCount++

		wait := RandomDelay(delay)
		if fe.RetryAfter > 0 {
			wait = fe.RetryAfter
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}
