package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Request is a single outbound fetch issued by a source fetcher or a probe.
type Request struct {
	URL     *url.URL
	Method  string
	Headers http.Header

	// Timeout overrides the fetcher's default timeout when non-zero.
	Timeout time.Duration

	MaxRetries int
	RetryCount int

	// Purpose tags the request for logs and metrics ("feed", "probe", "api", "geocode").
	Purpose string

	CreatedAt time.Time
	ID        string
}

// NewRequest parses rawURL and returns a GET request with default retry settings.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w %q: unsupported scheme", ErrInvalidURL, rawURL)
	}
	return &Request{
		URL:        u,
		Method:     http.MethodGet,
		Headers:    make(http.Header),
		MaxRetries: 2,
		CreatedAt:  time.Now(),
		ID:         uuid.NewString(),
	}, nil
}

// URLString returns the request URL as a string.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
