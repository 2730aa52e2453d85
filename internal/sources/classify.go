package sources

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/fetcher"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

var feedURLPattern = regexp.MustCompile(`(?i)\.(rss|xml|feed)($|\?)`)

// Classifier decides which fetch strategy serves a source URL.
type Classifier struct {
	client  fetcher.Fetcher
	apiHost string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClassifier creates a Classifier that probes through client.
func NewClassifier(client fetcher.Fetcher, cfg *config.Config, logger *slog.Logger) *Classifier {
	host := ""
	if u, err := url.Parse(cfg.NewsAPI.Endpoint); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	return &Classifier{
		client:  client,
		apiHost: host,
		timeout: cfg.Scrape.ProbeTimeout,
		logger:  logger.With("component", "classifier"),
	}
}

// Classify returns SourceAPI for the news search host, SourceRSS for URLs or
// probe responses that look like feeds, and SourceWebsite otherwise.
// Probe failures fall through to SourceWebsite.
func (c *Classifier) Classify(ctx context.Context, rawURL string) types.SourceKind {
	if c.isAPI(rawURL) {
		return types.SourceAPI
	}
	if feedURLPattern.MatchString(rawURL) {
		return types.SourceRSS
	}
	if c.client == nil {
		return types.SourceWebsite
	}

	resp, err := get(ctx, c.client, rawURL, "probe", c.timeout, 0, nil)
	if err != nil {
		c.logger.Debug("probe failed, treating as website", "url", rawURL, "error", err)
		return types.SourceWebsite
	}
	if resp.LooksLikeFeed() {
		return types.SourceRSS
	}
	return types.SourceWebsite
}

func (c *Classifier) isAPI(rawURL string) bool {
	if c.apiHost == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == c.apiHost || strings.TrimPrefix(host, "www.") == c.apiHost
}
