package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/fetcher"
	"github.com/IshaanNene/NewsCatcher/internal/parser"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// RSSFetcher reads RSS and Atom feeds.
type RSSFetcher struct {
	client     fetcher.Fetcher
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	maxEntries int
	logger     *slog.Logger
}

// NewRSSFetcher creates an RSSFetcher. client serves the browser-like retry
// when the direct parse yields nothing.
func NewRSSFetcher(client fetcher.Fetcher, cfg *config.Config, logger *slog.Logger) *RSSFetcher {
	ua := ""
	if len(cfg.Scrape.UserAgents) > 0 {
		ua = cfg.Scrape.UserAgents[0]
	}
	return &RSSFetcher{
		client:     client,
		httpClient: &http.Client{Timeout: cfg.Scrape.RequestTimeout},
		userAgent:  ua,
		timeout:    cfg.Scrape.RequestTimeout,
		maxEntries: cfg.Scrape.MaxFeedEntries,
		logger:     logger.With("component", "rss_fetcher"),
	}
}

// Fetch parses the feed at src.URL and returns one candidate per entry,
// capped at the configured entry limit.
func (f *RSSFetcher) Fetch(ctx context.Context, src types.SourceDescriptor) ([]types.Candidate, error) {
	feed, err := f.ParseFeed(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	if feed == nil || len(feed.Items) == 0 {
		f.logger.Warn("no entries in feed", "url", src.URL)
		return nil, nil
	}

	items := feed.Items
	if f.maxEntries > 0 && len(items) > f.maxEntries {
		items = items[:f.maxEntries]
	}

	candidates := make([]types.Candidate, 0, len(items))
	for _, item := range items {
		c := baseCandidate(src)
		c.URL = strings.TrimSpace(item.Link)
		c.Title = strings.TrimSpace(item.Title)
		c.Text = EntryText(item)
		c.Published = EntryTime(item)
		candidates = append(candidates, c)
	}
	f.logger.Info("feed parsed", "url", src.URL, "entries", len(feed.Items), "candidates", len(candidates))
	return candidates, nil
}

// ParseFeed parses the feed at rawURL directly. When that fails or yields no
// entries it fetches the bytes once with browser-like headers and parses
// them. A non-2xx answer to the second attempt yields a nil feed.
func (f *RSSFetcher) ParseFeed(ctx context.Context, rawURL string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = f.userAgent
	fp.Client = f.httpClient

	feed, err := fp.ParseURLWithContext(rawURL, ctx)
	if err == nil && len(feed.Items) > 0 {
		return feed, nil
	}
	f.logger.Warn("direct feed parse found no entries, retrying with browser request", "url", rawURL, "error", err)

	if f.client == nil {
		if err != nil {
			return nil, &types.ParseError{URL: rawURL, Stage: "feed", Err: err}
		}
		return feed, nil
	}

	resp, ferr := get(ctx, f.client, rawURL, "feed", f.timeout, 0, nil)
	if ferr != nil {
		return nil, fmt.Errorf("fetch feed: %w", ferr)
	}
	if !resp.IsSuccess() {
		f.logger.Error("failed to fetch feed", "url", rawURL, "status", resp.StatusCode)
		return nil, nil
	}

	feed, err = gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &types.ParseError{URL: rawURL, Stage: "feed", Err: err}
	}
	return feed, nil
}

// EntryText assembles the extractor input for a feed entry: title, summary
// and body, separated by blank lines, with markup removed. The body is the
// entry content, else its description.
func EntryText(item *gofeed.Item) string {
	summary := parser.StripMarkup(item.Description)
	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}
	return strings.TrimSpace(item.Title) + "\n\n" + summary + "\n\n" + parser.StripMarkup(content)
}

// EntryTime returns the entry's publication time, or zero when unknown.
func EntryTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if t, ok := parser.ParseDate(item.Published); ok {
		return t
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}
