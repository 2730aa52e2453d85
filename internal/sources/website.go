package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/fetcher"
	"github.com/IshaanNene/NewsCatcher/internal/parser"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// ContextFactory hands out isolated browsing contexts. fetcher.Browser
// implements it with one incognito context per call.
type ContextFactory interface {
	NewContext(ctx context.Context) (fetcher.PageContext, error)
}

// WebsiteFetcher crawls a rendered listing page and the articles it links to.
type WebsiteFetcher struct {
	browser     ContextFactory
	robots      *fetcher.RobotsChecker
	maxArticles int
	minLine     int
	logger      *slog.Logger
}

// NewWebsiteFetcher creates a WebsiteFetcher. robots may be nil.
func NewWebsiteFetcher(browser ContextFactory, robots *fetcher.RobotsChecker, cfg *config.Config, logger *slog.Logger) *WebsiteFetcher {
	return &WebsiteFetcher{
		browser:     browser,
		robots:      robots,
		maxArticles: cfg.Scrape.MaxArticles,
		minLine:     cfg.Scrape.MinLineLength,
		logger:      logger.With("component", "website_fetcher"),
	}
}

// Fetch renders src.URL in a fresh context, follows up to the configured
// number of article links and returns one candidate per readable article.
// The context is closed on every return path.
func (w *WebsiteFetcher) Fetch(ctx context.Context, src types.SourceDescriptor) ([]types.Candidate, error) {
	if !w.robots.Allowed(ctx, src.URL) {
		w.logger.Warn("listing page disallowed by robots.txt", "url", src.URL)
		return nil, nil
	}

	page, err := w.browser.NewContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browsing context: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			w.logger.Debug("close browsing context", "source", src.Name, "error", cerr)
		}
	}()

	listing, err := page.Render(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("load listing page: %w", err)
	}
	doc, err := listing.Document()
	if err != nil {
		return nil, &types.ParseError{URL: src.URL, Stage: "listing", Err: err}
	}

	links := parser.ArticleLinks(doc, listing.FinalURL, w.minLine, w.maxArticles)
	w.logger.Info("article links found", "source", src.Name, "links", len(links))

	var candidates []types.Candidate
	for _, link := range links {
		if ctx.Err() != nil {
			return candidates, ctx.Err()
		}
		if !w.robots.Allowed(ctx, link) {
			w.logger.Debug("article disallowed by robots.txt", "url", link)
			continue
		}
		c, err := w.article(ctx, page, link)
		if err != nil {
			w.logger.Warn("error processing article", "url", link, "error", err)
			continue
		}
		if c.Text == "" {
			w.logger.Debug("article has no readable text", "url", link)
			continue
		}
		base := baseCandidate(src)
		c.SourceName, c.DefaultLocation, c.CategoryHint = base.SourceName, base.DefaultLocation, base.CategoryHint
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (w *WebsiteFetcher) article(ctx context.Context, page fetcher.PageContext, link string) (types.Candidate, error) {
	resp, err := page.Render(ctx, link)
	if err != nil {
		return types.Candidate{}, err
	}
	doc, err := resp.Document()
	if err != nil {
		return types.Candidate{}, &types.ParseError{URL: link, Stage: "article", Err: err}
	}

	text := parser.ContainerText(doc)
	if text == "" {
		text, err = parser.BodyText(resp.Body, w.minLine, parser.BoilerplateMarkers)
		if err != nil {
			return types.Candidate{}, &types.ParseError{URL: link, Stage: "body_text", Err: err}
		}
	}

	return types.Candidate{
		Text:      text,
		URL:       link,
		Title:     parser.ArticleTitle(string(resp.Body)),
		Published: resp.FetchedAt,
	}, nil
}
