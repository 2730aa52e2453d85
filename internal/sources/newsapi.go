package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/fetcher"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Article is one result from the news search API.
type Article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

type everythingResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// NewsAPIClient queries the /v2/everything search endpoint.
type NewsAPIClient struct {
	client  fetcher.Fetcher
	cfg     config.NewsAPIConfig
	region  config.RegionConfig
	timeout time.Duration
	include *regexp.Regexp
	logger  *slog.Logger

	now func() time.Time
}

// NewNewsAPIClient creates a NewsAPIClient.
func NewNewsAPIClient(client fetcher.Fetcher, cfg *config.Config, logger *slog.Logger) *NewsAPIClient {
	c := &NewsAPIClient{
		client:  client,
		cfg:     cfg.NewsAPI,
		region:  cfg.Region,
		timeout: cfg.Scrape.RequestTimeout,
		logger:  logger.With("component", "newsapi"),
		now:     time.Now,
	}
	if len(cfg.NewsAPI.IncludeTerms) > 0 {
		quoted := make([]string, len(cfg.NewsAPI.IncludeTerms))
		for i, t := range cfg.NewsAPI.IncludeTerms {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(t))
		}
		c.include = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	if c.cfg.APIKey == "" {
		c.logger.Warn("news search API key not configured")
	}
	return c
}

// Configured reports whether an API key is present.
func (c *NewsAPIClient) Configured() bool { return c.cfg.APIKey != "" }

func (c *NewsAPIClient) isRegion(location string) bool {
	return strings.EqualFold(strings.TrimSpace(location), c.region.Name)
}

// BuildQuery renders the boolean search expression for location. The target
// region gets its quoted name variants OR'd and ANDed with the local-interest
// keywords; any other location is paired with generic community terms.
func (c *NewsAPIClient) BuildQuery(location string) string {
	if !c.isRegion(location) || len(c.cfg.QueryVariants) == 0 {
		return location + " AND (local OR community OR neighborhood)"
	}
	quoted := make([]string, len(c.cfg.QueryVariants))
	for i, v := range c.cfg.QueryVariants {
		quoted[i] = `"` + v + `"`
	}
	q := strings.Join(quoted, " OR ")
	if len(c.cfg.Keywords) > 0 {
		q += " AND (" + strings.Join(c.cfg.Keywords, " OR ") + ")"
	}
	return q
}

// Everything runs the search for location and returns the filtered articles.
func (c *NewsAPIClient) Everything(ctx context.Context, location string) ([]Article, error) {
	if !c.Configured() {
		return nil, &types.ProviderError{Provider: "newsapi", Op: "everything", Err: types.ErrNoProvider}
	}

	end := c.now()
	start := end.AddDate(0, 0, -c.cfg.DaysBack)
	params := url.Values{}
	params.Set("q", c.BuildQuery(location))
	params.Set("from", start.Format("2006-01-02"))
	params.Set("to", end.Format("2006-01-02"))
	params.Set("language", c.cfg.Language)
	params.Set("sortBy", c.cfg.SortBy)
	params.Set("pageSize", fmt.Sprint(c.cfg.PageSize))
	endpoint := strings.TrimRight(c.cfg.Endpoint, "/") + "/v2/everything?" + params.Encode()

	resp, err := get(ctx, c.client, endpoint, "api", c.timeout, 1, map[string]string{
		"X-Api-Key": c.cfg.APIKey,
		"Accept":    "application/json",
	})
	if err != nil {
		return nil, &types.ProviderError{Provider: "newsapi", Op: "everything", Err: err}
	}

	var body everythingResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		if !resp.IsSuccess() {
			return nil, &types.ProviderError{Provider: "newsapi", Op: "everything", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
		}
		return nil, &types.ParseError{URL: c.cfg.Endpoint, Stage: "newsapi", Err: err}
	}
	if body.Status != "ok" {
		msg := body.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, &types.ProviderError{Provider: "newsapi", Op: "everything", Err: fmt.Errorf("%s: %s", body.Code, msg)}
	}

	c.logger.Info("articles fetched", "location", location, "articles", len(body.Articles))
	articles := c.Filter(location, body.Articles)
	if c.isRegion(location) {
		c.logger.Info("articles filtered to region", "region", c.region.Name, "articles", len(articles))
	}
	return articles, nil
}

// Filter drops namesake-place articles for the target region and keeps only
// those confirming the region in title, description or content. Other
// locations pass through unchanged.
func (c *NewsAPIClient) Filter(location string, articles []Article) []Article {
	if !c.isRegion(location) {
		return articles
	}
	var kept []Article
	for _, a := range articles {
		text := strings.ToLower(a.Title + "\n" + a.Description + "\n" + a.Content)
		if containsTerm(text, c.cfg.ExcludeTerms) {
			continue
		}
		if c.include != nil && !c.include.MatchString(text) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// FormatArticle renders an article's metadata as extractor input.
func FormatArticle(a Article) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", a.Title)
	fmt.Fprintf(&sb, "Source: %s\n", a.Source.Name)
	fmt.Fprintf(&sb, "Author: %s\n", a.Author)
	fmt.Fprintf(&sb, "Published: %s\n", a.PublishedAt)
	fmt.Fprintf(&sb, "Description: %s\n", a.Description)
	fmt.Fprintf(&sb, "Content: %s", a.Content)
	return strings.TrimSpace(sb.String())
}

// Candidates searches for location and converts the surviving articles.
// Every candidate falls back to the location itself for geocoding.
func (c *NewsAPIClient) Candidates(ctx context.Context, location string) ([]types.Candidate, error) {
	articles, err := c.Everything(ctx, location)
	if err != nil {
		return nil, err
	}
	fallback := location
	if c.isRegion(location) && c.region.DefaultLocation != "" {
		fallback = c.region.DefaultLocation
	}

	candidates := make([]types.Candidate, 0, len(articles))
	for _, a := range articles {
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		candidates = append(candidates, types.Candidate{
			Text:            FormatArticle(a),
			URL:             a.URL,
			Title:           a.Title,
			SourceName:      a.Source.Name,
			Published:       published,
			DefaultLocation: fallback,
		})
	}
	return candidates, nil
}

// Fetch implements Fetcher. The location searched is the descriptor URL's
// location or q parameter, else the descriptor name. Without an API key the
// source yields nothing.
func (c *NewsAPIClient) Fetch(ctx context.Context, src types.SourceDescriptor) ([]types.Candidate, error) {
	if !c.Configured() {
		c.logger.Error("cannot fetch news: API key not configured", "source", src.Name)
		return nil, nil
	}
	location := SearchLocation(src)
	candidates, err := c.Candidates(ctx, location)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].CategoryHint = src.Category
		if src.Location != "" {
			candidates[i].DefaultLocation = src.Location
		}
	}
	return candidates, nil
}

// SearchLocation picks the location a search-API descriptor targets.
func SearchLocation(src types.SourceDescriptor) string {
	if u, err := url.Parse(src.URL); err == nil {
		q := u.Query()
		for _, key := range []string{"location", "q"} {
			if v := strings.TrimSpace(q.Get(key)); v != "" {
				return v
			}
		}
	}
	return src.Name
}

func containsTerm(text string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(text, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
