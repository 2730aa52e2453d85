package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/parser"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// LocalFeeds aggregates the well-known local feeds for one location: Patch,
// Newsday (target region only) and a Google News search.
type LocalFeeds struct {
	rss      *RSSFetcher
	cfg      config.LocalFeedsConfig
	region   config.RegionConfig
	patterns []*regexp.Regexp
	logger   *slog.Logger
}

// NewLocalFeeds creates a LocalFeeds reader on top of rss.
func NewLocalFeeds(rss *RSSFetcher, cfg *config.Config, logger *slog.Logger) *LocalFeeds {
	l := &LocalFeeds{
		rss:    rss,
		cfg:    cfg.LocalFeeds,
		region: cfg.Region,
		logger: logger.With("component", "local_feeds"),
	}
	for _, p := range cfg.Region.LocationPatterns {
		words := strings.Fields(p)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		l.patterns = append(l.patterns, regexp.MustCompile(`(?i)`+strings.Join(words, `\s+`)))
	}
	return l
}

type localFeed struct {
	name     string
	url      string
	source   string // fixed publisher name, "" to derive it from each link
	filter   func(title, summary string) bool
	location func(title, summary string) string
}

// Collect reads every feed for location and returns their candidates in
// feed order. A failing feed is logged and skipped; an error is returned
// only when every feed failed.
func (l *LocalFeeds) Collect(ctx context.Context, location string) ([]types.Candidate, error) {
	feeds := l.feedsFor(location)

	var (
		candidates []types.Candidate
		errs       []error
	)
	for _, feed := range feeds {
		got, err := l.read(ctx, feed)
		if err != nil {
			l.logger.Error("error fetching feed", "feed", feed.name, "url", feed.url, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", feed.name, err))
			continue
		}
		l.logger.Info("feed read", "feed", feed.name, "candidates", len(got))
		candidates = append(candidates, got...)
	}
	if len(errs) == len(feeds) && len(feeds) > 0 {
		return nil, errors.Join(errs...)
	}
	return candidates, nil
}

func (l *LocalFeeds) feedsFor(location string) []localFeed {
	isRegion := strings.EqualFold(strings.TrimSpace(location), l.region.Name)
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(location)), " ", "-")
	searchTerms := location + " " + strings.TrimSpace(strings.TrimLeft(l.region.BiasSuffix, ", "))

	fixed := func(string, string) string { return location + l.region.BiasSuffix }
	filter := func(string, string) bool { return true }
	if isRegion {
		fixed = func(string, string) string { return l.region.DefaultLocation }
		filter = l.Relevant
	}

	var feeds []localFeed
	if l.cfg.PatchTemplate != "" {
		feeds = append(feeds, localFeed{
			name: "patch", url: fmt.Sprintf(l.cfg.PatchTemplate, url.PathEscape(slug)),
			source: "Patch.com", filter: func(string, string) bool { return true }, location: fixed,
		})
	}
	if isRegion && l.cfg.NewsdayURL != "" {
		feeds = append(feeds, localFeed{
			name: "newsday", url: l.cfg.NewsdayURL, source: "Newsday",
			filter: func(title, summary string) bool {
				return containsTerm(strings.ToLower(title+" "+summary), l.cfg.NewsdayTerms) && l.Relevant(title, summary)
			},
			location: l.ExtractLocation,
		})
	}
	if l.cfg.GoogleNewsTemplate != "" {
		feeds = append(feeds, localFeed{
			name: "google_news", url: fmt.Sprintf(l.cfg.GoogleNewsTemplate, url.QueryEscape(searchTerms)),
			filter: filter, location: fixed,
		})
	}
	return feeds
}

func (l *LocalFeeds) read(ctx context.Context, feed localFeed) ([]types.Candidate, error) {
	parsed, err := l.rss.ParseFeed(ctx, feed.url)
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, nil
	}

	var out []types.Candidate
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		summary := parser.StripMarkup(item.Description)
		if summary == "" {
			summary = title
		}
		if !feed.filter(title, summary) {
			continue
		}
		source := feed.source
		if source == "" {
			source = SourceFromLink(item.Link)
		}
		out = append(out, l.candidate(item, title, summary, source, feed.location(title, summary)))
	}
	return out, nil
}

func (l *LocalFeeds) candidate(item *gofeed.Item, title, summary, source, location string) types.Candidate {
	return types.Candidate{
		Text:            EntryText(item),
		URL:             strings.TrimSpace(item.Link),
		Title:           title,
		SourceName:      source,
		Published:       EntryTime(item),
		DefaultLocation: location,
		CategoryHint:    GuessCategory(title, summary),
	}
}

// Relevant reports whether an entry is about the target region. Mentions of
// a namesake place elsewhere disqualify the entry.
func (l *LocalFeeds) Relevant(title, summary string) bool {
	text := strings.ToLower(title + " " + summary)
	if containsTerm(text, l.region.Namesakes) {
		return false
	}
	return containsTerm(text, l.region.RelevanceTerms)
}

// ExtractLocation returns the first configured place pattern found in the
// entry, else the region's default location.
func (l *LocalFeeds) ExtractLocation(title, summary string) string {
	text := title + " " + summary
	for _, re := range l.patterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return l.region.DefaultLocation
}
