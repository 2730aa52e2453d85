package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/IshaanNene/NewsCatcher/internal/ai"
	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/engine"
	"github.com/IshaanNene/NewsCatcher/internal/fetcher"
	"github.com/IshaanNene/NewsCatcher/internal/geo"
	"github.com/IshaanNene/NewsCatcher/internal/observability"
	"github.com/IshaanNene/NewsCatcher/internal/sources"
	"github.com/IshaanNene/NewsCatcher/internal/storage"
)

// app holds every component of a fully wired pipeline.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store     storage.Store
	http      *fetcher.HTTPFetcher
	browser   *fetcher.Browser
	rss       *sources.RSSFetcher
	newsAPI   *sources.NewsAPIClient
	extractor *ai.Extractor
	resolver  *geo.Resolver
	metrics   *observability.Metrics
	orch      *engine.Orchestrator
}

// bootstrap loads the configuration and builds the root logger.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, setupLogger(cfg.Logging), nil
}

// newApp wires the store, fetch strategies, extractor, resolver and orchestrator.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		http:      httpFetcher,
		browser:   fetcher.NewBrowser(cfg, logger),
		rss:       sources.NewRSSFetcher(httpFetcher, cfg, logger),
		newsAPI:   sources.NewNewsAPIClient(httpFetcher, cfg, logger),
		extractor: newExtractor(cfg, logger),
		resolver:  newResolver(cfg, logger),
		metrics:   observability.NewMetrics(logger),
	}

	robots := fetcher.NewRobotsChecker(cfg.Scrape.RespectRobotsTxt, userAgent(cfg), httpFetcher)
	router := sources.NewRouter(
		sources.NewClassifier(httpFetcher, cfg, logger),
		logger,
		a.rss,
		sources.NewWebsiteFetcher(a.browser, robots, cfg, logger),
		a.newsAPI,
	)

	locations := []engine.LocationCollector{sources.NewLocalFeeds(a.rss, cfg, logger)}
	if a.newsAPI.Configured() {
		locations = append(locations, engine.LocationFunc(a.newsAPI.Candidates))
	}

	a.metrics.Register("newscatcher_geocode_provider_calls_total", "Requests sent to the geocoding provider", a.resolver.ProviderCalls)
	a.metrics.Register("newscatcher_geocode_cache_hits_total", "Geocoding lookups answered from the cache", a.resolver.CacheHits)
	a.metrics.Register("newscatcher_bytes_downloaded_total", "Decoded response bytes downloaded", httpFetcher.BytesDownloaded)

	a.orch = engine.New(cfg, engine.Deps{
		Store:     store,
		Fetcher:   router,
		Extractor: a.extractor,
		Geocoder:  a.resolver,
		Locations: locations,
		Metrics:   a.metrics,
		Release:   []io.Closer{a.browser},
	}, logger)

	logger.Info("pipeline ready",
		"store", store.Name(),
		"extraction_provider", providerName(a.extractor.Provider()),
		"geocoding_provider", providerName(a.resolver.Provider()),
		"newsapi", a.newsAPI.Configured(),
	)
	return a, nil
}

// Close releases the browser, the HTTP client and the store.
func (a *app) Close() error {
	return errors.Join(a.browser.Close(), a.http.Close(), a.store.Close())
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// openBackend opens the configured backend and ensures its schema.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if m, ok := store.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate %s: %w", store.Name(), err)
		}
	}
	return store, nil
}

// openStore opens the backend and wraps it with the configured publishers.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	publishers, err := storage.PublishersFromConfig(cfg.Publish, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create publishers: %w", err)
	}
	if len(publishers) == 0 {
		return store, nil
	}
	return storage.NewPublishingStore(store, publishers, logger), nil
}

func newExtractor(cfg *config.Config, logger *slog.Logger) *ai.Extractor {
	return ai.NewExtractor(cfg.Extraction, logger, ai.ProvidersFromConfig(cfg.Extraction)...)
}

func newResolver(cfg *config.Config, logger *slog.Logger) *geo.Resolver {
	return geo.NewResolver(geo.NewBias(cfg.Region), logger, geo.ProvidersFromConfig(cfg.Geo)...)
}

func userAgent(cfg *config.Config) string {
	if len(cfg.Scrape.UserAgents) > 0 {
		return cfg.Scrape.UserAgents[0]
	}
	return "NewsCatcher/" + config.Version
}

func providerName(name string) string {
	if name == "" {
		return "none"
	}
	return name
}
