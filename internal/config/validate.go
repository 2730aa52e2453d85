package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scrape.RequestTimeout <= 0 {
		return fmt.Errorf("scrape.request_timeout must be > 0")
	}
	if cfg.Scrape.ProbeTimeout <= 0 {
		return fmt.Errorf("scrape.probe_timeout must be > 0")
	}
	if cfg.Scrape.PageTimeout <= 0 {
		return fmt.Errorf("scrape.page_timeout must be > 0")
	}
	if cfg.Scrape.MaxFeedEntries < 1 {
		return fmt.Errorf("scrape.max_feed_entries must be >= 1, got %d", cfg.Scrape.MaxFeedEntries)
	}
	if cfg.Scrape.MaxArticles < 1 {
		return fmt.Errorf("scrape.max_articles must be >= 1, got %d", cfg.Scrape.MaxArticles)
	}
	if cfg.Scrape.MaxRetries < 0 {
		return fmt.Errorf("scrape.max_retries must be >= 0, got %d", cfg.Scrape.MaxRetries)
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if cfg.Extraction.Temperature < 0 || cfg.Extraction.Temperature > 2 {
		return fmt.Errorf("extraction.temperature must be within [0, 2], got %v", cfg.Extraction.Temperature)
	}
	if cfg.Extraction.MaxTokens < 1 {
		return fmt.Errorf("extraction.max_tokens must be >= 1, got %d", cfg.Extraction.MaxTokens)
	}

	if cfg.Geo.NominatimInterval < time.Second {
		return fmt.Errorf("geo.nominatim_interval must be >= 1s (usage policy), got %s", cfg.Geo.NominatimInterval)
	}
	if cfg.Geo.GoogleInterval < 0 {
		return fmt.Errorf("geo.google_interval must be >= 0")
	}
	if cfg.Geo.NominatimUserAgent == "" {
		return fmt.Errorf("geo.nominatim_user_agent is required")
	}

	if cfg.Dedup.Threshold <= 0 || cfg.Dedup.Threshold > 1 {
		return fmt.Errorf("dedup.threshold must be within (0, 1], got %v", cfg.Dedup.Threshold)
	}

	switch cfg.Storage.Driver {
	case "memory":
	case "postgres":
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	case "mongo":
		if cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported (valid: memory, postgres, mongo)", cfg.Storage.Driver)
	}

	if len(cfg.Publish.KafkaBrokers) > 0 && cfg.Publish.KafkaTopic == "" {
		return fmt.Errorf("publish.kafka_topic is required when kafka brokers are set")
	}

	if cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be > 0")
	}
	if cfg.Schedule.DailyAt != "" {
		if _, err := time.Parse("15:04", cfg.Schedule.DailyAt); err != nil {
			return fmt.Errorf("schedule.daily_at must be HH:MM, got %q", cfg.Schedule.DailyAt)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}
	if cfg.API.Enabled {
		if cfg.API.Port < 1 || cfg.API.Port > 65535 {
			return fmt.Errorf("api.port must be 1-65535, got %d", cfg.API.Port)
		}
		if cfg.Metrics.Enabled && cfg.API.Port == cfg.Metrics.Port {
			return fmt.Errorf("api.port and metrics.port must differ, both are %d", cfg.API.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a source endpoint.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
