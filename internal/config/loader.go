package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// credentialEnv maps config keys to the conventional environment variables
// providers document, in addition to the NEWSCATCHER_ prefixed form.
var credentialEnv = map[string]string{
	"extraction.openai.api_key":    "OPENAI_API_KEY",
	"extraction.anthropic.api_key": "ANTHROPIC_API_KEY",
	"geo.google_api_key":           "GOOGLE_MAPS_API_KEY",
	"newsapi.api_key":              "NEWSAPI_API_KEY",
	"storage.dsn":                  "DATABASE_URL",
}

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NEWSCATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range credentialEnv {
		prefixed := "NEWSCATCHER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newscatcher")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newscatcher"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so every key can be
// overridden from the environment.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scrape.request_timeout", cfg.Scrape.RequestTimeout)
	v.SetDefault("scrape.probe_timeout", cfg.Scrape.ProbeTimeout)
	v.SetDefault("scrape.page_timeout", cfg.Scrape.PageTimeout)
	v.SetDefault("scrape.settle_delay", cfg.Scrape.SettleDelay)
	v.SetDefault("scrape.max_feed_entries", cfg.Scrape.MaxFeedEntries)
	v.SetDefault("scrape.max_articles", cfg.Scrape.MaxArticles)
	v.SetDefault("scrape.min_line_length", cfg.Scrape.MinLineLength)
	v.SetDefault("scrape.respect_robots_txt", cfg.Scrape.RespectRobotsTxt)
	v.SetDefault("scrape.max_retries", cfg.Scrape.MaxRetries)
	v.SetDefault("scrape.retry_delay", cfg.Scrape.RetryDelay)
	v.SetDefault("scrape.user_agents", cfg.Scrape.UserAgents)

	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin_path", cfg.Browser.BinPath)
	v.SetDefault("browser.viewport_width", cfg.Browser.ViewportWidth)
	v.SetDefault("browser.viewport_height", cfg.Browser.ViewportHeight)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)
	v.SetDefault("proxy.urls", cfg.Proxy.URLs)

	v.SetDefault("extraction.openai.api_key", cfg.Extraction.OpenAI.APIKey)
	v.SetDefault("extraction.openai.model", cfg.Extraction.OpenAI.Model)
	v.SetDefault("extraction.openai.endpoint", cfg.Extraction.OpenAI.Endpoint)
	v.SetDefault("extraction.anthropic.api_key", cfg.Extraction.Anthropic.APIKey)
	v.SetDefault("extraction.anthropic.model", cfg.Extraction.Anthropic.Model)
	v.SetDefault("extraction.anthropic.endpoint", cfg.Extraction.Anthropic.Endpoint)
	v.SetDefault("extraction.anthropic.version", cfg.Extraction.Anthropic.Version)
	v.SetDefault("extraction.ollama.endpoint", cfg.Extraction.Ollama.Endpoint)
	v.SetDefault("extraction.ollama.model", cfg.Extraction.Ollama.Model)
	v.SetDefault("extraction.temperature", cfg.Extraction.Temperature)
	v.SetDefault("extraction.max_tokens", cfg.Extraction.MaxTokens)
	v.SetDefault("extraction.timeout", cfg.Extraction.Timeout)
	v.SetDefault("extraction.max_input_chars", cfg.Extraction.MaxInputChars)

	v.SetDefault("geo.google_api_key", cfg.Geo.GoogleAPIKey)
	v.SetDefault("geo.google_endpoint", cfg.Geo.GoogleEndpoint)
	v.SetDefault("geo.google_interval", cfg.Geo.GoogleInterval)
	v.SetDefault("geo.nominatim_endpoint", cfg.Geo.NominatimEndpoint)
	v.SetDefault("geo.nominatim_user_agent", cfg.Geo.NominatimUserAgent)
	v.SetDefault("geo.nominatim_interval", cfg.Geo.NominatimInterval)
	v.SetDefault("geo.timeout", cfg.Geo.Timeout)

	v.SetDefault("region.name", cfg.Region.Name)
	v.SetDefault("region.admin_regions", cfg.Region.AdminRegions)
	v.SetDefault("region.bias_suffix", cfg.Region.BiasSuffix)
	v.SetDefault("region.markers", cfg.Region.Markers)
	v.SetDefault("region.local_places", cfg.Region.LocalPlaces)
	v.SetDefault("region.relevance_terms", cfg.Region.RelevanceTerms)
	v.SetDefault("region.namesakes", cfg.Region.Namesakes)
	v.SetDefault("region.location_patterns", cfg.Region.LocationPatterns)
	v.SetDefault("region.default_location", cfg.Region.DefaultLocation)
	v.SetDefault("region.default_latitude", cfg.Region.DefaultLatitude)
	v.SetDefault("region.default_longitude", cfg.Region.DefaultLongitude)

	v.SetDefault("newsapi.api_key", cfg.NewsAPI.APIKey)
	v.SetDefault("newsapi.endpoint", cfg.NewsAPI.Endpoint)
	v.SetDefault("newsapi.days_back", cfg.NewsAPI.DaysBack)
	v.SetDefault("newsapi.page_size", cfg.NewsAPI.PageSize)
	v.SetDefault("newsapi.language", cfg.NewsAPI.Language)
	v.SetDefault("newsapi.sort_by", cfg.NewsAPI.SortBy)
	v.SetDefault("newsapi.query_variants", cfg.NewsAPI.QueryVariants)
	v.SetDefault("newsapi.keywords", cfg.NewsAPI.Keywords)
	v.SetDefault("newsapi.include_terms", cfg.NewsAPI.IncludeTerms)
	v.SetDefault("newsapi.exclude_terms", cfg.NewsAPI.ExcludeTerms)

	v.SetDefault("local_feeds.patch_template", cfg.LocalFeeds.PatchTemplate)
	v.SetDefault("local_feeds.newsday_url", cfg.LocalFeeds.NewsdayURL)
	v.SetDefault("local_feeds.google_news_template", cfg.LocalFeeds.GoogleNewsTemplate)
	v.SetDefault("local_feeds.newsday_terms", cfg.LocalFeeds.NewsdayTerms)

	v.SetDefault("dedup.threshold", cfg.Dedup.Threshold)
	v.SetDefault("dedup.lookback", cfg.Dedup.Lookback)

	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.max_open_conns", cfg.Storage.MaxOpenConns)
	v.SetDefault("storage.max_idle_conns", cfg.Storage.MaxIdleConns)
	v.SetDefault("storage.conn_max_lifetime", cfg.Storage.ConnMaxLifetime)

	v.SetDefault("publish.kafka_brokers", cfg.Publish.KafkaBrokers)
	v.SetDefault("publish.kafka_topic", cfg.Publish.KafkaTopic)
	v.SetDefault("publish.jsonl_path", cfg.Publish.JSONLPath)

	v.SetDefault("schedule.interval", cfg.Schedule.Interval)
	v.SetDefault("schedule.daily_at", cfg.Schedule.DailyAt)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("api.enabled", cfg.API.Enabled)
	v.SetDefault("api.port", cfg.API.Port)
}
