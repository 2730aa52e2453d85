package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for NewsCatcher.
type Config struct {
	Scrape     ScrapeConfig     `mapstructure:"scrape"      yaml:"scrape"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"     yaml:"fetcher"`
	Browser    BrowserConfig    `mapstructure:"browser"     yaml:"browser"`
	Proxy      ProxyConfig      `mapstructure:"proxy"       yaml:"proxy"`
	Extraction ExtractionConfig `mapstructure:"extraction"  yaml:"extraction"`
	Geo        GeoConfig        `mapstructure:"geo"         yaml:"geo"`
	Region     RegionConfig     `mapstructure:"region"      yaml:"region"`
	NewsAPI    NewsAPIConfig    `mapstructure:"newsapi"     yaml:"newsapi"`
	LocalFeeds LocalFeedsConfig `mapstructure:"local_feeds" yaml:"local_feeds"`
	Dedup      DedupConfig      `mapstructure:"dedup"       yaml:"dedup"`
	Storage    StorageConfig    `mapstructure:"storage"     yaml:"storage"`
	Publish    PublishConfig    `mapstructure:"publish"     yaml:"publish"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"    yaml:"schedule"`
	Logging    LoggingConfig    `mapstructure:"logging"     yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"     yaml:"metrics"`
	API        APIConfig        `mapstructure:"api"         yaml:"api"`
}

// ScrapeConfig controls per-source fetching limits and timeouts.
type ScrapeConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"    yaml:"request_timeout"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"      yaml:"probe_timeout"`
	PageTimeout      time.Duration `mapstructure:"page_timeout"       yaml:"page_timeout"`
	SettleDelay      time.Duration `mapstructure:"settle_delay"       yaml:"settle_delay"`
	MaxFeedEntries   int           `mapstructure:"max_feed_entries"   yaml:"max_feed_entries"`
	MaxArticles      int           `mapstructure:"max_articles"       yaml:"max_articles"`
	MinLineLength    int           `mapstructure:"min_line_length"    yaml:"min_line_length"`
	RespectRobotsTxt bool          `mapstructure:"respect_robots_txt" yaml:"respect_robots_txt"`
	MaxRetries       int           `mapstructure:"max_retries"        yaml:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"        yaml:"retry_delay"`
	UserAgents       []string      `mapstructure:"user_agents"        yaml:"user_agents"`
}

// FetcherConfig controls the HTTP client.
type FetcherConfig struct {
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// BrowserConfig controls the headless browser used for website sources.
type BrowserConfig struct {
	Headless       bool   `mapstructure:"headless"        yaml:"headless"`
	Stealth        bool   `mapstructure:"stealth"         yaml:"stealth"`
	BinPath        string `mapstructure:"bin_path"        yaml:"bin_path"`
	ViewportWidth  int    `mapstructure:"viewport_width"  yaml:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// ProxyConfig controls proxy rotation for HTTP fetches.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// ExtractionConfig controls the text-understanding providers.
type ExtractionConfig struct {
	OpenAI      OpenAIConfig    `mapstructure:"openai"      yaml:"openai"`
	Anthropic   AnthropicConfig `mapstructure:"anthropic"   yaml:"anthropic"`
	Ollama      OllamaConfig    `mapstructure:"ollama"      yaml:"ollama"`
	Temperature float64         `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Timeout     time.Duration   `mapstructure:"timeout"     yaml:"timeout"`
	// MaxInputChars bounds the raw text sent to a provider.
	MaxInputChars int `mapstructure:"max_input_chars" yaml:"max_input_chars"`
}

type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key"  yaml:"api_key"`
	Model    string `mapstructure:"model"    yaml:"model"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

type AnthropicConfig struct {
	APIKey   string `mapstructure:"api_key"  yaml:"api_key"`
	Model    string `mapstructure:"model"    yaml:"model"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Version  string `mapstructure:"version"  yaml:"version"`
}

// OllamaConfig enables a local model; it is used only when Endpoint is set.
type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string `mapstructure:"model"    yaml:"model"`
}

// GeoConfig controls the geocoding providers.
type GeoConfig struct {
	GoogleAPIKey       string        `mapstructure:"google_api_key"       yaml:"google_api_key"`
	GoogleEndpoint     string        `mapstructure:"google_endpoint"      yaml:"google_endpoint"`
	GoogleInterval     time.Duration `mapstructure:"google_interval"      yaml:"google_interval"`
	NominatimEndpoint  string        `mapstructure:"nominatim_endpoint"   yaml:"nominatim_endpoint"`
	NominatimUserAgent string        `mapstructure:"nominatim_user_agent" yaml:"nominatim_user_agent"`
	NominatimInterval  time.Duration `mapstructure:"nominatim_interval"   yaml:"nominatim_interval"`
	Timeout            time.Duration `mapstructure:"timeout"              yaml:"timeout"`
}

// RegionConfig describes the target area that geocoding and filtering are biased toward.
type RegionConfig struct {
	Name string `mapstructure:"name" yaml:"name"`

	// AdminRegions are the administrative region names a preferred geocoding match carries.
	AdminRegions []string `mapstructure:"admin_regions" yaml:"admin_regions"`
	BiasSuffix   string   `mapstructure:"bias_suffix"   yaml:"bias_suffix"`
	// Markers are tokens that already pin a query to a region (state or country names).
	Markers     []string `mapstructure:"markers"      yaml:"markers"`
	LocalPlaces []string `mapstructure:"local_places" yaml:"local_places"`

	RelevanceTerms   []string `mapstructure:"relevance_terms"   yaml:"relevance_terms"`
	Namesakes        []string `mapstructure:"namesakes"         yaml:"namesakes"`
	LocationPatterns []string `mapstructure:"location_patterns" yaml:"location_patterns"`
	DefaultLocation  string   `mapstructure:"default_location"  yaml:"default_location"`
	DefaultLatitude  float64  `mapstructure:"default_latitude"  yaml:"default_latitude"`
	DefaultLongitude float64  `mapstructure:"default_longitude" yaml:"default_longitude"`
}

// NewsAPIConfig controls the search-API source.
type NewsAPIConfig struct {
	APIKey        string   `mapstructure:"api_key"        yaml:"api_key"`
	Endpoint      string   `mapstructure:"endpoint"       yaml:"endpoint"`
	DaysBack      int      `mapstructure:"days_back"      yaml:"days_back"`
	PageSize      int      `mapstructure:"page_size"      yaml:"page_size"`
	Language      string   `mapstructure:"language"       yaml:"language"`
	SortBy        string   `mapstructure:"sort_by"        yaml:"sort_by"`
	QueryVariants []string `mapstructure:"query_variants" yaml:"query_variants"`
	Keywords      []string `mapstructure:"keywords"       yaml:"keywords"`
	IncludeTerms  []string `mapstructure:"include_terms"  yaml:"include_terms"`
	ExcludeTerms  []string `mapstructure:"exclude_terms"  yaml:"exclude_terms"`
}

// LocalFeedsConfig lists the feed templates aggregated for a single location.
type LocalFeedsConfig struct {
	PatchTemplate      string   `mapstructure:"patch_template"       yaml:"patch_template"`
	NewsdayURL         string   `mapstructure:"newsday_url"          yaml:"newsday_url"`
	GoogleNewsTemplate string   `mapstructure:"google_news_template" yaml:"google_news_template"`
	NewsdayTerms       []string `mapstructure:"newsday_terms"        yaml:"newsday_terms"`
}

// DedupConfig controls duplicate detection.
type DedupConfig struct {
	Threshold float64       `mapstructure:"threshold" yaml:"threshold"`
	Lookback  time.Duration `mapstructure:"lookback"  yaml:"lookback"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"            yaml:"driver"`
	DSN             string        `mapstructure:"dsn"               yaml:"dsn"`
	MongoURI        string        `mapstructure:"mongo_uri"         yaml:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"    yaml:"mongo_database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// PublishConfig controls the fan-out of accepted records.
type PublishConfig struct {
	KafkaBrokers []string `mapstructure:"kafka_brokers" yaml:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"   yaml:"kafka_topic"`
	JSONLPath    string   `mapstructure:"jsonl_path"    yaml:"jsonl_path"`
}

// ScheduleConfig controls the periodic runner.
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	DailyAt  string        `mapstructure:"daily_at" yaml:"daily_at"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// APIConfig controls the control API exposed by the serve command.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port"    yaml:"port"`
}

// DefaultConfig returns a Config targeting Huntington, NY.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			RequestTimeout: 15 * time.Second,
			ProbeTimeout:   10 * time.Second,
			PageTimeout:    30 * time.Second,
			SettleDelay:    2 * time.Second,
			MaxFeedEntries: 20,
			MaxArticles:    10,
			MinLineLength:  30,
			MaxRetries:     2,
			RetryDelay:     2 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Fetcher: FetcherConfig{
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Browser: BrowserConfig{
			Headless:       true,
			Stealth:        true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Proxy: ProxyConfig{
			Rotation: "round_robin",
		},
		Extraction: ExtractionConfig{
			OpenAI: OpenAIConfig{
				Model:    "gpt-4",
				Endpoint: "https://api.openai.com/v1/chat/completions",
			},
			Anthropic: AnthropicConfig{
				Model:    "claude-3-sonnet-20240229",
				Endpoint: "https://api.anthropic.com/v1/messages",
				Version:  "2023-06-01",
			},
			Ollama: OllamaConfig{
				Model: "llama3",
			},
			Temperature:   0.2,
			MaxTokens:     1500,
			Timeout:       60 * time.Second,
			MaxInputChars: 12000,
		},
		Geo: GeoConfig{
			GoogleEndpoint:     "https://maps.googleapis.com/maps/api/geocode/json",
			GoogleInterval:     100 * time.Millisecond,
			NominatimEndpoint:  "https://nominatim.openstreetmap.org",
			NominatimUserAgent: "NewsCatcher/1.0",
			NominatimInterval:  time.Second,
			Timeout:            10 * time.Second,
		},
		Region: RegionConfig{
			Name:         "Huntington",
			AdminRegions: []string{"NY", "New York"},
			BiasSuffix:   ", NY",
			Markers: []string{
				"ny", "new york", "long island", "suffolk county", "usa", "united states",
			},
			LocalPlaces: []string{
				"huntington village", "huntington station", "huntington bay", "cold spring harbor",
				"halesite", "centerport", "greenlawn", "northport", "east northport", "lloyd harbor",
			},
			RelevanceTerms: []string{
				"huntington", "long island", "suffolk county", "cold spring harbor", "centerport",
				"greenlawn", "huntington bay", "halesite", "huntington station", "lloyd harbor",
				"northport", "east northport",
			},
			Namesakes: []string{
				"huntington beach", "huntington park", "huntington, west virginia",
				"huntington, indiana", "huntington, wv", "huntington hospital, ca",
			},
			LocationPatterns: []string{
				"Huntington Village", "Huntington Station", "Cold Spring Harbor", "Huntington Bay",
				"Halesite", "Centerport", "Greenlawn", "East Northport", "Northport",
				"Huntington, NY", "Huntington New York",
			},
			DefaultLocation:  "Huntington, NY",
			DefaultLatitude:  40.8676,
			DefaultLongitude: -73.4257,
		},
		NewsAPI: NewsAPIConfig{
			Endpoint: "https://newsapi.org",
			DaysBack: 14,
			PageSize: 100,
			Language: "en",
			SortBy:   "relevancy",
			QueryVariants: []string{
				"Huntington Long Island", "Huntington NY", "Huntington New York", "Town of Huntington",
				"Huntington Station", "Huntington Bay", "Huntington Village",
			},
			Keywords: []string{
				"local", "community", "news", "event", "town", "school", "business", "library",
				"park", "restaurant", "festival", "development", "police", "fire", "vote", "road",
				"traffic", "weather",
			},
			IncludeTerms: []string{
				"long island", "suffolk county", "new york", "ny", "town of huntington",
				"huntington station", "huntington bay", "huntington village",
			},
			ExcludeTerms: []string{
				"huntington beach", "huntington wv", "huntington west virginia", "huntington indiana",
				"huntington hospital", "huntington disease",
			},
		},
		LocalFeeds: LocalFeedsConfig{
			PatchTemplate:      "https://patch.com/new-york/%s/rss",
			NewsdayURL:         "https://www.newsday.com/xml/rss.xml",
			GoogleNewsTemplate: "https://news.google.com/rss/search?q=%s+when:7d&hl=en-US&gl=US&ceid=US:en",
			NewsdayTerms:       []string{"long island", "suffolk", "nassau", "huntington"},
		},
		Dedup: DedupConfig{
			Threshold: 0.6,
			Lookback:  30 * 24 * time.Hour,
		},
		Storage: StorageConfig{
			Driver:          "memory",
			MongoDatabase:   "newscatcher",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Publish: PublishConfig{
			KafkaTopic: "news-items",
		},
		Schedule: ScheduleConfig{
			Interval: 3 * time.Hour,
			DailyAt:  "00:00",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		API: APIConfig{
			Enabled: false,
			Port:    8080,
		},
	}
}
