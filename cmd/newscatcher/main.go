package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsCatcher/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newscatcher",
		Short: "NewsCatcher: hyperlocal news ingestion",
		Long: `NewsCatcher collects local news from feeds, websites and news search APIs,
structures each item with a text-understanding provider, geocodes it and stores
every item that can be placed on the map.

Features:
  • RSS/Atom feeds, rendered websites and news search API sources
  • OpenAI, Anthropic or Ollama extraction with heuristic fallbacks
  • Google or Nominatim geocoding biased toward the target region
  • URL and fuzzy-title deduplication
  • Postgres, MongoDB or in-memory storage, Kafka and JSONL fan-out
  • Scheduled runs with a per-run log trail
  • Prometheus metrics endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(locationCmd())
	rootCmd.AddCommand(rssCmd())
	rootCmd.AddCommand(newsAPICmd())
	rootCmd.AddCommand(geocodeCmd())
	rootCmd.AddCommand(reverseCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("NewsCatcher %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Scrape:\n")
			fmt.Printf("  Request Timeout:    %s\n", cfg.Scrape.RequestTimeout)
			fmt.Printf("  Page Timeout:       %s\n", cfg.Scrape.PageTimeout)
			fmt.Printf("  Max Feed Entries:   %d\n", cfg.Scrape.MaxFeedEntries)
			fmt.Printf("  Max Articles:       %d\n", cfg.Scrape.MaxArticles)
			fmt.Printf("  Respect robots.txt: %v\n", cfg.Scrape.RespectRobotsTxt)
			fmt.Printf("  User Agents:        %d configured\n", len(cfg.Scrape.UserAgents))
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:           %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:            %v\n", cfg.Browser.Stealth)
			fmt.Printf("\nProxy:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Proxy.Enabled)
			fmt.Printf("  Count:              %d\n", len(cfg.Proxy.URLs))
			fmt.Printf("\nExtraction:\n")
			fmt.Printf("  OpenAI:             %s\n", configured(cfg.Extraction.OpenAI.APIKey != ""))
			fmt.Printf("  Anthropic:          %s\n", configured(cfg.Extraction.Anthropic.APIKey != ""))
			fmt.Printf("  Ollama:             %s\n", configured(cfg.Extraction.Ollama.Endpoint != ""))
			fmt.Printf("\nGeocoding:\n")
			fmt.Printf("  Google:             %s\n", configured(cfg.Geo.GoogleAPIKey != ""))
			fmt.Printf("  Nominatim:          %s\n", cfg.Geo.NominatimEndpoint)
			fmt.Printf("  Region:             %s (%s)\n", cfg.Region.Name, cfg.Region.DefaultLocation)
			fmt.Printf("\nNews API:\n")
			fmt.Printf("  Key:                %s\n", configured(cfg.NewsAPI.APIKey != ""))
			fmt.Printf("\nDedup:\n")
			fmt.Printf("  Threshold:          %.2f\n", cfg.Dedup.Threshold)
			fmt.Printf("  Lookback:           %s\n", cfg.Dedup.Lookback)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Driver:             %s\n", cfg.Storage.Driver)
			fmt.Printf("\nPublish:\n")
			fmt.Printf("  Kafka Brokers:      %s\n", strings.Join(cfg.Publish.KafkaBrokers, ","))
			fmt.Printf("  JSONL Path:         %s\n", cfg.Publish.JSONLPath)
			fmt.Printf("\nSchedule:\n")
			fmt.Printf("  Interval:           %s\n", cfg.Schedule.Interval)
			fmt.Printf("  Daily At (UTC):     %s\n", cfg.Schedule.DailyAt)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:               %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
