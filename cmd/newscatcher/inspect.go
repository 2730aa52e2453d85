package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// rssCmd creates the "rss" subcommand.
func rssCmd() *cobra.Command {
	var (
		save     bool
		location string
	)
	cmd := &cobra.Command{
		Use:   "rss [url]",
		Short: "Read one feed and list its entries",
		Long:  "Read one RSS/Atom feed and list the candidates it yields. With --save the entries go through the full pipeline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateURL(args[0]); err != nil {
				return fmt.Errorf("invalid URL %q: %w", args[0], err)
			}
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			src := types.SourceDescriptor{Name: args[0], URL: args[0], Location: location, Active: true}
			cands, err := a.rss.Fetch(ctx, src)
			if err != nil {
				return err
			}
			return showCandidates(ctx, a, src, cands, save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "extract, geocode and store the entries")
	cmd.Flags().StringVar(&location, "location", "", "fallback location for entries without one")
	return cmd
}

// newsAPICmd creates the "newsapi" subcommand.
func newsAPICmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "newsapi [location]",
		Short: "Search the news API for a location",
		Long:  "Search the news API for one location and list the relevant articles. With --save the articles go through the full pipeline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.newsAPI.Configured() {
				return fmt.Errorf("news API key not configured (set NEWSAPI_API_KEY)")
			}
			cands, err := a.newsAPI.Candidates(ctx, args[0])
			if err != nil {
				return err
			}
			src := types.SourceDescriptor{Name: "NewsAPI: " + args[0], Location: args[0]}
			return showCandidates(ctx, a, src, cands, save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "extract, geocode and store the articles")
	return cmd
}

func showCandidates(ctx context.Context, a *app, src types.SourceDescriptor, cands []types.Candidate, save bool) error {
	if !save {
		fmt.Println(headerStyle.Render(fmt.Sprintf("%d candidates from %s", len(cands), src.Name)))
		for i, c := range cands {
			fmt.Println(renderCandidate(i, c))
		}
		return nil
	}
	saved, err := a.orch.ProcessCandidates(ctx, src, cands)
	if err != nil {
		return err
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%d of %d candidates stored", len(saved), len(cands))))
	fmt.Println(renderRecords(saved))
	return nil
}

// geocodeCmd creates the "geocode" subcommand.
func geocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode [text]",
		Short: "Resolve a free-text location to coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			p, err := newResolver(cfg, logger).Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s\n", successStyle.Render(p.String()), dimStyle.Render(p.Region))
			return nil
		},
	}
}

// reverseCmd creates the "reverse" subcommand.
func reverseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse [lat] [lng]",
		Short: "Describe the place at a coordinate pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude %q: %w", args[0], err)
			}
			lng, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude %q: %w", args[1], err)
			}
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			desc, err := newResolver(cfg, logger).Reverse(ctx, types.GeoPoint{Latitude: lat, Longitude: lng})
			if err != nil {
				return err
			}
			fmt.Println(desc)
			return nil
		},
	}
}

// extractCmd creates the "extract" subcommand.
func extractCmd() *cobra.Command {
	var (
		file      string
		sourceURL string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Structure raw article text (stdin or --file) and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			var r io.Reader = os.Stdin
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open %s: %w", file, err)
				}
				defer f.Close()
				r = f
			}
			text, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			ctx, stop := signalContext()
			defer stop()

			res := newExtractor(cfg, logger).Extract(ctx, string(text), sourceURL)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file instead of stdin")
	cmd.Flags().StringVar(&sourceURL, "url", "", "source URL passed to the provider")
	return cmd
}
