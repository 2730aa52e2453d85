package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/storage"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// withStore opens the backend without publishers and runs fn against it.
func withStore(fn func(ctx context.Context, store storage.Store) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

// sourcesCmd creates the "sources" command group.
func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage data sources",
	}
	cmd.AddCommand(sourcesListCmd(), sourcesAddCmd(), sourcesImportCmd(), sourcesToggleCmd())
	return cmd
}

func sourcesListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured data sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store storage.Store) error {
				var (
					list []types.SourceDescriptor
					err  error
				)
				if activeOnly {
					list, err = store.ListActiveSources(ctx)
				} else {
					list, err = store.ListSources(ctx)
				}
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Println(dimStyle.Render("No data sources."))
					return nil
				}
				for _, s := range list {
					fmt.Println(renderSource(s))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only list active sources")
	return cmd
}

func sourcesAddCmd() *cobra.Command {
	var (
		category string
		location string
		inactive bool
	)
	cmd := &cobra.Command{
		Use:   "add [name] [url]",
		Short: "Add or update a data source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateURL(args[1]); err != nil {
				return fmt.Errorf("invalid URL %q: %w", args[1], err)
			}
			return withStore(func(ctx context.Context, store storage.Store) error {
				src := &types.SourceDescriptor{
					Name:     args[0],
					URL:      args[1],
					Category: types.CoerceCategory(category),
					Location: location,
					Active:   !inactive,
				}
				created, err := store.UpsertSource(ctx, src)
				if err != nil {
					return err
				}
				verb := "updated"
				if created {
					verb = "added"
				}
				fmt.Printf("%s %s\n", successStyle.Render(verb), renderSource(*src))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", string(types.CategoryNews), "category hint for degraded extractions")
	cmd.Flags().StringVar(&location, "location", "", "fallback location for this source's items")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "add the source disabled")
	return cmd
}

func sourcesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import data sources from a CSV with Source_Name, URL, Category columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			return withStore(func(ctx context.Context, store storage.Store) error {
				res, err := storage.ImportSourcesCSV(ctx, store, f)
				if err != nil {
					return err
				}
				fmt.Printf("%s %d added, %d skipped\n", successStyle.Render("Imported:"), res.Added, res.Skipped)
				return nil
			})
		},
	}
}

func sourcesToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [id]",
		Short: "Flip a data source between active and inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store storage.Store) error {
				list, err := store.ListSources(ctx)
				if err != nil {
					return err
				}
				for _, s := range list {
					if s.ID != args[0] {
						continue
					}
					if err := store.SetSourceActive(ctx, s.ID, !s.Active); err != nil {
						return err
					}
					s.Active = !s.Active
					fmt.Println(renderSource(s))
					return nil
				}
				return fmt.Errorf("source %s: %w", args[0], types.ErrNotFound)
			})
		},
	}
}

// runsCmd creates the "runs" subcommand.
func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent scrape runs and their logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store storage.Store) error {
				runs, err := store.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Println(dimStyle.Render("No scrape runs recorded."))
					return nil
				}
				for i, run := range runs {
					if i > 0 {
						fmt.Println()
					}
					fmt.Println(renderRun(run))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of runs to show")
	return cmd
}

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	var (
		format   string
		output   string
		category string
		from     string
		to       string
		near     string
		radius   float64
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored news records as JSON, JSONL or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := storage.Filter{RadiusKm: radius, Limit: limit}
			if category != "" {
				c, ok := types.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				f.Category = c
			}
			var err error
			if f.Start, err = parseDay(from); err != nil {
				return err
			}
			if f.End, err = parseDay(to); err != nil {
				return err
			}
			if !f.End.IsZero() {
				f.End = f.End.Add(24*time.Hour - time.Nanosecond)
			}
			if near != "" {
				p, err := parsePoint(near)
				if err != nil {
					return err
				}
				f.Near = &p
				if f.RadiusKm <= 0 {
					return fmt.Errorf("--near requires a positive --radius")
				}
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			store, err := openBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListRecords(ctx, f)
			if err != nil {
				return err
			}
			format = strings.ToLower(format)
			if output != "" {
				return storage.ExportFile(output, format, records, logger)
			}
			return storage.Export(os.Stdout, format, records)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", storage.FormatJSON, "output format: json, jsonl, csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&category, "category", "", "only records of this category")
	cmd.Flags().StringVar(&from, "from", "", "earliest publication day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "latest publication day, YYYY-MM-DD")
	cmd.Flags().StringVar(&near, "near", "", "center point as lat,lng")
	cmd.Flags().Float64Var(&radius, "radius", 0, "radius in km around --near")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum records (0 = all)")
	return cmd
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func parsePoint(s string) (types.GeoPoint, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return types.GeoPoint{}, fmt.Errorf("invalid point %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return types.GeoPoint{}, fmt.Errorf("invalid latitude %q: %w", latStr, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return types.GeoPoint{}, fmt.Errorf("invalid longitude %q: %w", lngStr, err)
	}
	return types.GeoPoint{Latitude: lat, Longitude: lng}, nil
}

// migrateCmd creates the "migrate" subcommand.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the storage schema and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store storage.Store) error {
				if _, ok := store.(migrator); !ok {
					fmt.Printf("%s backend needs no migration\n", store.Name())
					return nil
				}
				fmt.Printf("%s schema is up to date\n", successStyle.Render(store.Name()))
				return nil
			})
		},
	}
}
