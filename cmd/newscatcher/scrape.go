package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsCatcher/internal/api"
	"github.com/IshaanNene/NewsCatcher/internal/engine"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	var showStats bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run the pipeline once over every active source",
		Long: `Fetch every active data source, extract and geocode each item, and store
the items that can be placed. Progress is recorded in a scrape run log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.orch.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Println(renderRun(run))
			if showStats {
				fmt.Println()
				fmt.Println(renderStats(a.orch.Stats()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showStats, "stats", false, "print pipeline counters after the run")
	return cmd
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	var (
		interval string
		dailyAt  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on a schedule",
		Long: `Run once at startup, then every interval and once a day at a fixed UTC
time. Overlapping triggers are skipped. Metrics and the control API are
served when enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			schedule := a.cfg.Schedule
			if interval != "" {
				d, err := time.ParseDuration(interval)
				if err != nil {
					return fmt.Errorf("invalid interval %q: %w", interval, err)
				}
				schedule.Interval = d
			}
			if cmd.Flags().Changed("daily-at") {
				schedule.DailyAt = dailyAt
			}

			if a.cfg.Metrics.Enabled {
				srv := a.metrics.StartServer(a.cfg.Metrics.Port, a.cfg.Metrics.Path)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			sched := engine.NewScheduler(a.orch, schedule, a.logger)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			var control *api.Server
			if a.cfg.API.Enabled {
				control = api.NewServer(a.cfg.API.Port, sched, a.store, a.orch.Stats, a.logger)
				srv := control.Start(ctx)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			<-ctx.Done()
			a.logger.Info("received signal, shutting down...")
			sched.Stop()
			if control != nil {
				control.Wait()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&interval, "interval", "", "run interval (default from config, e.g. 3h)")
	cmd.Flags().StringVar(&dailyAt, "daily-at", "", "daily run time HH:MM in UTC, empty to disable")
	return cmd
}

// locationCmd creates the "location" subcommand.
func locationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location [name]",
		Short: "Collect news about one location from every local outlet",
		Long: `Aggregate the local feeds (Patch, Newsday, Google News) and, when a key is
configured, the news search API for one location. Duplicates across outlets
are collapsed before anything is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.orch.CollectLocation(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(headerStyle.Render(fmt.Sprintf("%d new items for %s", len(saved), args[0])))
			fmt.Println(renderRecords(saved))
			return nil
		},
	}
	return cmd
}
