package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Runner executes one scrape run.
type Runner interface {
	Run(ctx context.Context) (*types.ScrapeRun, error)
}

// Scheduler triggers runs every interval plus once a day at a fixed UTC
// time. Runs never overlap: a trigger that fires while a run is active is skipped.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	dailyAt  string
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool
	skipped atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a scheduler for runner.
func NewScheduler(runner Runner, cfg config.ScheduleConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: cfg.Interval,
		dailyAt:  cfg.DailyAt,
		logger:   logger.With("component", "scheduler"),
		now:      time.Now,
	}
}

// Start runs once immediately, then keeps running in the background until
// ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("schedule interval must be positive, got %s", s.interval)
	}
	if s.dailyAt != "" {
		if _, err := NextDaily(s.now(), s.dailyAt); err != nil {
			return err
		}
	}

	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "interval", s.interval, "daily_at", s.dailyAt)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Trigger(ctx, "startup")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Trigger(ctx, "interval")
			}
		}
	}()

	if s.dailyAt != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				next, _ := NextDaily(s.now(), s.dailyAt)
				timer := time.NewTimer(next.Sub(s.now()))
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
					s.Trigger(ctx, "daily")
				}
			}
		}()
	}
	return nil
}

// Trigger runs the runner unless a run is already active. It reports whether a run happened.
func (s *Scheduler) Trigger(ctx context.Context, reason string) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("run skipped, previous run still active", "trigger", reason)
		return false
	}
	defer s.running.Store(false)

	s.logger.Info("running scheduled scrape", "trigger", reason)
	run, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled scrape failed", "trigger", reason, "error", err)
		return true
	}
	s.logger.Info("scheduled scrape finished", "trigger", reason, "run", run.ID, "status", run.Status)
	return true
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Skipped returns how many triggers were dropped because a run was active.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

// Stop cancels the scheduler and waits for an active run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// NextDaily returns the next occurrence of hh:mm UTC strictly after now.
func NextDaily(now time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("daily time must be HH:MM, got %q", hhmm)
	}
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
