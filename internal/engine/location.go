package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/dedup"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// CollectLocation aggregates every location collector for one place, builds
// records, collapses duplicates across the whole batch, and only then checks
// the store and persists the survivors. It fails only when every collector
// failed or the store did.
func (o *Orchestrator) CollectLocation(ctx context.Context, location string) ([]*types.NewsRecord, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, types.ErrEmptyInput
	}

	var candidates []types.Candidate
	var errs []error
	for _, c := range o.locations {
		got, err := c.Collect(ctx, location)
		if err != nil {
			o.logger.Warn("location collector failed", "location", location, "error", err)
			errs = append(errs, err)
		}
		candidates = append(candidates, got...)
	}
	if len(candidates) == 0 && len(errs) > 0 && len(errs) == len(o.locations) {
		return nil, errors.Join(errs...)
	}
	o.logger.Info("location candidates collected", "location", location, "count", len(candidates))

	var built []*types.NewsRecord
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rec, ok := o.buildRecord(ctx, c); ok {
			built = append(built, rec)
		}
	}
	unique := dedup.Collapse(built, o.threshold)
	o.metrics.RecordsDuplicate.Add(int64(len(built) - len(unique)))

	dd := dedup.New(o.threshold, o.store, o.logger)
	var saved []*types.NewsRecord
	for _, rec := range unique {
		out, err := o.persist(ctx, rec, dd)
		if err != nil {
			return saved, err
		}
		if out != nil {
			saved = append(saved, out)
		}
	}
	o.logger.Info("location batch stored", "location", location, "built", len(built), "saved", len(saved))
	return saved, nil
}
