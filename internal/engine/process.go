package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/dedup"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// ProcessCandidates runs candidates from src through extraction, geocoding,
// normalization, deduplication and persistence. It returns the saved records.
// An error means the store failed; skipped candidates are not errors.
func (o *Orchestrator) ProcessCandidates(ctx context.Context, src types.SourceDescriptor, candidates []types.Candidate) ([]*types.NewsRecord, error) {
	o.logger.Debug("processing candidates", "source", src.Name, "count", len(candidates))
	return o.process(ctx, candidates, o.newDeduplicator(ctx))
}

func (o *Orchestrator) process(ctx context.Context, candidates []types.Candidate, dd *dedup.Deduplicator) ([]*types.NewsRecord, error) {
	var saved []*types.NewsRecord
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		rec, ok := o.buildRecord(ctx, c)
		if !ok {
			continue
		}
		out, err := o.persist(ctx, rec, dd)
		if err != nil {
			return saved, err
		}
		if out != nil {
			saved = append(saved, out)
		}
	}
	return saved, nil
}

// buildRecord extracts, geocodes and normalizes one candidate. It reports
// false when the candidate is excluded, cannot be located, or is dropped.
func (o *Orchestrator) buildRecord(ctx context.Context, c types.Candidate) (*types.NewsRecord, bool) {
	o.metrics.Candidates.Add(1)

	res := o.extractor.Extract(ctx, c.Text, c.URL)
	o.metrics.CountExtraction(res)

	title := res.Title
	if title == "" {
		title = c.Title
	}
	if res.Excluded() {
		o.metrics.RecordsExcluded.Add(1)
		o.logger.Info("skipping item", "title", title, "reason", res.ExcludedReason)
		return nil, false
	}

	point, place, err := o.locate(ctx, res.Location, c.DefaultLocation)
	if err != nil {
		o.metrics.RecordsUngeocoded.Add(1)
		o.logger.Info("skipping item without coordinates", "title", title, "location", res.Location)
		return nil, false
	}

	category := res.Category
	if res.Degraded() && c.CategoryHint != "" {
		category = c.CategoryHint
	}

	rec := &types.NewsRecord{
		Title:       title,
		Headline:    res.Headline,
		Description: res.Description,
		Summary:     res.Summary,
		Category:    category,
		Location:    place,
		SourceURL:   c.URL,
		SourceName:  c.SourceName,
		PublishedAt: c.Published,
		Confidence:  res.Confidence,
	}
	rec.SetCoordinates(point)

	out, err := o.pipeline.Process(rec)
	if err != nil || out == nil {
		o.metrics.RecordsDropped.Add(1)
		o.logger.Info("record dropped", "title", title, "error", err)
		return nil, false
	}
	return out, true
}

// locate resolves the extracted location, falling back to the candidate's
// default location. It returns the point and the text that resolved.
func (o *Orchestrator) locate(ctx context.Context, extracted, fallback string) (types.GeoPoint, string, error) {
	tried := make([]string, 0, 2)
	for _, text := range []string{extracted, fallback} {
		text = strings.TrimSpace(text)
		if text == "" || containsFold(tried, text) {
			continue
		}
		tried = append(tried, text)
		point, err := o.geocoder.Resolve(ctx, text)
		if err == nil {
			return point, text, nil
		}
	}
	return types.GeoPoint{}, "", types.ErrNotFound
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// persist deduplicates and saves rec. A nil record with a nil error means
// the record was a duplicate or failed validation.
func (o *Orchestrator) persist(ctx context.Context, rec *types.NewsRecord, dd *dedup.Deduplicator) (*types.NewsRecord, error) {
	dup, reason, err := dd.IsDuplicate(ctx, rec.Title, rec.SourceURL)
	if err != nil {
		return nil, err
	}
	if dup {
		o.metrics.RecordsDuplicate.Add(1)
		o.logger.Debug("duplicate skipped", "title", rec.Title, "reason", reason)
		return nil, nil
	}

	out, err := o.store.Save(ctx, rec)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			o.metrics.RecordsDropped.Add(1)
			o.logger.Info("record rejected by store", "title", rec.Title, "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("save %s: %w", rec.SourceURL, err)
	}
	dd.Accept(out.Title, out.SourceURL)
	o.metrics.RecordsStored.Add(1)
	return out, nil
}
