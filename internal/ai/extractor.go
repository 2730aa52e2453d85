package ai

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Extractor produces an ExtractionResult for raw text. It never returns an
// error: provider failures become an empty result with an error marker.
type Extractor struct {
	provider    Provider
	temperature float64
	maxTokens   int
	timeout     time.Duration
	maxInput    int
	logger      *slog.Logger

	stats struct {
		provider, heuristic, basic, failed atomic.Int64
	}
}

// ExtractionStats counts results by the path that produced them.
type ExtractionStats struct {
	Provider  int64 `json:"provider"`
	Heuristic int64 `json:"heuristic"`
	Basic     int64 `json:"basic"`
	Failed    int64 `json:"failed"`
}

// NewExtractor fixes the provider at construction: the first non-nil entry
// wins, and with none the extractor falls back to BasicExtraction.
func NewExtractor(cfg config.ExtractionConfig, logger *slog.Logger, providers ...Provider) *Extractor {
	e := &Extractor{
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		maxInput:    cfg.MaxInputChars,
		logger:      logger.With("component", "extractor"),
	}
	for _, p := range providers {
		if p != nil {
			e.provider = p
			break
		}
	}
	if e.provider != nil {
		e.logger.Info("text-understanding provider selected", "provider", e.provider.Name())
	} else {
		e.logger.Warn("no text-understanding provider configured, using basic extraction")
	}
	return e
}

// Provider returns the selected provider name, or "".
func (e *Extractor) Provider() string {
	if e.provider == nil {
		return ""
	}
	return e.provider.Name()
}

// Extract structures rawText taken from sourceURL.
func (e *Extractor) Extract(ctx context.Context, rawText, sourceURL string) types.ExtractionResult {
	if strings.TrimSpace(rawText) == "" {
		e.stats.failed.Add(1)
		return EmptyResult("empty text")
	}

	if e.provider == nil {
		e.stats.basic.Add(1)
		return BasicExtraction(rawText)
	}

	if e.maxInput > 0 {
		rawText = prefix(rawText, e.maxInput)
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	reply, err := e.provider.Complete(callCtx, SystemInstruction, BuildPrompt(rawText, sourceURL), e.temperature, e.maxTokens)
	if err != nil {
		e.stats.failed.Add(1)
		e.logger.Warn("extraction provider failed", "provider", e.provider.Name(), "url", sourceURL, "error", err)
		return EmptyResult("Failed to process content")
	}

	res, err := DecodeReply(reply)
	if err != nil {
		e.stats.heuristic.Add(1)
		e.logger.Debug("provider reply is not JSON, using labeled parsing", "url", sourceURL, "error", err)
		return ParseLabeled(reply)
	}
	e.stats.provider.Add(1)
	return res
}

// Stats returns a snapshot of the per-path counters.
func (e *Extractor) Stats() ExtractionStats {
	return ExtractionStats{
		Provider:  e.stats.provider.Load(),
		Heuristic: e.stats.heuristic.Load(),
		Basic:     e.stats.basic.Load(),
		Failed:    e.stats.failed.Load(),
	}
}
