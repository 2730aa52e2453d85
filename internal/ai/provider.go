// Package ai turns raw article text into structured, categorized fields
// using a text-understanding provider, with heuristic and basic fallbacks.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Provider is a text-understanding backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

// ProvidersFromConfig returns the providers whose credentials are present,
// in priority order: OpenAI, Anthropic, then a local Ollama endpoint.
func ProvidersFromConfig(cfg config.ExtractionConfig) []Provider {
	client := &http.Client{Timeout: cfg.Timeout}
	var providers []Provider
	if cfg.OpenAI.APIKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAI, client))
	}
	if cfg.Anthropic.APIKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.Anthropic, client))
	}
	if cfg.Ollama.Endpoint != "" {
		providers = append(providers, NewOllamaProvider(cfg.Ollama, client))
	}
	return providers
}

// postJSON sends payload and decodes a 200 response into dst. Any other
// status is reported with the first part of the body.
func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, headers map[string]string, payload, dst any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &types.ProviderError{Provider: provider, Op: "complete", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &types.ProviderError{Provider: provider, Op: "complete", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &types.ProviderError{Provider: provider, Op: "complete", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &types.ProviderError{
			Provider: provider,
			Op:       "complete",
			Err:      fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &types.ProviderError{Provider: provider, Op: "complete", Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
