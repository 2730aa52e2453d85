package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// AnthropicProvider calls the Messages API.
type AnthropicProvider struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

func NewAnthropicProvider(cfg config.AnthropicConfig, client *http.Client) *AnthropicProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &AnthropicProvider{cfg: cfg, client: client}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	payload := map[string]any{
		"model":       p.cfg.Model,
		"system":      system,
		"max_tokens":  maxTokens,
		"temperature": temperature,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         p.cfg.APIKey,
		"anthropic-version": p.cfg.Version,
	}
	if err := postJSON(ctx, p.client, p.Name(), p.cfg.Endpoint, headers, payload, &result); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &types.ProviderError{Provider: p.Name(), Op: "complete", Err: types.ErrEmptyResponse}
	}
	return sb.String(), nil
}
