package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// OllamaProvider calls a local Ollama server's chat endpoint.
type OllamaProvider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewOllamaProvider(cfg config.OllamaConfig, client *http.Client) *OllamaProvider {
	if client == nil {
		client = http.DefaultClient
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &OllamaProvider{cfg: cfg, client: client}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	payload := map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, p.client, p.Name(), p.cfg.Endpoint+"/api/chat", nil, payload, &result); err != nil {
		return "", err
	}
	if result.Message.Content == "" {
		return "", &types.ProviderError{Provider: p.Name(), Op: "complete", Err: types.ErrEmptyResponse}
	}
	return result.Message.Content, nil
}
