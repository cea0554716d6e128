package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/memorylane/internal/config"
	"github.com/nikhilbhutani/memorylane/pkg/retry"
)

type gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	defaultModel     string
	fallbackProvider string
	policy           retry.Policy
}

func NewGateway(cfg config.LLMConfig) Gateway {
	var providers []Provider
	if cfg.OpenAIKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAIKey))
	}
	if cfg.AnthropicKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.AnthropicKey))
	}
	if cfg.OllamaURL != "" {
		providers = append(providers, NewOllamaProvider(cfg.OllamaURL))
	}
	return NewGatewayWithProviders(cfg, providers...)
}

// NewGatewayWithProviders builds a gateway over explicit providers, keyed by Name().
func NewGatewayWithProviders(cfg config.LLMConfig, providers ...Provider) Gateway {
	g := &gateway{
		providers:        make(map[string]Provider, len(providers)),
		defaultProvider:  cfg.DefaultProvider,
		defaultModel:     cfg.DefaultModel,
		fallbackProvider: cfg.FallbackProvider,
		policy: retry.Policy{
			Retries:   cfg.MaxRetries,
			BaseDelay: 500 * time.Millisecond,
			MaxDelay:  10 * time.Second,
			Retryable: IsRetryable,
		},
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}
	if req.Model == "" {
		req.Model = g.defaultModel
	}

	resp, err := g.chatWithRetry(ctx, providerName, req)
	if err != nil && g.fallbackProvider != "" && g.fallbackProvider != providerName {
		slog.Warn("primary provider failed, trying fallback",
			"primary", providerName,
			"fallback", g.fallbackProvider,
			"error", err,
		)
		fallbackReq := req
		fallbackReq.Model = ""
		if p, perr := g.Provider(g.fallbackProvider); perr == nil && len(p.Models()) > 0 {
			fallbackReq.Model = p.Models()[0]
		}
		return g.chatWithRetry(ctx, g.fallbackProvider, fallbackReq)
	}
	return resp, err
}

func (g *gateway) chatWithRetry(ctx context.Context, providerName string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	resp, err := retry.Do(ctx, g.policy, func(ctx context.Context) (*ChatResponse, error) {
		return p.ChatCompletion(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("chat via %s: %w", providerName, err)
	}
	return resp, nil
}

// Embed never falls back: vectors from different models are not comparable.
func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	resp, err := retry.Do(ctx, g.policy, func(ctx context.Context) (*EmbeddingResponse, error) {
		return p.GenerateEmbedding(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("embed via %s: %w", providerName, err)
	}
	return resp, nil
}
