package faq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// EmbeddingProvider turns text into a fixed-length vector.
type EmbeddingProvider interface {
	Name() string
	Embed(ctx context.Context, text string, role EmbeddingRole) ([]float32, error)
}

// ErrNoEmbeddingProvider is returned by an empty provider chain.
var ErrNoEmbeddingProvider = errors.New("no embedding provider configured")

// ProviderChain tries each provider in order until one returns a vector.
type ProviderChain struct {
	providers []EmbeddingProvider
	logger    *slog.Logger
}

// NewProviderChain builds a chain; nil providers are ignored.
func NewProviderChain(logger *slog.Logger, providers ...EmbeddingProvider) *ProviderChain {
	if logger == nil {
		logger = slog.Default()
	}
	filtered := make([]EmbeddingProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			filtered = append(filtered, p)
		}
	}
	return &ProviderChain{providers: filtered, logger: logger.With("component", "faq.embedding_chain")}
}

// Name implements EmbeddingProvider.
func (c *ProviderChain) Name() string {
	return "chain"
}

// Len reports the number of configured providers.
func (c *ProviderChain) Len() int {
	return len(c.providers)
}

// Embed implements EmbeddingProvider.
func (c *ProviderChain) Embed(ctx context.Context, text string, role EmbeddingRole) ([]float32, error) {
	vector, _, err := c.EmbedWithSource(ctx, text, role)
	return vector, err
}

// EmbedWithSource embeds text and reports which provider produced the vector.
func (c *ProviderChain) EmbedWithSource(ctx context.Context, text string, role EmbeddingRole) ([]float32, string, error) {
	if len(c.providers) == 0 {
		return nil, "", ErrNoEmbeddingProvider
	}
	var errs []error
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		vector, err := provider.Embed(ctx, text, role)
		if err == nil && len(vector) == 0 {
			err = errors.New("empty embedding")
		}
		if err != nil {
			c.logger.Warn("embedding provider failed", "provider", provider.Name(), "role", role, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
			continue
		}
		c.logger.Debug("embedding provider succeeded", "provider", provider.Name(), "role", role, "dims", len(vector))
		return vector, provider.Name(), nil
	}
	return nil, "", fmt.Errorf("all embedding providers failed: %w", errors.Join(errs...))
}

var _ EmbeddingProvider = (*ProviderChain)(nil)
