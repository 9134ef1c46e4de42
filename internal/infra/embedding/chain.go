package embedding

import (
	"log/slog"
	"strings"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
	"github.com/yanqian/ai-supportdesk/internal/infra/config"
	"github.com/yanqian/ai-supportdesk/internal/infra/llm/chatgpt"
)

// NewChain builds the provider chain in the configured order. Providers that cannot be
// constructed are skipped. When none remain the deterministic embedder is used so that
// retrieval still works offline.
func NewChain(cfg config.EmbeddingConfig, client *chatgpt.Client, logger *slog.Logger) *faq.ProviderChain {
	if logger == nil {
		logger = slog.Default()
	}
	providers := make([]faq.EmbeddingProvider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		provider, err := build(strings.ToLower(strings.TrimSpace(name)), cfg, client, logger)
		if err != nil {
			logger.Warn("embedding provider unavailable", "provider", name, "error", err)
			continue
		}
		if provider != nil {
			providers = append(providers, provider)
		}
	}
	if len(providers) == 0 {
		logger.Warn("no embedding provider configured, using deterministic embeddings")
		providers = append(providers, NewDeterministicProvider(cfg.Deterministic.Dimensions))
	}
	chain := faq.NewProviderChain(logger, providers...)
	names := make([]string, 0, chain.Len())
	for _, p := range providers {
		names = append(names, p.Name())
	}
	logger.Info("embedding providers ready", "count", chain.Len(), "order", names)
	return chain
}

func build(name string, cfg config.EmbeddingConfig, client *chatgpt.Client, logger *slog.Logger) (faq.EmbeddingProvider, error) {
	switch name {
	case "cohere":
		return NewCohereProvider(cfg.Cohere.APIKey, cfg.Cohere.Model, cfg.Cohere.BaseURL, cfg.Timeout)
	case "huggingface":
		return NewHuggingFaceProvider(cfg.HuggingFace.APIKey, cfg.HuggingFace.Model, cfg.HuggingFace.BaseURL, cfg.Timeout, logger)
	case "openai":
		if client == nil {
			logger.Warn("openai embeddings need an llm api key, skipping")
			return nil, nil
		}
		return NewOpenAIProvider(client, cfg.OpenAI.Model, cfg.OpenAI.Dimensions), nil
	case "deterministic":
		return NewDeterministicProvider(cfg.Deterministic.Dimensions), nil
	default:
		logger.Warn("unknown embedding provider, skipping", "provider", name)
		return nil, nil
	}
}
