package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
	"github.com/yanqian/ai-supportdesk/internal/infra/chatlog"
	"github.com/yanqian/ai-supportdesk/internal/infra/config"
	"github.com/yanqian/ai-supportdesk/internal/infra/embedding"
	"github.com/yanqian/ai-supportdesk/internal/infra/faqcorpus"
	"github.com/yanqian/ai-supportdesk/internal/infra/faqrepo"
	"github.com/yanqian/ai-supportdesk/internal/infra/faqstore"
	"github.com/yanqian/ai-supportdesk/internal/infra/llm"
	"github.com/yanqian/ai-supportdesk/internal/infra/llm/chatgpt"
	"github.com/yanqian/ai-supportdesk/internal/infra/tokenizer"
)

// cacheStore is the shared backend behind the FAQ cache and the trending tracker.
type cacheStore interface {
	faq.Cache
	chat.QueryTracker
}

// provideChatGPTClient returns nil when no API key is configured.
func provideChatGPTClient(cfg *config.Config, logger *slog.Logger) *chatgpt.Client {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Warn("llm api key not set, chat replies will use the offline responder")
		return nil
	}
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		logger.Error("failed to create chatgpt client", "error", err)
		return nil
	}
	return client
}

func provideFAQConfig(cfg *config.Config) faq.Config {
	return faq.Config{
		TopK:         cfg.FAQ.TopK,
		CacheTTL:     cfg.FAQ.CacheTTL,
		CacheTimeout: cfg.FAQ.CacheTimeout,
		EmbedTimeout: cfg.FAQ.EmbedTimeout,
		LoadTimeout:  cfg.FAQ.LoadTimeout,
	}
}

func provideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		HistoryLimit:     cfg.Chat.HistoryLimit,
		HistoryTokens:    cfg.Chat.HistoryTokens,
		FAQTopK:          cfg.FAQ.TopK,
		SuggestionLimit:  cfg.Chat.SuggestionLimit,
		SystemPrompt:     cfg.Chat.SystemPrompt,
	}
}

func provideEmbeddingProvider(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) faq.EmbeddingProvider {
	return embedding.NewChain(cfg.Embedding, client, logger)
}

func provideFAQRepository(cfg *config.Config, embedder faq.EmbeddingProvider, logger *slog.Logger) (faq.Repository, func()) {
	var repo faq.Repository
	cleanup := func() {}
	pool := openPool(cfg.FAQ.Postgres, "faq", logger)
	if pool != nil {
		pg := faqrepo.NewPostgresRepository(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := pg.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logger.Error("faq schema setup failed, using memory repository", "error", err)
			pool.Close()
		} else {
			logger.Info("faq postgres repository enabled")
			repo = pg
			cleanup = pool.Close
		}
	}
	if repo == nil {
		repo = faqrepo.NewMemoryRepository()
	}
	if cfg.FAQ.SeedOnStart {
		seedOnStart(cfg, repo, embedder, logger)
	}
	return repo, cleanup
}

func seedOnStart(cfg *config.Config, repo faq.Repository, embedder faq.EmbeddingProvider, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	source, err := faqcorpus.Resolve(cfg.FAQ.Corpus.Path, corpusObjectConfig(cfg.FAQ.Corpus.Object), logger)
	if err != nil {
		logger.Error("faq corpus source unavailable, skipping seed", "error", err)
		return
	}
	entries, err := source.Load(ctx)
	if err != nil {
		logger.Error("faq corpus load failed, skipping seed", "error", err)
		return
	}
	seeder := faq.NewSeeder(repo, embedder, logger)
	if _, err := seeder.Seed(ctx, entries, faq.SeedOptions{SkipExisting: true}); err != nil {
		logger.Error("faq seeding failed", "error", err)
	}
}

func corpusObjectConfig(o config.ObjectConfig) faqcorpus.ObjectConfig {
	return faqcorpus.ObjectConfig{
		Endpoint:  o.Endpoint,
		AccessKey: o.AccessKey,
		SecretKey: o.SecretKey,
		Bucket:    o.Bucket,
		Region:    o.Region,
		Key:       o.Key,
	}
}

func provideCacheStore(cfg *config.Config, logger *slog.Logger) (cacheStore, func()) {
	noop := func() {}
	if cfg.FAQ.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore(), noop
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore(), noop
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
		} else {
			logger.Info("faq valkey store enabled", "addr", cfg.FAQ.Redis.Addr)
			return faqstore.NewValkeyStore(client, cfg.FAQ.Redis.Prefix), client.Close
		}
	}
	return faqstore.NewMemoryStore(), noop
}

// provideFAQCache returns nil, which disables caching, when only the memory store is
// available and the memory cache is switched off.
func provideFAQCache(cfg *config.Config, store cacheStore) faq.Cache {
	if _, isMemory := store.(*faqstore.MemoryStore); isMemory && !cfg.FAQ.MemoryCache {
		return nil
	}
	return store
}

func provideQueryTracker(store cacheStore) chat.QueryTracker {
	return store
}

func provideRetriever(svc faq.Service) chat.Retriever {
	return svc
}

// provideLLM reports the tokens spent by the process when the app shuts down.
func provideLLM(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) (chat.LLM, func()) {
	if client == nil {
		return llm.EchoLLM{}, func() {}
	}
	inner := llm.NewChatGPTLLM(client, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens, logger)
	retrying := llm.NewRetryLLM(inner, llm.RetryConfig{
		MaxAttempts: cfg.LLM.Retry.MaxAttempts,
		BaseDelay:   cfg.LLM.Retry.BaseDelay,
		MaxDelay:    cfg.LLM.Retry.MaxDelay,
		Timeout:     cfg.LLM.Retry.Timeout,
	}, logger)
	return retrying, func() {
		total, calls := inner.Usage()
		logger.Info("llm usage", "model", cfg.LLM.Model, "completions", calls, "usage", total)
	}
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) chat.TokenCounter {
	return tokenizer.NewCounter(cfg.LLM.Model, logger)
}

func provideConversationStore(cfg *config.Config, logger *slog.Logger) (chat.ConversationStore, func()) {
	noop := func() {}
	pool := openPool(cfg.Chat.Postgres, "chat", logger)
	if pool == nil {
		return chatlog.NewMemoryLog(), noop
	}
	store := chatlog.NewPostgresLog(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("chat schema setup failed, using memory log", "error", err)
		pool.Close()
		return chatlog.NewMemoryLog(), noop
	}
	logger.Info("chat postgres log enabled")
	return store, pool.Close
}

// openPool returns nil when the DSN is empty or the database cannot be reached.
func openPool(pg config.PostgresConfig, name string, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(pg.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory adapter", "store", name)
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory adapter", "store", name, "error", err)
		return nil
	}
	if pg.MaxConns > 0 {
		poolConfig.MaxConns = pg.MaxConns
	}
	if pg.MinConns > 0 {
		poolConfig.MinConns = pg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory adapter", "store", name, "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory adapter", "store", name, "error", err)
		pool.Close()
		return nil
	}
	return pool
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.FAQ.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.FAQ.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.FAQ.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
