package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/ai-supportdesk/internal/infra/config"
	"github.com/yanqian/ai-supportdesk/internal/infra/embedding"
	"github.com/yanqian/ai-supportdesk/internal/infra/faqcorpus"
	"github.com/yanqian/ai-supportdesk/internal/infra/faqrepo"
	"github.com/yanqian/ai-supportdesk/internal/infra/llm/chatgpt"
	"github.com/yanqian/ai-supportdesk/pkg/logger"
)

// buildDeps resolves collaborators from the service configuration. Unlike the server,
// an unreachable database is an error here.
func buildDeps(ctx context.Context, flags seedFlags) (seedDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return seedDeps{}, err
	}
	log := logger.New().With("component", "seedfaq")

	var client *chatgpt.Client
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		if client, err = chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL); err != nil {
			return seedDeps{}, err
		}
	}
	embedder := embedding.NewChain(cfg.Embedding, client, log)

	source := faqcorpus.Source(faqcorpus.FileSource{Path: flags.file})
	if flags.file == "" {
		obj := cfg.FAQ.Corpus.Object
		source, err = faqcorpus.Resolve(cfg.FAQ.Corpus.Path, faqcorpus.ObjectConfig{
			Endpoint:  obj.Endpoint,
			AccessKey: obj.AccessKey,
			SecretKey: obj.SecretKey,
			Bucket:    obj.Bucket,
			Region:    obj.Region,
			Key:       obj.Key,
		}, log)
		if err != nil {
			return seedDeps{}, err
		}
	}

	deps := seedDeps{source: source, embedder: embedder, logger: log}
	dsn := strings.TrimSpace(cfg.FAQ.Postgres.DSN)
	if dsn == "" {
		log.Warn("faq postgres dsn not set, seeding an in-memory store")
		deps.repo = faqrepo.NewMemoryRepository()
		return deps, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return seedDeps{}, fmt.Errorf("connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return seedDeps{}, fmt.Errorf("ping postgres: %w", err)
	}
	repo := faqrepo.NewPostgresRepository(pool)
	if flags.initSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return seedDeps{}, fmt.Errorf("init schema: %w", err)
		}
		log.Info("faq schema ensured")
	}
	deps.repo = repo
	deps.close = pool.Close
	return deps, nil
}
