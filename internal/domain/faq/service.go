package faq

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	apperrors "github.com/yanqian/ai-supportdesk/pkg/errors"
	"github.com/yanqian/ai-supportdesk/pkg/util"
)

// Service exposes FAQ retrieval for the conversation flow and the HTTP layer.
type Service interface {
	Retrieve(ctx context.Context, query string, k int) ([]RankedResult, error)
	RetrieveAndFormat(ctx context.Context, query string, k int) (string, error)
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
}

type service struct {
	cfg      Config
	repo     Repository
	cache    Cache
	embedder EmbeddingProvider
	logger   *slog.Logger
}

// NewService wires up FAQ retrieval. A nil cache disables caching.
func NewService(cfg Config, repo Repository, cache Cache, embedder EmbeddingProvider, logger *slog.Logger) Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &service{
		cfg:      cfg.withDefaults(),
		repo:     repo,
		cache:    cache,
		embedder: embedder,
		logger:   logger.With("component", "faq.service"),
	}
}

// Retrieve returns at most k entries ordered by descending similarity to query.
// Only a failure to load the corpus is returned as an error.
func (s *service) Retrieve(ctx context.Context, query string, k int) ([]RankedResult, error) {
	if k <= 0 {
		k = s.cfg.TopK
	}
	key := CacheKey(query, k)

	if cached, ok := s.lookup(ctx, key); ok {
		return cached, nil
	}

	queryVector, provider, err := s.embedQuery(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, continuing without faq context", "query", util.Preview(query, 80), "error", err)
		return []RankedResult{}, nil
	}

	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to load faq entries", err)
	}
	if len(entries) == 0 {
		s.logger.Warn("faq corpus is empty")
		return []RankedResult{}, nil
	}

	ranked, skipped := s.rank(queryVector, entries)
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	// Partial rankings are never cached.
	if skipped > 0 {
		s.logger.Warn("faq ranking incomplete, not caching", "provider", provider, "query_dims", len(queryVector), "skipped", skipped, "results", len(ranked))
		return ranked, nil
	}
	s.store(ctx, key, ranked)
	return ranked, nil
}

// RetrieveAndFormat composes Retrieve and FormatContext.
func (s *service) RetrieveAndFormat(ctx context.Context, query string, k int) (string, error) {
	results, err := s.Retrieve(ctx, query, k)
	if err != nil {
		return "", err
	}
	return FormatContext(results), nil
}

func (s *service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return SearchResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "query cannot be empty", nil)
	}
	if req.TopK < 0 {
		return SearchResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "k must be positive", nil)
	}
	results, err := s.Retrieve(ctx, query, req.TopK)
	if err != nil {
		return SearchResponse{}, err
	}
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			ID:       r.Entry.ID,
			Category: r.Entry.Category,
			Question: r.Entry.Question,
			Answer:   r.Entry.Answer,
			Score:    r.Score,
		})
	}
	return SearchResponse{Query: query, Results: out, Context: FormatContext(results)}, nil
}

func (s *service) lookup(ctx context.Context, key string) ([]RankedResult, bool) {
	cacheCtx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()

	raw, found, err := s.cache.Get(cacheCtx, key)
	if err != nil {
		s.logger.Warn("faq cache read failed, continuing without cache", "key", shortKey(key), "error", err)
		return nil, false
	}
	if !found {
		s.logger.Debug("faq cache miss", "key", shortKey(key))
		return nil, false
	}
	results, err := decodeRanking(raw)
	if err != nil {
		s.logger.Warn("discarding malformed faq cache entry", "key", shortKey(key), "error", err)
		if delErr := s.cache.Delete(cacheCtx, key); delErr != nil {
			s.logger.Debug("faq cache delete failed", "key", shortKey(key), "error", delErr)
		}
		return nil, false
	}
	s.logger.Info("faq cache hit", "key", shortKey(key), "results", len(results))
	return results, true
}

func (s *service) store(ctx context.Context, key string, results []RankedResult) {
	payload, err := encodeRanking(results)
	if err != nil {
		s.logger.Warn("faq cache encode failed", "error", err)
		return
	}
	cacheCtx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()
	if err := s.cache.Set(cacheCtx, key, payload, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("faq cache write failed", "key", shortKey(key), "error", err)
		return
	}
	s.logger.Debug("faq results cached", "key", shortKey(key), "ttl", s.cfg.CacheTTL, "results", len(results))
}

func (s *service) embedQuery(ctx context.Context, query string) ([]float32, string, error) {
	if s.embedder == nil {
		return nil, "", ErrNoEmbeddingProvider
	}
	if s.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EmbedTimeout)
		defer cancel()
	}
	if chain, ok := s.embedder.(*ProviderChain); ok {
		return chain.EmbedWithSource(ctx, query, RoleQuery)
	}
	vector, err := s.embedder.Embed(ctx, query, RoleQuery)
	return vector, s.embedder.Name(), err
}

func (s *service) loadEntries(ctx context.Context) ([]Entry, error) {
	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}
	return s.repo.LoadAll(ctx)
}

// rank scores every embedded entry. skipped counts embedded entries that could not be scored.
func (s *service) rank(queryVector []float32, entries []Entry) (ranked []RankedResult, skipped int) {
	ranked = make([]RankedResult, 0, len(entries))
	for _, entry := range entries {
		if !entry.HasEmbedding() {
			continue
		}
		sim, err := score(queryVector, entry.Embedding)
		if err != nil {
			s.logger.Debug("skipping faq entry", "id", entry.ID, "error", err)
			skipped++
			continue
		}
		ranked = append(ranked, RankedResult{Entry: entry, Score: sim})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, skipped
}

func shortKey(key string) string {
	if len(key) <= len(CacheKeyPrefix)+12 {
		return key
	}
	return key[:len(CacheKeyPrefix)+12]
}
