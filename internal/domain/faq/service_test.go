package faq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/ai-supportdesk/pkg/errors"
)

func TestRetrieveCacheMissThenHit(t *testing.T) {
	shipping := Entry{ID: "1", Category: "Shipping", Question: "What is your shipping policy?", Answer: "Free over $50.", Embedding: unitWithCos(0.9)}
	returns := Entry{ID: "2", Category: "Returns", Question: "What is your return policy?", Answer: "30 days.", Embedding: unitWithCos(0.3)}
	repo := &stubRepository{entries: []Entry{returns, shipping}}
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	cache := newFakeCache()
	svc := NewService(Config{}, repo, cache, embedder, newTestLogger())

	first, err := svc.Retrieve(context.Background(), "Shipping Policy  ", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, "1", first[0].Entry.ID)
	require.InDelta(t, 0.9, first[0].Score, 1e-5)
	require.Equal(t, "2", first[1].Entry.ID)
	require.InDelta(t, 0.3, first[1].Score, 1e-5)
	require.Equal(t, 1, embedder.calls)
	require.Equal(t, RoleQuery, embedder.lastRole)
	require.Equal(t, 1, repo.calls)
	require.Equal(t, time.Hour, cache.lastTTL)

	second, err := svc.Retrieve(context.Background(), "  shipping POLICY", 2)
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls)
	require.Equal(t, 1, repo.calls)
	require.Len(t, second, 2)
	for i := range first {
		require.Equal(t, first[i].Entry.ID, second[i].Entry.ID)
		require.Equal(t, first[i].Entry.Question, second[i].Entry.Question)
		require.InDelta(t, first[i].Score, second[i].Score, 1e-12)
	}
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	svc := NewService(Config{}, &stubRepository{}, nil, &stubEmbedder{vector: []float32{1, 0}}, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
}

func TestRetrieveEmbeddingFailureDegrades(t *testing.T) {
	repo := &stubRepository{entries: []Entry{{ID: "1", Question: "q", Answer: "a", Embedding: []float32{1, 0}}}}
	cache := newFakeCache()
	svc := NewService(Config{}, repo, cache, &stubEmbedder{err: errors.New("quota exceeded")}, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "shipping", 3)
	require.NoError(t, err)
	require.Empty(t, results)
	require.Equal(t, 0, repo.calls)
	require.Equal(t, 0, cache.sets)
}

func TestRetrieveRepositoryFailurePropagates(t *testing.T) {
	svc := NewService(Config{}, &stubRepository{err: errors.New("connection refused")}, nil, &stubEmbedder{vector: []float32{1}}, newTestLogger())

	_, err := svc.Retrieve(context.Background(), "shipping", 3)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeStorage))
}

func TestRetrieveSkipsUnscorableEntries(t *testing.T) {
	entries := []Entry{
		{ID: "no-embedding", Question: "a"},
		{ID: "wrong-dims", Question: "b", Embedding: []float32{1, 0, 0}},
		{ID: "ok-low", Question: "c", Embedding: []float32{0, 1}},
		{ID: "ok-high", Question: "d", Embedding: []float32{1, 0.1}},
	}
	cache := newFakeCache()
	svc := NewService(Config{}, &stubRepository{entries: entries}, cache, &stubEmbedder{vector: []float32{1, 0}}, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "query", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "ok-high", results[0].Entry.ID)
	require.Equal(t, "ok-low", results[1].Entry.ID)
	require.Equal(t, 0, cache.sets)
}

func TestRetrieveCachesWhenOnlyUnembeddedEntriesAreSkipped(t *testing.T) {
	entries := []Entry{
		{ID: "pending", Question: "a"},
		{ID: "ready", Question: "b", Embedding: []float32{1, 0}},
	}
	cache := newFakeCache()
	svc := NewService(Config{}, &stubRepository{entries: entries}, cache, &stubEmbedder{vector: []float32{1, 0}}, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "query", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1, cache.sets)
}

func TestRetrieveFallbackProviderDoesNotPoisonCache(t *testing.T) {
	repo := &stubRepository{entries: []Entry{
		{ID: "refunds", Question: "How long do refunds take?", Answer: "5-7 business days.", Embedding: []float32{1, 0, 0}},
	}}
	cohere := &stubEmbedder{name: "cohere", err: errors.New("503 service unavailable")}
	huggingface := &stubEmbedder{name: "huggingface", vector: []float32{1, 0}}
	chain := NewProviderChain(newTestLogger(), cohere, huggingface)
	cache := newFakeCache()
	svc := NewService(Config{}, repo, cache, chain, newTestLogger())

	during, err := svc.Retrieve(context.Background(), "refund time", 3)
	require.NoError(t, err)
	require.Empty(t, during)
	require.Equal(t, 1, huggingface.calls)
	require.Equal(t, 0, cache.sets)
	require.Empty(t, cache.data)

	cohere.err = nil
	cohere.vector = []float32{1, 0, 0}
	after, err := svc.Retrieve(context.Background(), "refund time", 3)
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.Equal(t, "refunds", after[0].Entry.ID)
	require.Equal(t, 1, huggingface.calls)
	require.Equal(t, 1, cache.sets)

	cached, err := decodeRanking(cache.data[CacheKey("refund time", 3)])
	require.NoError(t, err)
	require.Len(t, cached, 1)
	require.Equal(t, "refunds", cached[0].Entry.ID)

	uncached, err := NewService(Config{}, repo, nil, chain, newTestLogger()).Retrieve(context.Background(), "refund time", 3)
	require.NoError(t, err)
	require.Len(t, uncached, 1)
	require.Equal(t, after[0].Entry.ID, uncached[0].Entry.ID)
	require.InDelta(t, after[0].Score, uncached[0].Score, 1e-12)
}

func TestRetrieveTruncatesAndSorts(t *testing.T) {
	entries := make([]Entry, 0, 6)
	for i, cos := range []float64{0.1, 0.8, -0.4, 0.95, 0.5, 0.0} {
		entries = append(entries, Entry{ID: string(rune('a' + i)), Embedding: unitWithCos(cos)})
	}
	svc := NewService(Config{}, &stubRepository{entries: entries}, nil, &stubEmbedder{vector: []float32{1, 0}}, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i := 1; i < len(results); i++ {
		require.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	require.Equal(t, "d", results[0].Entry.ID)

	all, err := svc.Retrieve(context.Background(), "query", 50)
	require.NoError(t, err)
	require.Len(t, all, len(entries))
}

func TestRetrieveStableTieBreak(t *testing.T) {
	entries := []Entry{
		{ID: "first", Embedding: []float32{1, 1}},
		{ID: "top", Embedding: []float32{1, 0}},
		{ID: "second", Embedding: []float32{2, 2}},
		{ID: "third", Embedding: []float32{0.5, 0.5}},
	}
	svc := NewService(Config{}, &stubRepository{entries: entries}, nil, &stubEmbedder{vector: []float32{1, 0}}, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Entry.ID)
	}
	require.Equal(t, []string{"top", "first", "second", "third"}, ids)
}

func TestRetrieveIgnoresCacheFailures(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("cache unreachable")
	cache.setErr = errors.New("cache unreachable")
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	repo := &stubRepository{entries: []Entry{{ID: "1", Embedding: []float32{1, 0}}}}
	svc := NewService(Config{}, repo, cache, embedder, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1, embedder.calls)
}

func TestRetrieveDiscardsMalformedCacheEntry(t *testing.T) {
	cache := newFakeCache()
	key := CacheKey("query", 3)
	cache.data[key] = []byte(`{"faqs": [{"question": "stale"}]}`)
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	repo := &stubRepository{entries: []Entry{{ID: "fresh", Embedding: []float32{1, 0}}}}
	svc := NewService(Config{}, repo, cache, embedder, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "fresh", results[0].Entry.ID)
	require.Equal(t, 1, cache.deletes)
	require.Equal(t, 1, embedder.calls)

	decoded, err := decodeRanking(cache.data[key])
	require.NoError(t, err)
	require.Equal(t, "fresh", decoded[0].Entry.ID)
}

func TestRetrieveSlowCacheFallsBack(t *testing.T) {
	cache := newFakeCache()
	cache.block = true
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	repo := &stubRepository{entries: []Entry{{ID: "1", Embedding: []float32{1, 0}}}}
	svc := NewService(Config{CacheTimeout: 20 * time.Millisecond}, repo, cache, embedder, newTestLogger())

	start := time.Now()
	results, err := svc.Retrieve(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Less(t, time.Since(start), time.Second)
}

func TestRetrieveDefaultsK(t *testing.T) {
	entries := make([]Entry, 0, 5)
	for i := 0; i < 5; i++ {
		entries = append(entries, Entry{ID: string(rune('a' + i)), Embedding: []float32{1, float32(i)}})
	}
	svc := NewService(Config{TopK: 2}, &stubRepository{entries: entries}, nil, &stubEmbedder{vector: []float32{1, 0}}, newTestLogger())

	results, err := svc.Retrieve(context.Background(), "query", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestRetrieveAndFormat(t *testing.T) {
	entries := []Entry{
		{ID: "1", Question: "What is your return policy?", Answer: "30 days.", Embedding: unitWithCos(0.2)},
		{ID: "2", Question: "How long does shipping take?", Answer: "5-7 business days.", Embedding: unitWithCos(0.7)},
	}
	svc := NewService(Config{}, &stubRepository{entries: entries}, nil, &stubEmbedder{vector: []float32{1, 0}}, newTestLogger())

	got, err := svc.RetrieveAndFormat(context.Background(), "shipping time", 2)
	require.NoError(t, err)
	require.Equal(t, "1. How long does shipping take? → 5-7 business days.\n2. What is your return policy? → 30 days.", got)
}

func TestSearchValidatesInput(t *testing.T) {
	svc := NewService(Config{}, &stubRepository{}, nil, &stubEmbedder{}, newTestLogger())

	_, err := svc.Search(context.Background(), SearchRequest{Query: "   "})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Search(context.Background(), SearchRequest{Query: "ok", TopK: -1})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestSearchReturnsScores(t *testing.T) {
	entries := []Entry{{ID: "1", Category: "Payment", Question: "Which cards?", Answer: "Visa.", Embedding: []float32{1, 0}}}
	svc := NewService(Config{}, &stubRepository{entries: entries}, nil, &stubEmbedder{vector: []float32{1, 0}}, newTestLogger())

	resp, err := svc.Search(context.Background(), SearchRequest{Query: " cards ", TopK: 1})
	require.NoError(t, err)
	require.Equal(t, "cards", resp.Query)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "Payment", resp.Results[0].Category)
	require.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
	require.Equal(t, "1. Which cards? → Visa.", resp.Context)
}

// unitWithCos returns a 2D unit vector whose cosine with (1, 0) is cos.
func unitWithCos(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRepository struct {
	entries []Entry
	err     error
	calls   int
	upserts []Entry
}

func (r *stubRepository) LoadAll(context.Context) ([]Entry, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return append([]Entry(nil), r.entries...), nil
}

func (r *stubRepository) Upsert(_ context.Context, entry Entry) (Entry, error) {
	r.upserts = append(r.upserts, entry)
	return entry, nil
}

type stubEmbedder struct {
	name     string
	vector   []float32
	err      error
	calls    int
	lastRole EmbeddingRole
	lastText string
}

func (e *stubEmbedder) Name() string {
	if e.name == "" {
		return "stub"
	}
	return e.name
}

func (e *stubEmbedder) Embed(_ context.Context, text string, role EmbeddingRole) ([]float32, error) {
	e.calls++
	e.lastRole = role
	e.lastText = text
	if e.err != nil {
		return nil, e.err
	}
	return append([]float32(nil), e.vector...), nil
}

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	block   bool
	sets    int
	deletes int
	lastTTL time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.block {
		<-ctx.Done()
		return nil, false, ctx.Err()
	}
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.lastTTL = ttl
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.data, key)
	return nil
}
