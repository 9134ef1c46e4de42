package faqstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

type cachedValue struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is an in-memory cache and query tracker for tests/dev.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string]cachedValue
	trending map[string]int64
	displays map[string]string
	now      func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]cachedValue),
		trending: make(map[string]int64),
		displays: make(map[string]string),
		now:      time.Now,
	}
}

// Get implements faq.Cache.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	record, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.values, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), record.payload...), true, nil
}

// Set implements faq.Cache. A non-positive ttl keeps the value until deleted.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.values[key] = cachedValue{
		payload:   append([]byte(nil), value...),
		expiresAt: exp,
	}
	return nil
}

// Delete implements faq.Cache.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// IncrementQuery bumps the counter for a canonical query and records a display string.
func (s *MemoryStore) IncrementQuery(_ context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending[canonical]++
	if _, exists := s.displays[canonical]; !exists {
		s.displays[canonical] = display
	}
	return nil
}

// TopQueries returns the most frequent canonical questions.
func (s *MemoryStore) TopQueries(_ context.Context, limit int) ([]chat.TrendingQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = len(s.trending)
	}
	items := make([]chat.TrendingQuery, 0, len(s.trending))
	for canonical, count := range s.trending {
		display := s.displays[canonical]
		if display == "" {
			display = canonical
		}
		items = append(items, chat.TrendingQuery{Query: display, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Query < items[j].Query
		}
		return items[i].Count > items[j].Count
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *MemoryStore) hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(s.now())
}

var (
	_ faq.Cache         = (*MemoryStore)(nil)
	_ chat.QueryTracker = (*MemoryStore)(nil)
)
