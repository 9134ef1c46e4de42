package faqrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

// MemoryRepository is an in-memory faq.Repository used for tests/dev.
// LoadAll returns entries in insertion order.
type MemoryRepository struct {
	mu         sync.RWMutex
	entries    []faq.Entry
	byQuestion map[string]int
}

// NewMemoryRepository constructs a repo backed by memory, optionally pre-populated.
func NewMemoryRepository(seed ...faq.Entry) *MemoryRepository {
	repo := &MemoryRepository{byQuestion: make(map[string]int)}
	for _, entry := range seed {
		_, _ = repo.Upsert(context.Background(), entry)
	}
	return repo
}

// LoadAll implements faq.Repository.
func (r *MemoryRepository) LoadAll(_ context.Context) ([]faq.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]faq.Entry, len(r.entries))
	for i, entry := range r.entries {
		out[i] = cloneEntry(entry)
	}
	return out, nil
}

// Upsert implements faq.Repository. Entries are matched on their question text.
func (r *MemoryRepository) Upsert(_ context.Context, entry faq.Entry) (faq.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.Question = faq.QuestionKey(entry.Question)
	key := entry.Question
	if idx, ok := r.byQuestion[key]; ok {
		entry.ID = r.entries[idx].ID
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = r.entries[idx].CreatedAt
		}
		r.entries[idx] = cloneEntry(entry)
		return cloneEntry(entry), nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.byQuestion[key] = len(r.entries)
	r.entries = append(r.entries, cloneEntry(entry))
	return cloneEntry(entry), nil
}

func cloneEntry(entry faq.Entry) faq.Entry {
	if entry.Embedding != nil {
		entry.Embedding = append([]float32(nil), entry.Embedding...)
	}
	return entry
}

var _ faq.Repository = (*MemoryRepository)(nil)
