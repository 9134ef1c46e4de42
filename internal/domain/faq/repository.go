package faq

import "context"

// Repository holds the FAQ corpus.
type Repository interface {
	// LoadAll returns every entry in insertion order.
	LoadAll(ctx context.Context) ([]Entry, error)
	// Upsert stores an entry keyed by its question text.
	Upsert(ctx context.Context, entry Entry) (Entry, error)
}
