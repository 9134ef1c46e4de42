package faq

import (
	"context"
	"time"
)

// Cache is an expiring key-value store for serialized rankings.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NoopCache stands in when no cache is configured. Reads always miss.
type NoopCache struct{}

// Get implements Cache.
func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set implements Cache.
func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete implements Cache.
func (NoopCache) Delete(context.Context, string) error { return nil }

var _ Cache = NoopCache{}
