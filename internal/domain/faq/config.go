package faq

import "time"

const (
	defaultTopK         = 3
	defaultCacheTTL     = time.Hour
	defaultCacheTimeout = 2 * time.Second
)

// Config holds runtime knobs for FAQ retrieval.
type Config struct {
	TopK         int
	CacheTTL     time.Duration
	CacheTimeout time.Duration
	EmbedTimeout time.Duration
	LoadTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.CacheTimeout <= 0 {
		c.CacheTimeout = defaultCacheTimeout
	}
	return c
}
