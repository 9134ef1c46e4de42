package faq

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// CacheKeyPrefix namespaces retrieval results inside a shared cache.
const CacheKeyPrefix = "faq_search:"

// CacheKey derives the cache slot for a query and result count.
// Only the trimmed, lowercased query text and k contribute to the key.
func CacheKey(query string, k int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized + ":" + strconv.Itoa(k)))
	return CacheKeyPrefix + hex.EncodeToString(sum[:])
}
