package faq

import (
	"strings"
	"time"
)

// EmbeddingRole tells the provider how the text will be used.
type EmbeddingRole string

const (
	// RoleQuery marks a user search query.
	RoleQuery EmbeddingRole = "query"
	// RoleDocument marks corpus content embedded during seeding.
	RoleDocument EmbeddingRole = "document"
)

// Entry is a single FAQ item of the support corpus.
type Entry struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

// HasEmbedding reports whether the entry can be scored.
func (e Entry) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// QuestionKey is the identity of an entry in a repository. Surrounding whitespace is
// ignored and case is significant.
func QuestionKey(question string) string {
	return strings.TrimSpace(question)
}

// RankedResult pairs an entry with its similarity to the query.
type RankedResult struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// SearchRequest is the transport payload for ad-hoc FAQ searches.
type SearchRequest struct {
	Query string `json:"query" form:"q"`
	TopK  int    `json:"topK" form:"k"`
}

// SearchResult is a trimmed view of a ranked entry for API responses.
type SearchResult struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// SearchResponse is returned by the FAQ search endpoint.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Context string         `json:"context"`
}
