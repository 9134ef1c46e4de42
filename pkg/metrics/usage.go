package metrics

import (
	"log/slog"
	"sync"
)

// TokenUsage captures LLM token counts used to satisfy a request.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// Add returns the field-wise sum.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// LogValue renders usage as a group.
func (u TokenUsage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("prompt_tokens", u.PromptTokens),
		slog.Int("completion_tokens", u.CompletionTokens),
		slog.Int("total_tokens", u.TotalTokens),
	)
}

// Meter accumulates usage across calls. It is safe for concurrent use.
type Meter struct {
	mu    sync.Mutex
	total TokenUsage
	calls int
}

// Record adds u and returns the running total.
func (m *Meter) Record(u TokenUsage) TokenUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = m.total.Add(u)
	m.calls++
	return m.total
}

// Snapshot returns the running total and the number of recorded calls.
func (m *Meter) Snapshot() (TokenUsage, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, m.calls
}
