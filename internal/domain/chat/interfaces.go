package chat

import "context"

// Retriever supplies formatted FAQ grounding for a question.
type Retriever interface {
	RetrieveAndFormat(ctx context.Context, query string, k int) (string, error)
}

// LLM generates a reply from a prompt.
type LLM interface {
	Chat(ctx context.Context, messages []LLMMessage) (string, error)
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, sessionID string) (Conversation, error)
	Find(ctx context.Context, sessionID string) (Conversation, bool, error)
	// AppendPair stores a user message and the reply to it together.
	AppendPair(ctx context.Context, sessionID string, user, reply Message) error
	// ListRecent returns the newest messages that fit the budgets, oldest first.
	ListRecent(ctx context.Context, sessionID string, maxTokens, maxMessages int) ([]Message, error)
	List(ctx context.Context, sessionID string) ([]Message, error)
}

// QueryTracker counts questions so popular ones can be suggested.
type QueryTracker interface {
	IncrementQuery(ctx context.Context, canonical, display string) error
	TopQueries(ctx context.Context, limit int) ([]TrendingQuery, error)
}

// TokenCounter estimates prompt tokens for a text.
type TokenCounter interface {
	Count(text string) int
}
