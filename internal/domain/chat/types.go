package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Conversation groups the messages of one chat session.
type Conversation struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	MessageCount  int       `json:"messageCount"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// Message is a single persisted turn.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"-"`
	Sender     Sender    `json:"sender"`
	Content    string    `json:"content"`
	TokenCount int       `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// SendRequest is the inbound chat payload.
type SendRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"sessionId"`
}

// SendResponse carries the assistant reply and the session to continue with.
type SendResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
}

// HistoryResponse lists a session's messages oldest first.
type HistoryResponse struct {
	Messages []Message `json:"messages"`
}

// SuggestionsResponse lists prompts the UI can offer.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// TrendingQuery is a frequently asked question with its hit count.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// LLMMessage mirrors a simplified chat payload.
type LLMMessage struct {
	Role    string
	Content string
}
