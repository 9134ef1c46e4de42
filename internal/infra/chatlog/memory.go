package chatlog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/pkg/util"
)

// MemoryLog stores conversations and their messages in-memory.
type MemoryLog struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
}

// NewMemoryLog constructs the in-memory conversation log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

// GetOrCreate returns the session's conversation, creating it on first use.
func (l *MemoryLog) GetOrCreate(_ context.Context, sessionID string) (chat.Conversation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if conv, ok := l.conversations[sessionID]; ok {
		return conv, nil
	}
	now := util.NowUTC()
	conv := chat.Conversation{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	l.conversations[sessionID] = conv
	return conv, nil
}

// Find looks a conversation up by session id.
func (l *MemoryLog) Find(_ context.Context, sessionID string) (chat.Conversation, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	conv, ok := l.conversations[sessionID]
	return conv, ok, nil
}

// AppendPair stores both messages under one lock and bumps the conversation counters.
func (l *MemoryLog) AppendPair(_ context.Context, sessionID string, user, reply chat.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	conv, ok := l.conversations[sessionID]
	if !ok {
		conv = chat.Conversation{ID: uuid.NewString(), SessionID: sessionID, CreatedAt: util.NowUTC()}
	}
	for _, msg := range []chat.Message{user, reply} {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = util.NowUTC()
		}
		msg.SessionID = sessionID
		l.messages[sessionID] = append(l.messages[sessionID], msg)
		conv.MessageCount++
		conv.LastMessageAt = msg.CreatedAt
	}
	l.conversations[sessionID] = conv
	return nil
}

// ListRecent returns recent messages capped by tokens and count.
func (l *MemoryLog) ListRecent(_ context.Context, sessionID string, maxTokens, maxMessages int) ([]chat.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	msgs := l.messages[sessionID]
	selected := make([]chat.Message, 0, len(msgs))
	totalTokens := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if maxMessages > 0 && len(selected) >= maxMessages {
			break
		}
		tokens := msgs[i].TokenCount
		if tokens < 0 {
			tokens = 0
		}
		if maxTokens > 0 && totalTokens+tokens > maxTokens {
			break
		}
		totalTokens += tokens
		selected = append(selected, msgs[i])
	}
	reverse(selected)
	return selected, nil
}

// List returns every message of a session in chronological order.
func (l *MemoryLog) List(_ context.Context, sessionID string) ([]chat.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]chat.Message{}, l.messages[sessionID]...), nil
}

func reverse(msgs []chat.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

var _ chat.ConversationStore = (*MemoryLog)(nil)
