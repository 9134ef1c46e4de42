package chatlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/pkg/util"
)

// Schema creates the conversation tables.
const Schema = `
	CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		message_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		token_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS messages_conversation_created_idx ON messages (conversation_id, created_at);
`

// PostgresLog persists conversations and messages in Postgres.
type PostgresLog struct {
	pool *pgxpool.Pool
}

// NewPostgresLog constructs the adapter.
func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

// EnsureSchema applies Schema.
func (l *PostgresLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create conversation schema: %w", err)
	}
	return nil
}

// GetOrCreate inserts the conversation if missing and returns the stored row.
func (l *PostgresLog) GetOrCreate(ctx context.Context, sessionID string) (chat.Conversation, error) {
	now := util.NowUTC()
	_, err := l.pool.Exec(ctx, `
		INSERT INTO conversations (id, session_id, created_at, last_message_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (session_id) DO NOTHING
	`, uuid.New(), sessionID, now)
	if err != nil {
		return chat.Conversation{}, err
	}
	conv, found, err := l.Find(ctx, sessionID)
	if err != nil {
		return chat.Conversation{}, err
	}
	if !found {
		return chat.Conversation{}, fmt.Errorf("conversation %s vanished after insert", sessionID)
	}
	return conv, nil
}

// Find looks a conversation up by session id.
func (l *PostgresLog) Find(ctx context.Context, sessionID string) (chat.Conversation, bool, error) {
	var (
		conv chat.Conversation
		id   uuid.UUID
	)
	err := l.pool.QueryRow(ctx, `
		SELECT id, session_id, message_count, created_at, last_message_at
		FROM conversations
		WHERE session_id = $1
	`, sessionID).Scan(&id, &conv.SessionID, &conv.MessageCount, &conv.CreatedAt, &conv.LastMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Conversation{}, false, nil
	}
	if err != nil {
		return chat.Conversation{}, false, err
	}
	conv.ID = id.String()
	return conv, true, nil
}

// AppendPair writes both messages and the counter update in one transaction.
func (l *PostgresLog) AppendPair(ctx context.Context, sessionID string, user, reply chat.Message) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var conversationID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM conversations WHERE session_id = $1 FOR UPDATE`, sessionID).Scan(&conversationID); err != nil {
		return fmt.Errorf("lock conversation: %w", err)
	}
	last := util.NowUTC()
	for _, msg := range []chat.Message{user, reply} {
		id := uuid.New()
		if msg.ID != "" {
			if parsed, parseErr := uuid.Parse(msg.ID); parseErr == nil {
				id = parsed
			}
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = util.NowUTC()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, sender, content, token_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, conversationID, string(msg.Sender), msg.Content, msg.TokenCount, msg.CreatedAt); err != nil {
			return fmt.Errorf("insert %s message: %w", msg.Sender, err)
		}
		last = msg.CreatedAt
	}
	if _, err := tx.Exec(ctx, `
		UPDATE conversations
		SET message_count = message_count + 2, last_message_at = $2
		WHERE id = $1
	`, conversationID, last); err != nil {
		return fmt.Errorf("update conversation counters: %w", err)
	}
	return tx.Commit(ctx)
}

// ListRecent returns the newest messages that fit within the token and message budgets.
func (l *PostgresLog) ListRecent(ctx context.Context, sessionID string, maxTokens, maxMessages int) ([]chat.Message, error) {
	limit := maxMessages
	if limit <= 0 {
		limit = 200
	}
	rows, err := l.pool.Query(ctx, `
		SELECT m.id, c.session_id, m.sender, m.content, m.token_count, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.session_id = $1
		ORDER BY m.created_at DESC, m.sender ASC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collected := make([]chat.Message, 0)
	totalTokens := 0
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		tokens := msg.TokenCount
		if tokens < 0 {
			tokens = 0
		}
		if maxTokens > 0 && totalTokens+tokens > maxTokens {
			break
		}
		totalTokens += tokens
		collected = append(collected, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(collected)
	return collected, nil
}

// List returns every message of a session in chronological order.
func (l *PostgresLog) List(ctx context.Context, sessionID string) ([]chat.Message, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT m.id, c.session_id, m.sender, m.content, m.token_count, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.session_id = $1
		ORDER BY m.created_at ASC, m.sender DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]chat.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func scanMessage(rows pgx.Rows) (chat.Message, error) {
	var (
		msg    chat.Message
		id     uuid.UUID
		sender string
	)
	if err := rows.Scan(&id, &msg.SessionID, &sender, &msg.Content, &msg.TokenCount, &msg.CreatedAt); err != nil {
		return chat.Message{}, err
	}
	msg.ID = id.String()
	msg.Sender = chat.Sender(sender)
	return msg, nil
}

var _ chat.ConversationStore = (*PostgresLog)(nil)
