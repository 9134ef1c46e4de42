package faqrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

// Schema creates the faqs table. The embedding column is left unsized so any
// provider dimensionality can be stored.
const Schema = `
	CREATE EXTENSION IF NOT EXISTS vector;
	CREATE TABLE IF NOT EXISTS faqs (
		id UUID PRIMARY KEY,
		category TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL UNIQUE,
		answer TEXT NOT NULL,
		embedding vector,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// PostgresRepository implements faq.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema applies Schema.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create faqs schema: %w", err)
	}
	return nil
}

// LoadAll returns every FAQ row in insertion order.
func (r *PostgresRepository) LoadAll(ctx context.Context) ([]faq.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, category, question, answer, embedding, created_at
		FROM faqs
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]faq.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Upsert inserts a FAQ or replaces the row with the same question.
func (r *PostgresRepository) Upsert(ctx context.Context, entry faq.Entry) (faq.Entry, error) {
	id := uuid.New()
	if entry.ID != "" {
		parsed, err := uuid.Parse(entry.ID)
		if err != nil {
			return faq.Entry{}, fmt.Errorf("invalid faq id %q: %w", entry.ID, err)
		}
		id = parsed
	}
	var embedding any
	if entry.HasEmbedding() {
		embedding = pgvector.NewVector(entry.Embedding)
	}
	var createdAt any
	if !entry.CreatedAt.IsZero() {
		createdAt = entry.CreatedAt
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO faqs (id, category, question, answer, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		ON CONFLICT (question) DO UPDATE
		SET category = EXCLUDED.category,
			answer = EXCLUDED.answer,
			embedding = EXCLUDED.embedding
		RETURNING id, category, question, answer, embedding, created_at
	`, id, entry.Category, faq.QuestionKey(entry.Question), entry.Answer, embedding, createdAt)
	return scanEntry(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (faq.Entry, error) {
	var (
		entry     faq.Entry
		id        uuid.UUID
		embedding *pgvector.Vector
	)
	if err := row.Scan(&id, &entry.Category, &entry.Question, &entry.Answer, &embedding, &entry.CreatedAt); err != nil {
		return faq.Entry{}, err
	}
	entry.ID = id.String()
	if embedding != nil {
		entry.Embedding = embedding.Slice()
	}
	return entry, nil
}

var _ faq.Repository = (*PostgresRepository)(nil)
