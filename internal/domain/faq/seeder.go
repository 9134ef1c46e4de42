package faq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SeedOptions tune a seeding run.
type SeedOptions struct {
	// SkipExisting leaves entries that already carry an embedding untouched.
	SkipExisting bool
	// Strict aborts on the first embedding failure instead of storing the entry unembedded.
	Strict bool
	// DryRun embeds nothing and writes nothing.
	DryRun bool
}

// SeedReport summarizes a seeding run.
type SeedReport struct {
	Total     int      `json:"total"`
	Embedded  int      `json:"embedded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Providers []string `json:"providers,omitempty"`
}

// Seeder embeds corpus entries as documents and writes them to the repository.
type Seeder struct {
	repo     Repository
	embedder EmbeddingProvider
	logger   *slog.Logger
	now      func() time.Time
}

// NewSeeder constructs a Seeder.
func NewSeeder(repo Repository, embedder EmbeddingProvider, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		repo:     repo,
		embedder: embedder,
		logger:   logger.With("component", "faq.seeder"),
		now:      time.Now,
	}
}

// Seed upserts every entry, computing document embeddings on the way.
func (s *Seeder) Seed(ctx context.Context, entries []Entry, opts SeedOptions) (SeedReport, error) {
	report := SeedReport{Total: len(entries)}
	existing := map[string]Entry{}
	if opts.SkipExisting {
		current, err := s.repo.LoadAll(ctx)
		if err != nil {
			return report, fmt.Errorf("load existing faqs: %w", err)
		}
		for _, e := range current {
			existing[QuestionKey(e.Question)] = e
		}
	}

	providers := map[string]struct{}{}
	for _, entry := range entries {
		if strings.TrimSpace(entry.Question) == "" || strings.TrimSpace(entry.Answer) == "" {
			s.logger.Warn("skipping faq without question or answer", "category", entry.Category)
			report.Skipped++
			continue
		}
		entry.Question = QuestionKey(entry.Question)
		if prev, ok := existing[entry.Question]; ok && prev.HasEmbedding() {
			report.Skipped++
			continue
		}
		if opts.DryRun {
			s.logger.Info("dry run: would seed faq", "category", entry.Category, "question", entry.Question)
			continue
		}

		vector, provider, err := s.embed(ctx, documentText(entry))
		if err != nil {
			if opts.Strict {
				return report, fmt.Errorf("embed %q: %w", entry.Question, err)
			}
			s.logger.Warn("faq embedding failed, storing without embedding", "question", entry.Question, "error", err)
			report.Failed++
			vector = nil
		} else {
			report.Embedded++
			providers[provider] = struct{}{}
		}

		entry.Embedding = vector
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = s.now().UTC()
		}
		if _, err := s.repo.Upsert(ctx, entry); err != nil {
			return report, fmt.Errorf("store %q: %w", entry.Question, err)
		}
	}
	for name := range providers {
		report.Providers = append(report.Providers, name)
	}
	s.logger.Info("faq seeding finished", "total", report.Total, "embedded", report.Embedded, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

func (s *Seeder) embed(ctx context.Context, text string) ([]float32, string, error) {
	if s.embedder == nil {
		return nil, "", ErrNoEmbeddingProvider
	}
	if chain, ok := s.embedder.(*ProviderChain); ok {
		return chain.EmbedWithSource(ctx, text, RoleDocument)
	}
	vector, err := s.embedder.Embed(ctx, text, RoleDocument)
	return vector, s.embedder.Name(), err
}

func documentText(entry Entry) string {
	return strings.TrimSpace(entry.Question) + " " + strings.TrimSpace(entry.Answer)
}
