package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
	"github.com/yanqian/ai-supportdesk/internal/infra/embedding"
	"github.com/yanqian/ai-supportdesk/internal/infra/faqcorpus"
	"github.com/yanqian/ai-supportdesk/internal/infra/faqrepo"
)

const corpusYAML = `faqs:
  - category: Shipping
    question: How long does shipping take?
    answer: Standard shipping takes 3-5 business days.
  - category: Returns
    question: What is your return policy?
    answer: Items can be returned within 30 days.
`

func TestSeedCommandSeedsRepository(t *testing.T) {
	repo := faqrepo.NewMemoryRepository()
	var gotFlags seedFlags
	cmd := NewRootCmd(func(_ context.Context, flags seedFlags) (seedDeps, error) {
		gotFlags = flags
		return seedDeps{
			source:   faqcorpus.FileSource{Path: flags.file},
			repo:     repo,
			embedder: embedding.NewDeterministicProvider(16),
			logger:   newTestLogger(),
		}, nil
	})

	out, err := execute(cmd, "--file", writeCorpus(t), "--skip-existing")
	require.NoError(t, err)
	require.True(t, gotFlags.skipExisting)
	require.False(t, gotFlags.dryRun)

	var report faq.SeedReport
	require.NoError(t, json.Unmarshal(out, &report))
	require.Equal(t, 2, report.Total)
	require.Equal(t, 2, report.Embedded)
	require.Equal(t, []string{"deterministic"}, report.Providers)

	entries, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Len(t, e.Embedding, 16)
	}
}

func TestSeedCommandDryRun(t *testing.T) {
	repo := faqrepo.NewMemoryRepository()
	cmd := NewRootCmd(func(_ context.Context, flags seedFlags) (seedDeps, error) {
		return seedDeps{
			source:   faqcorpus.FileSource{Path: flags.file},
			repo:     repo,
			embedder: embedding.NewDeterministicProvider(16),
			logger:   newTestLogger(),
		}, nil
	})

	_, err := execute(cmd, "--file", writeCorpus(t), "--dry-run")
	require.NoError(t, err)
	requireEmpty(t, repo)
}

func TestSeedCommandStrictFailure(t *testing.T) {
	repo := faqrepo.NewMemoryRepository()
	closed := false
	cmd := NewRootCmd(func(_ context.Context, flags seedFlags) (seedDeps, error) {
		return seedDeps{
			source:   faqcorpus.DefaultSource{},
			repo:     repo,
			embedder: failingEmbedder{},
			logger:   newTestLogger(),
			close:    func() { closed = true },
		}, nil
	})

	_, err := execute(cmd, "--strict")
	require.Error(t, err)
	require.Contains(t, err.Error(), "seed faqs")
	requireEmpty(t, repo)
	require.True(t, closed)
}

func TestSeedCommandBuildError(t *testing.T) {
	cmd := NewRootCmd(func(context.Context, seedFlags) (seedDeps, error) {
		return seedDeps{}, errors.New("ping postgres: refused")
	})

	_, err := execute(cmd)
	require.EqualError(t, err, "ping postgres: refused")
}

func TestSeedCommandRejectsArgs(t *testing.T) {
	cmd := NewRootCmd(func(context.Context, seedFlags) (seedDeps, error) {
		t.Fatal("builder should not run")
		return seedDeps{}, nil
	})

	_, err := execute(cmd, "extra")
	require.Error(t, err)
}

func execute(cmd *cobra.Command, args ...string) ([]byte, error) {
	var out bytes.Buffer
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.Bytes(), err
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faqs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(corpusYAML), 0o600))
	return path
}

func requireEmpty(t *testing.T, repo faq.Repository) {
	t.Helper()
	entries, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }

func (failingEmbedder) Embed(context.Context, string, faq.EmbeddingRole) ([]float32, error) {
	return nil, errors.New("provider down")
}
