package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
	"github.com/yanqian/ai-supportdesk/internal/infra/faqcorpus"
)

type seedFlags struct {
	file         string
	skipExisting bool
	dryRun       bool
	strict       bool
	initSchema   bool
}

// seedDeps are the collaborators of one seeding run.
type seedDeps struct {
	source   faqcorpus.Source
	repo     faq.Repository
	embedder faq.EmbeddingProvider
	logger   *slog.Logger
	close    func()
}

type depsBuilder func(ctx context.Context, flags seedFlags) (seedDeps, error)

// NewRootCmd builds the seedfaq command.
func NewRootCmd(build depsBuilder) *cobra.Command {
	var flags seedFlags
	cmd := &cobra.Command{
		Use:   "seedfaq",
		Short: "Embed the FAQ corpus and store it",
		Long: `Load the FAQ corpus (built-in, a YAML/JSON file or an object in S3-compatible storage),
compute document embeddings with the configured providers and upsert every entry
into the FAQ store.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := build(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if deps.close != nil {
				defer deps.close()
			}
			return runSeed(cmd, deps, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Corpus file (.yaml or .json); overrides the configured source")
	cmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "Keep entries that already have an embedding")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report what would be seeded without writing")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Abort on the first embedding failure")
	cmd.Flags().BoolVar(&flags.initSchema, "init-schema", false, "Create the faqs table and vector extension first")
	return cmd
}

func runSeed(cmd *cobra.Command, deps seedDeps, flags seedFlags) error {
	entries, err := deps.source.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	seeder := faq.NewSeeder(deps.repo, deps.embedder, deps.logger)
	report, err := seeder.Seed(cmd.Context(), entries, faq.SeedOptions{
		SkipExisting: flags.skipExisting,
		Strict:       flags.strict,
		DryRun:       flags.dryRun,
	})
	if err != nil {
		return fmt.Errorf("seed faqs: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
