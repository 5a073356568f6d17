package handlers

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"audiencelens/internal/config"
	"audiencelens/internal/logger"
	"audiencelens/internal/sources"
)

// NewImportCmd creates the import command that loads a JSON post file into the database
func NewImportCmd() *cobra.Command {
	var (
		input string
		query string
		runID string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import posts from a JSON file into the database",
		Long: `Import posts from a JSON file into the configured posts table.

The table is created when missing. Posts already present (same id) are skipped.
Every import is tagged with a run id so it can be clustered on its own with
'audiencelens cluster --from-db --run-id <id>'.

Examples:
  audiencelens import --input posts.json --query acme
  audiencelens import --input posts.json --query acme --run-id launch-week`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Get()
			ctx := cmd.Context()
			cfg := config.Get()

			if input == "" {
				return fmt.Errorf("--input is required")
			}
			if runID == "" {
				runID = uuid.New().String()
			}

			normalizer := newNormalizer(cfg)
			posts, err := sources.NewJSONFileSource(input, normalizer).Posts(ctx, sources.PostQuery{})
			if err != nil {
				return fmt.Errorf("failed to load posts: %w", err)
			}

			db, err := openDatabaseSource(ctx, cfg, normalizer)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}

			inserted, err := db.Insert(ctx, runID, query, posts)
			if err != nil {
				return err
			}

			log.Info("Import completed", "run_id", runID, "read", len(posts), "inserted", inserted)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d posts (run %s)\n", inserted, len(posts), runID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file with posts")
	cmd.Flags().StringVar(&query, "query", "", "Query label stored with the posts")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id stored with the posts (default: new UUID)")

	return cmd
}
