package handlers

import (
	"context"
	"fmt"

	"audiencelens/internal/analysis"
	"audiencelens/internal/config"
	"audiencelens/internal/core"
	"audiencelens/internal/sentiment"
	"audiencelens/internal/sources"
)

// newNormalizer builds the post normalizer, scoring missing sentiment when configured
func newNormalizer(cfg *config.Config) *sources.Normalizer {
	if cfg.Sentiment.ScoreMissing {
		return sources.NewNormalizer(sentiment.NewSentimentAnalyzer())
	}
	return sources.NewNormalizer(nil)
}

// openDatabaseSource connects to the configured SQL post table
func openDatabaseSource(ctx context.Context, cfg *config.Config, normalizer *sources.Normalizer) (*sources.SQLSource, error) {
	db := cfg.Database
	if db.ConnectionString == "" {
		return nil, fmt.Errorf("database connection string not configured\n\n" +
			"Set one of:\n" +
			"  • database.connection_string in .audiencelens.yaml\n" +
			"  • DATABASE_URL environment variable\n")
	}

	ctx, cancel := context.WithTimeout(ctx, db.QueryTimeout())
	defer cancel()

	source, err := sources.OpenSQLSource(ctx, db.Driver, db.ConnectionString, db.Table, normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return source, nil
}

// loadPosts reads posts from --input or, with --from-db, from the configured database
func loadPosts(ctx context.Context, cfg *config.Config, input string, fromDB bool, q sources.PostQuery) ([]core.Post, error) {
	normalizer := newNormalizer(cfg)

	var source sources.PostSource
	switch {
	case fromDB && input != "":
		return nil, fmt.Errorf("--input and --from-db are mutually exclusive")
	case fromDB:
		db, err := openDatabaseSource(ctx, cfg, normalizer)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		source = db
	case input != "":
		source = sources.NewJSONFileSource(input, normalizer)
	default:
		return nil, fmt.Errorf("either --input or --from-db is required")
	}

	return source.Posts(ctx, q)
}

// newAnalyzer creates an analyzer from the loaded configuration
func newAnalyzer(cfg *config.Config) *analysis.Analyzer {
	return analysis.NewAnalyzer(analysis.OptionsFromConfig(cfg))
}
