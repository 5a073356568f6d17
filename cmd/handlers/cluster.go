package handlers

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"audiencelens/internal/analysis"
	"audiencelens/internal/config"
	"audiencelens/internal/core"
	"audiencelens/internal/logger"
	"audiencelens/internal/render"
	"audiencelens/internal/sources"
	"audiencelens/internal/trends"
	"audiencelens/internal/tui"
)

type clusterOptions struct {
	input     string
	fromDB    bool
	platform  string
	query     string
	runID     string
	limit     int
	k         int
	algorithm string
	features  []string
	seed      int64
	format    string
	outputDir string
	browse    bool
}

// NewClusterCmd creates the cluster command
func NewClusterCmd() *cobra.Command {
	var opts clusterOptions

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Segment posts into audience clusters",
		Long: `Cluster sentiment-annotated posts into audience segments.

Posts are read from a JSON file (an array of posts or {"posts": [...]}) or from
the configured database table.

Algorithms:
  kmeans        - K-Means++ (default)
  spectral      - Spectral clustering on an RBF similarity graph
  hierarchical, dbscan, gaussian
                - Accepted; currently delegated to kmeans and reported as degraded

Feature groups: sentiment, engagement, content, temporal, keywords

Examples:
  # Three clusters from a file
  audiencelens cluster --input posts.json --k 3

  # Spectral clustering with a fixed seed, JSON output
  audiencelens cluster --input posts.json --k 4 --algorithm spectral --seed 42 --format json

  # Posts for one platform and query from the database
  audiencelens cluster --from-db --platform x --query acme --k 5

  # Browse the clusters interactively
  audiencelens cluster --input posts.json --k 4 --tui

  # Markdown report written to ./reports
  audiencelens cluster --input posts.json --format markdown --output reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "JSON file with posts")
	cmd.Flags().BoolVar(&opts.fromDB, "from-db", false, "Read posts from the configured database")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "Only use posts from this platform")
	cmd.Flags().StringVar(&opts.query, "query", "", "Query label (also filters database posts)")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Only use database posts from this import run")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of posts (0 for all)")
	cmd.Flags().IntVar(&opts.k, "k", 3, "Number of clusters (2-10)")
	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "", "Clustering algorithm (default from config)")
	cmd.Flags().StringSliceVar(&opts.features, "features", nil, "Feature groups (default from config)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed (0 uses the configured seed)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json or markdown")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Write a markdown report to this directory")
	cmd.Flags().BoolVar(&opts.browse, "tui", false, "Browse the clusters in an interactive terminal UI")

	return cmd
}

func runCluster(cmd *cobra.Command, opts clusterOptions) error {
	log := logger.Get()
	ctx := cmd.Context()

	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg := config.Get()
	posts, err := loadPosts(ctx, cfg, opts.input, opts.fromDB, sources.PostQuery{
		Platform: opts.platform,
		Query:    opts.query,
		RunID:    opts.runID,
		Limit:    opts.limit,
	})
	if err != nil {
		return fmt.Errorf("failed to load posts: %w", err)
	}

	if first, last, ok := trends.Span(posts); ok {
		log.Info("Loaded posts", "count", len(posts), "from", first, "to", last)
	} else {
		log.Info("Loaded posts", "count", len(posts))
	}

	req := core.ClusterRequest{
		Query:         opts.query,
		Platform:      opts.platform,
		Algorithm:     core.Algorithm(opts.algorithm),
		NumClusters:   opts.k,
		FeatureGroups: analysis.ParseFeatureGroups(opts.features),
		Seed:          opts.seed,
	}

	result, err := newAnalyzer(cfg).Analyze(ctx, req, posts)
	if err != nil {
		return err
	}

	if opts.browse {
		return tui.Run(result, posts)
	}
	return writeResult(cmd.OutOrStdout(), result, format, opts.outputDir)
}

func writeResult(w io.Writer, result *core.ClusteringResult, format render.Format, outputDir string) error {
	if outputDir == "" {
		return render.Write(w, result, format)
	}

	path, err := render.WriteReportToFile(render.Markdown(result), outputDir, render.ReportFilename(result))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Report written to %s\n", path)
	return nil
}
