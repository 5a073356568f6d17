package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"audiencelens/internal/analysis"
	"audiencelens/internal/config"
	"audiencelens/internal/core"
	"audiencelens/internal/features"
	"audiencelens/internal/sources"
)

// featureRow is one post's feature vector in the JSON output
type featureRow struct {
	PostID string    `json:"postId"`
	Vector []float64 `json:"vector"`
}

// NewFeaturesCmd creates the features command for inspecting feature vectors
func NewFeaturesCmd() *cobra.Command {
	var (
		input    string
		fromDB   bool
		platform string
		groups   []string
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Show the normalized feature vectors built for posts",
		Long: `Build and print the feature vectors the clustering step would use.

Every feature is normalized to [0,1]. Useful to check which feature groups
separate a data set before running 'audiencelens cluster'.

Examples:
  audiencelens features --input posts.json
  audiencelens features --input posts.json --features sentiment,content,keywords --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			posts, err := loadPosts(cmd.Context(), cfg, input, fromDB, sources.PostQuery{Platform: platform, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to load posts: %w", err)
			}

			selected := analysis.ParseFeatureGroups(groups)
			if selected == nil {
				selected = analysis.OptionsFromConfig(cfg).DefaultGroups
			}
			for _, g := range selected {
				if !g.Valid() {
					return core.NewError(core.KindInvalidRequest, "unknown feature group %q", g)
				}
			}

			set, err := features.NewBuilder(cfg.Features.BrandTerms...).Build(posts, selected)
			if err != nil {
				return err
			}

			if asJSON {
				return writeFeaturesJSON(cmd.OutOrStdout(), posts, set)
			}
			writeFeaturesText(cmd.OutOrStdout(), posts, set)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file with posts")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "Read posts from the configured database")
	cmd.Flags().StringVar(&platform, "platform", "", "Only use posts from this platform")
	cmd.Flags().StringSliceVar(&groups, "features", nil, "Feature groups (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of posts (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func writeFeaturesJSON(w io.Writer, posts []core.Post, set *features.Set) error {
	rows := make([]featureRow, len(posts))
	for i, post := range posts {
		rows[i] = featureRow{PostID: post.ID, Vector: set.Vectors[i]}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"features": set.Names,
		"fallback": set.Fallback,
		"posts":    rows,
	})
}

func writeFeaturesText(w io.Writer, posts []core.Post, set *features.Set) {
	fmt.Fprintf(w, "%d posts × %d features\n", len(posts), set.Dimension())
	if set.Fallback {
		fmt.Fprintln(w, "(selected groups were empty; using sentiment and engagement)")
	}
	header := make([]string, len(set.Names))
	for j, name := range set.Names {
		header[j] = fmt.Sprintf("%*s", max(len(name), 5), name)
	}
	fmt.Fprintf(w, "%-24s %s\n", "post", strings.Join(header, " "))

	for i, post := range posts {
		values := make([]string, len(set.Vectors[i]))
		for j, v := range set.Vectors[i] {
			values[j] = fmt.Sprintf("%*.3f", max(len(set.Names[j]), 5), v)
		}
		fmt.Fprintf(w, "%-24s %s\n", truncate(post.ID, 24), strings.Join(values, " "))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
