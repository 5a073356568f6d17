package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"audiencelens/internal/core"
	"audiencelens/internal/sentiment"
)

// Format selects how a clustering result is written
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name; empty means text
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "":
		return FormatText, nil
	case FormatJSON, FormatText, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected json, text or markdown)", name)
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	clusterStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1)
)

// Write renders result to w in the given format
func Write(w io.Writer, result *core.ClusteringResult, format Format) error {
	switch format {
	case FormatJSON:
		return JSON(w, result)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(result))
		return err
	default:
		_, err := io.WriteString(w, Text(result))
		return err
	}
}

// JSON writes the result as indented JSON
func JSON(w io.Writer, result *core.ClusteringResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// Text renders a terminal report of the result
func Text(result *core.ClusteringResult) string {
	var b strings.Builder

	title := fmt.Sprintf("Audience clusters for %q", result.Query)
	if result.Query == "" {
		title = "Audience clusters"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d posts · %s · %d/%d clusters · seed %d",
		result.TotalPoints, algorithmLabel(result), result.NumClusters, result.RequestedClusters, result.Seed)) + "\n")

	if result.Degraded {
		b.WriteString(warnStyle.Render("⚠ "+result.DegradedReason) + "\n")
	}
	if result.FeatureFallback {
		b.WriteString(warnStyle.Render("⚠ selected feature groups were empty; used sentiment and engagement") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Overall") + "\n")
	b.WriteString(result.Insights.Overall + "\n\n")

	archetypes := archetypesByCluster(result)
	for _, s := range result.ClusterSummaries {
		if s.Size == 0 {
			continue
		}
		var card strings.Builder
		emoji := sentiment.SentimentEmoji[sentiment.ClassifyValue(s.AvgSentiment)]
		card.WriteString(headerStyle.Render(fmt.Sprintf("%s Cluster %d", emoji, s.ID)))
		if insight, ok := archetypes[s.ID]; ok {
			card.WriteString(" " + insight.Archetype)
		}
		card.WriteString("\n")
		card.WriteString(fmt.Sprintf("%d posts (%.1f%%) · sentiment %+.2f %s · engagement %.1f %s\n",
			s.Size, s.Percentage, s.AvgSentiment, s.SentimentLevel, s.AvgEngagement, s.EngagementLevel))
		card.WriteString(s.Description)
		if insight, ok := archetypes[s.ID]; ok && insight.Recommendation != "" {
			card.WriteString("\n" + mutedStyle.Render("→ "+insight.Recommendation))
		}
		b.WriteString(clusterStyle.Render(card.String()) + "\n\n")
	}

	if len(result.Trends.KeyFindings) > 0 {
		b.WriteString(headerStyle.Render("Key findings") + "\n")
		for _, finding := range result.Trends.KeyFindings {
			b.WriteString("• " + finding + "\n")
		}
		b.WriteString("\n")
	}

	m := result.Metrics
	b.WriteString(headerStyle.Render("Quality") + "\n")
	b.WriteString(fmt.Sprintf("silhouette %.3f (%s, %s) · inertia %.3f · %d iterations\n",
		m.SilhouetteScore, m.Quality, m.Method, m.Inertia, m.Iterations))
	for _, issue := range m.Issues {
		b.WriteString(warnStyle.Render("• "+issue) + "\n")
	}

	return b.String()
}

// Markdown renders the result as a markdown report
func Markdown(result *core.ClusteringResult) string {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# Audience Clusters - %s\n\n", result.GeneratedAt.Format("2006-01-02")))
	if result.Query != "" {
		md.WriteString(fmt.Sprintf("**Query:** %s  \n", result.Query))
	}
	if result.Platform != "" {
		md.WriteString(fmt.Sprintf("**Platform:** %s  \n", result.Platform))
	}
	md.WriteString(fmt.Sprintf("**Algorithm:** %s  \n", algorithmLabel(result)))
	md.WriteString(fmt.Sprintf("**Posts:** %d\n\n", result.TotalPoints))

	if result.Degraded {
		md.WriteString(fmt.Sprintf("> **Note:** %s\n\n", result.DegradedReason))
	}

	md.WriteString("## Overall\n\n")
	md.WriteString(result.Insights.Overall + "\n\n")

	if len(result.ClusterSummaries) == 0 {
		md.WriteString("No clusters produced.\n")
		return md.String()
	}

	md.WriteString("## Clusters\n\n")
	md.WriteString("| Cluster | Archetype | Size | Share | Sentiment | Engagement |\n")
	md.WriteString("|---|---|---|---|---|---|\n")
	archetypes := archetypesByCluster(result)
	for _, s := range result.ClusterSummaries {
		md.WriteString(fmt.Sprintf("| %d | %s | %d | %.1f%% | %+.2f (%s) | %.1f (%s) |\n",
			s.ID, archetypes[s.ID].Archetype, s.Size, s.Percentage,
			s.AvgSentiment, s.SentimentLevel, s.AvgEngagement, s.EngagementLevel))
	}
	md.WriteString("\n")

	for _, s := range result.ClusterSummaries {
		if s.Size == 0 {
			continue
		}
		insight := archetypes[s.ID]
		md.WriteString(fmt.Sprintf("### %d. %s\n\n", s.ID, insight.Title))
		md.WriteString(s.Description + "\n\n")
		if insight.Recommendation != "" {
			md.WriteString(fmt.Sprintf("**Recommendation:** %s\n\n", insight.Recommendation))
		}
	}

	if len(result.Trends.KeyFindings) > 0 {
		md.WriteString("## Key Findings\n\n")
		for _, finding := range result.Trends.KeyFindings {
			md.WriteString("- " + finding + "\n")
		}
		md.WriteString("\n")
	}

	m := result.Metrics
	md.WriteString("## Quality\n\n")
	md.WriteString(fmt.Sprintf("Silhouette %.3f (%s, computed by %s), inertia %.3f.\n", m.SilhouetteScore, m.Quality, m.Method, m.Inertia))
	for _, issue := range m.Issues {
		md.WriteString("- " + issue + "\n")
	}

	return md.String()
}

// ReportFilename returns the default markdown report name for a result
func ReportFilename(result *core.ClusteringResult) string {
	return fmt.Sprintf("clusters_%s.md", result.GeneratedAt.Format("2006-01-02"))
}

// WriteReportToFile writes the provided content to a file in the specified directory
func WriteReportToFile(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "reports" // Default output directory
	}

	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)

	err = os.WriteFile(filePath, []byte(content), 0644)
	if err != nil {
		return "", fmt.Errorf("failed to write report file %s: %w", filePath, err)
	}

	return filePath, nil
}

func algorithmLabel(result *core.ClusteringResult) string {
	if result.RequestedAlgorithm == result.ActualAlgorithm || result.RequestedAlgorithm == "" {
		return string(result.ActualAlgorithm)
	}
	return fmt.Sprintf("%s→%s", result.RequestedAlgorithm, result.ActualAlgorithm)
}

func archetypesByCluster(result *core.ClusteringResult) map[int]core.ClusterInsight {
	byID := make(map[int]core.ClusterInsight, len(result.Insights.Clusters))
	for _, c := range result.Insights.Clusters {
		byID[c.ClusterID] = c
	}
	return byID
}
