package insights

import (
	"math"
	"strings"
	"testing"

	"audiencelens/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		sentiment  float64
		engagement float64
		want       string
	}{
		{"champions", 0.85, 91, ArchetypeBrandChampions},
		{"critics", -0.75, 82, ArchetypeVocalCritics},
		{"silent supporters", 0.3, 25, ArchetypeSilentSupporters},
		{"passive observers", 0.0, 10, ArchetypePassiveObservers},
		{"positive but moderate", 0.6, 50, ArchetypeMixedSignals},
		{"champions boundary", 0.5, 90, ArchetypeMixedSignals},
		{"critics boundary", -0.3, 90, ArchetypeMixedSignals},
		{"supporter wins over observer", 0.4, 10, ArchetypeSilentSupporters},
		{"negative and quiet", -0.6, 15, ArchetypePassiveObservers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.sentiment, tt.engagement); got != tt.want {
				t.Errorf("Classify(%v, %v) = %s, want %s", tt.sentiment, tt.engagement, got, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	posts := []core.Post{{Sentiment: 0.8}, {Sentiment: 0.6}, {Sentiment: -0.2}}
	summaries := []core.ClusterSummary{
		{ID: 0, AvgSentiment: 0.7, AvgEngagement: 85},
		{ID: 1, AvgSentiment: -0.2, AvgEngagement: 40},
	}

	result := NewGenerator().Generate(posts, summaries)

	if math.Abs(result.AverageSentiment-0.4) > 1e-9 {
		t.Errorf("Expected average sentiment 0.4, got %v", result.AverageSentiment)
	}
	if !strings.Contains(result.Overall, "leans positive") {
		t.Errorf("Unexpected overall statement: %q", result.Overall)
	}
	if len(result.Clusters) != 2 {
		t.Fatalf("Expected 2 cluster insights, got %d", len(result.Clusters))
	}
	if result.Clusters[0].Archetype != ArchetypeBrandChampions {
		t.Errorf("Expected Brand Champions, got %s", result.Clusters[0].Archetype)
	}
	if result.Clusters[1].Archetype != ArchetypeMixedSignals {
		t.Errorf("Expected Mixed Signals, got %s", result.Clusters[1].Archetype)
	}
	for _, c := range result.Clusters {
		if c.Title == "" || c.Recommendation == "" {
			t.Errorf("Cluster %d missing template text", c.ClusterID)
		}
	}
}

func TestOverallStatement(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{0.7, "strongly positive"},
		{0.2, "leans positive"},
		{0.0, "neutral"},
		{-0.2, "leans negative"},
		{-0.8, "strongly negative"},
	}

	for _, tt := range tests {
		if got := overallStatement(tt.avg); !strings.Contains(got, tt.want) {
			t.Errorf("overallStatement(%v) = %q, want it to contain %q", tt.avg, got, tt.want)
		}
	}
}

func TestTemplatesCoverAllArchetypes(t *testing.T) {
	for _, a := range []string{
		ArchetypeBrandChampions, ArchetypeVocalCritics, ArchetypeSilentSupporters,
		ArchetypePassiveObservers, ArchetypeMixedSignals,
	} {
		if _, ok := templates[a]; !ok {
			t.Errorf("No template for %s", a)
		}
	}
}
