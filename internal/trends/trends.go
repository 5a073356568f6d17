package trends

import (
	"fmt"
	"math"
	"sort"
	"time"

	"audiencelens/internal/core"
)

// Trend directions
const (
	DirectionPositive = "positive"
	DirectionNegative = "negative"
	DirectionNeutral  = "neutral"
)

// momentumThreshold is the minimum sentiment shift reported as a finding
const momentumThreshold = 0.1

// TrendAnalyzer derives per-cluster sentiment trends
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// Analyze pairs each cluster's sentiment direction and strength with its engagement
// and measures momentum between the older and newer half of its timestamped posts
func (ta *TrendAnalyzer) Analyze(posts []core.Post, assignments []int, summaries []core.ClusterSummary) core.Trends {
	members := make(map[int][]core.Post, len(summaries))
	for i, post := range posts {
		members[assignments[i]] = append(members[assignments[i]], post)
	}

	report := core.Trends{
		Clusters: make([]core.ClusterTrend, 0, len(summaries)),
	}
	for _, s := range summaries {
		report.Clusters = append(report.Clusters, core.ClusterTrend{
			ClusterID:  s.ID,
			Direction:  Direction(s.AvgSentiment),
			Strength:   math.Abs(s.AvgSentiment),
			Engagement: s.AvgEngagement,
			Momentum:   momentum(members[s.ID]),
		})
	}

	report.KeyFindings = ta.generateKeyFindings(report.Clusters, summaries)
	return report
}

// Direction is the sign of a mean sentiment
func Direction(avgSentiment float64) string {
	if avgSentiment > 0 {
		return DirectionPositive
	} else if avgSentiment < 0 {
		return DirectionNegative
	}
	return DirectionNeutral
}

// momentum is the mean sentiment of the newer half minus the older half of the
// timestamped posts; 0 when fewer than two posts carry a timestamp
func momentum(posts []core.Post) float64 {
	var dated []core.Post
	for _, p := range posts {
		if !p.Timestamp.IsZero() {
			dated = append(dated, p)
		}
	}
	if len(dated) < 2 {
		return 0
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Timestamp.Before(dated[j].Timestamp)
	})

	half := len(dated) / 2
	return meanSentiment(dated[half:]) - meanSentiment(dated[:half])
}

func meanSentiment(posts []core.Post) float64 {
	sum := 0.0
	for _, p := range posts {
		sum += p.Sentiment
	}
	return sum / float64(len(posts))
}

// generateKeyFindings creates human-readable findings from the trend data
func (ta *TrendAnalyzer) generateKeyFindings(trends []core.ClusterTrend, summaries []core.ClusterSummary) []string {
	var findings []string

	sizes := make(map[int]core.ClusterSummary, len(summaries))
	for _, s := range summaries {
		sizes[s.ID] = s
	}

	var strongestPositive, strongestNegative *core.ClusterTrend
	for i := range trends {
		t := &trends[i]
		if sizes[t.ClusterID].Size == 0 {
			continue
		}
		switch t.Direction {
		case DirectionPositive:
			if strongestPositive == nil || t.Strength > strongestPositive.Strength {
				strongestPositive = t
			}
		case DirectionNegative:
			if strongestNegative == nil || t.Strength > strongestNegative.Strength {
				strongestNegative = t
			}
		}
	}

	if strongestPositive != nil {
		findings = append(findings, fmt.Sprintf("Cluster %d is the most positive segment (%.1f%% of posts, sentiment %.2f, engagement %.1f)",
			strongestPositive.ClusterID, sizes[strongestPositive.ClusterID].Percentage,
			strongestPositive.Strength, strongestPositive.Engagement))
	}
	if strongestNegative != nil {
		findings = append(findings, fmt.Sprintf("Cluster %d is the most negative segment (%.1f%% of posts, sentiment -%.2f, engagement %.1f)",
			strongestNegative.ClusterID, sizes[strongestNegative.ClusterID].Percentage,
			strongestNegative.Strength, strongestNegative.Engagement))
	}

	for _, t := range trends {
		if t.Momentum >= momentumThreshold {
			findings = append(findings, fmt.Sprintf("Sentiment in cluster %d is improving over time (%+.2f)", t.ClusterID, t.Momentum))
		} else if t.Momentum <= -momentumThreshold {
			findings = append(findings, fmt.Sprintf("Sentiment in cluster %d is deteriorating over time (%+.2f)", t.ClusterID, t.Momentum))
		}
	}

	if len(findings) == 0 {
		findings = append(findings, "No significant trends detected")
	}

	return findings
}

// Span returns the earliest and latest timestamp among posts; ok is false when none carry one
func Span(posts []core.Post) (first, last time.Time, ok bool) {
	for _, p := range posts {
		if p.Timestamp.IsZero() {
			continue
		}
		if !ok || p.Timestamp.Before(first) {
			first = p.Timestamp
		}
		if !ok || p.Timestamp.After(last) {
			last = p.Timestamp
		}
		ok = true
	}
	return first, last, ok
}
