package summary

import (
	"math"

	"audiencelens/internal/core"
)

// Sentiment and engagement level labels
const (
	LevelPositive = "Positive"
	LevelNegative = "Negative"
	LevelNeutral  = "Neutral"

	LevelHigh   = "High"
	LevelMedium = "Medium"
	LevelLow    = "Low"
)

const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
	highEngagement    = 60.0
	mediumEngagement  = 30.0
)

// Generator aggregates raw post values per cluster
type Generator struct{}

// NewGenerator creates a new summary generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate produces one summary per cluster id in [0,k). Averages use the raw post values,
// not the normalized features; engagement is averaged over posts that carry a finite value.
func (g *Generator) Generate(posts []core.Post, assignments []int, k int) []core.ClusterSummary {
	type accumulator struct {
		size            int
		sentimentSum    float64
		engagementSum   float64
		engagementCount int
	}

	acc := make([]accumulator, k)
	for i, post := range posts {
		c := assignments[i]
		acc[c].size++
		acc[c].sentimentSum += post.Sentiment
		if v, ok := post.EngagementValue(); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			acc[c].engagementSum += v
			acc[c].engagementCount++
		}
	}

	total := len(posts)
	summaries := make([]core.ClusterSummary, k)
	for c := range acc {
		s := core.ClusterSummary{
			ID:   c,
			Size: acc[c].size,
		}
		if total > 0 {
			s.Percentage = roundTo(float64(acc[c].size)/float64(total)*100, 1)
		}
		if acc[c].size > 0 {
			s.AvgSentiment = acc[c].sentimentSum / float64(acc[c].size)
		}
		if acc[c].engagementCount > 0 {
			s.AvgEngagement = acc[c].engagementSum / float64(acc[c].engagementCount)
		}
		s.SentimentLevel = SentimentLevel(s.AvgSentiment)
		s.EngagementLevel = EngagementLevel(s.AvgEngagement)
		s.Description = describe(s.SentimentLevel, s.EngagementLevel)
		summaries[c] = s
	}

	return summaries
}

// SentimentLevel classifies a mean sentiment score
func SentimentLevel(sentiment float64) string {
	if sentiment > positiveThreshold {
		return LevelPositive
	} else if sentiment < negativeThreshold {
		return LevelNegative
	}
	return LevelNeutral
}

// EngagementLevel classifies a mean engagement value on the 0-100 scale
func EngagementLevel(engagement float64) string {
	if engagement > highEngagement {
		return LevelHigh
	} else if engagement > mediumEngagement {
		return LevelMedium
	}
	return LevelLow
}

// describe renders the sentiment × engagement quadrant
func describe(sentimentLevel, engagementLevel string) string {
	switch {
	case sentimentLevel == LevelPositive && engagementLevel == LevelHigh:
		return "Enthusiastic audience that actively amplifies positive opinions"
	case sentimentLevel == LevelNegative && engagementLevel == LevelHigh:
		return "Highly engaged critics driving negative conversation"
	case sentimentLevel == LevelPositive && engagementLevel == LevelLow:
		return "Satisfied audience that rarely interacts"
	case sentimentLevel == LevelNegative && engagementLevel == LevelLow:
		return "Disengaged audience with negative leanings"
	default:
		return "Mixed audience with moderate sentiment and engagement"
	}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
