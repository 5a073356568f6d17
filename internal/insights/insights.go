package insights

import (
	"fmt"

	"audiencelens/internal/core"
)

// Archetype names
const (
	ArchetypeBrandChampions   = "Brand Champions"
	ArchetypeVocalCritics     = "Vocal Critics"
	ArchetypeSilentSupporters = "Silent Supporters"
	ArchetypePassiveObservers = "Passive Observers"
	ArchetypeMixedSignals     = "Mixed Signals"
)

// template holds the fixed copy for one archetype
type template struct {
	title          string
	recommendation string
}

var templates = map[string]template{
	ArchetypeBrandChampions: {
		title:          "Brand Champions: highly engaged advocates",
		recommendation: "Activate this segment through ambassador and referral programs; give them content worth sharing.",
	},
	ArchetypeVocalCritics: {
		title:          "Vocal Critics: highly engaged detractors",
		recommendation: "Respond publicly and quickly; route recurring complaints to product and support teams.",
	},
	ArchetypeSilentSupporters: {
		title:          "Silent Supporters: positive but quiet",
		recommendation: "Lower the barrier to participation with polls, prompts and easy sharing options.",
	},
	ArchetypePassiveObservers: {
		title:          "Passive Observers: low engagement",
		recommendation: "Test new formats and channels to earn attention before pushing messaging.",
	},
	ArchetypeMixedSignals: {
		title:          "Mixed Signals: no dominant pattern",
		recommendation: "Segment further or gather more data before committing to a targeted strategy.",
	},
}

// Generator derives qualitative insights from cluster summaries
type Generator struct{}

// NewGenerator creates a new insight generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the overall statement from the mean sentiment of all posts
// and classifies each cluster into an archetype
func (g *Generator) Generate(posts []core.Post, summaries []core.ClusterSummary) core.Insights {
	avg := 0.0
	for _, post := range posts {
		avg += post.Sentiment
	}
	if len(posts) > 0 {
		avg /= float64(len(posts))
	}

	result := core.Insights{
		Overall:          overallStatement(avg),
		AverageSentiment: avg,
		Clusters:         make([]core.ClusterInsight, 0, len(summaries)),
	}

	for _, s := range summaries {
		archetype := Classify(s.AvgSentiment, s.AvgEngagement)
		tmpl := templates[archetype]
		result.Clusters = append(result.Clusters, core.ClusterInsight{
			ClusterID:      s.ID,
			Archetype:      archetype,
			Title:          tmpl.title,
			Recommendation: tmpl.recommendation,
		})
	}

	return result
}

// Classify maps mean sentiment and engagement onto an archetype.
// Rules are checked in order; the first match wins.
func Classify(sentiment, engagement float64) string {
	switch {
	case sentiment > 0.5 && engagement > 70:
		return ArchetypeBrandChampions
	case sentiment < -0.3 && engagement > 60:
		return ArchetypeVocalCritics
	case sentiment > 0.2 && engagement < 30:
		return ArchetypeSilentSupporters
	case engagement < 20:
		return ArchetypePassiveObservers
	default:
		return ArchetypeMixedSignals
	}
}

func overallStatement(avg float64) string {
	switch {
	case avg > 0.5:
		return fmt.Sprintf("Public opinion is strongly positive (average sentiment %.2f).", avg)
	case avg > 0.1:
		return fmt.Sprintf("Public opinion leans positive (average sentiment %.2f).", avg)
	case avg < -0.5:
		return fmt.Sprintf("Public opinion is strongly negative (average sentiment %.2f).", avg)
	case avg < -0.1:
		return fmt.Sprintf("Public opinion leans negative (average sentiment %.2f).", avg)
	default:
		return fmt.Sprintf("Public opinion is broadly neutral or divided (average sentiment %.2f).", avg)
	}
}
