// Package features turns raw posts into fixed-dimension feature vectors scaled to [0,1].
package features

import (
	"fmt"
	"math"

	"audiencelens/internal/core"
)

// Normalization ranges for continuous attributes
const (
	SentimentMin  = -1.0
	SentimentMax  = 1.0
	EngagementMin = 0.0
	EngagementMax = 100.0
	WordCountMax  = 500.0
	HourMax       = 23.0
	DayMax        = 6.0

	// missingContinuous is used for absent or NaN continuous values
	missingContinuous = 0.5

	positiveThreshold = 0.1
	negativeThreshold = -0.1
	peakHourStart     = 9
	peakHourEnd       = 17
)

// groupLayouts lists the feature names each group contributes, in emission order.
var groupLayouts = map[core.FeatureGroup][]string{
	core.FeatureSentiment:  {"sentiment", "is_positive", "is_negative"},
	core.FeatureEngagement: {"engagement"},
	core.FeatureContent:    {"word_count", "has_links", "has_questions", "has_exclamations"},
	core.FeatureTemporal:   {"hour_of_day", "day_of_week", "is_weekend", "is_peak_hours"},
	core.FeatureKeywords:   {"brand_mention", "emotional_language", "comparison_language", "price_language", "recommendation_language"},
}

// fallbackNames is the uniform layout used when the selected groups yield no features.
var fallbackNames = []string{"sentiment", "engagement"}

// Set holds the feature vectors for one run. All vectors share len(Names).
type Set struct {
	Vectors  [][]float64
	Names    []string
	Groups   []core.FeatureGroup
	Fallback bool // true when every vector uses the {sentiment, engagement} fallback layout
}

// Dimension returns the vector length of the set.
func (s *Set) Dimension() int {
	return len(s.Names)
}

// Builder converts posts into feature vectors.
type Builder struct {
	keywords *KeywordDetector
}

// NewBuilder creates a builder; brandTerms extend the built-in brand mention lexicon.
func NewBuilder(brandTerms ...string) *Builder {
	return &Builder{
		keywords: NewKeywordDetector(brandTerms...),
	}
}

// Build produces one vector per post for the requested groups.
// If the groups produce an empty vector, every post falls back to {sentiment, engagement}.
func (b *Builder) Build(posts []core.Post, groups []core.FeatureGroup) (*Set, error) {
	ordered, err := canonicalGroups(groups)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, g := range ordered {
		names = append(names, groupLayouts[g]...)
	}

	set := &Set{
		Vectors: make([][]float64, len(posts)),
		Names:   names,
		Groups:  ordered,
	}

	if len(names) == 0 {
		set.Names = append([]string(nil), fallbackNames...)
		set.Fallback = true
		for i, post := range posts {
			set.Vectors[i] = []float64{normalizedSentiment(post), normalizedEngagement(post)}
		}
		return set, nil
	}

	for i, post := range posts {
		vec := make([]float64, 0, len(names))
		for _, g := range ordered {
			vec = b.appendGroup(vec, g, post)
		}
		if len(vec) != len(names) {
			return nil, fmt.Errorf("post %s produced %d features, expected %d", post.ID, len(vec), len(names))
		}
		set.Vectors[i] = vec
	}

	return set, nil
}

// canonicalGroups validates, de-duplicates and orders the requested groups.
func canonicalGroups(groups []core.FeatureGroup) ([]core.FeatureGroup, error) {
	requested := make(map[core.FeatureGroup]bool, len(groups))
	for _, g := range groups {
		if !g.Valid() {
			return nil, core.NewError(core.KindInvalidRequest, "unknown feature group %q", g)
		}
		requested[g] = true
	}

	var ordered []core.FeatureGroup
	for _, g := range core.AllFeatureGroups {
		if requested[g] {
			ordered = append(ordered, g)
		}
	}
	return ordered, nil
}

func (b *Builder) appendGroup(vec []float64, group core.FeatureGroup, post core.Post) []float64 {
	switch group {
	case core.FeatureSentiment:
		return append(vec,
			normalizedSentiment(post),
			boolFeature(!math.IsNaN(post.Sentiment) && post.Sentiment > positiveThreshold),
			boolFeature(!math.IsNaN(post.Sentiment) && post.Sentiment < negativeThreshold),
		)

	case core.FeatureEngagement:
		return append(vec, normalizedEngagement(post))

	case core.FeatureContent:
		return append(vec,
			Normalize(float64(post.WordCount()), 0, WordCountMax),
			boolFeature(post.HasLinks()),
			boolFeature(post.HasQuestions()),
			boolFeature(post.HasExclamations()),
		)

	case core.FeatureTemporal:
		hour, hasHour := post.HourOfDay()
		day, hasDay := post.DayOfWeek()
		hourFeature, dayFeature := missingContinuous, missingContinuous
		if hasHour {
			hourFeature = Normalize(float64(hour), 0, HourMax)
		}
		if hasDay {
			dayFeature = Normalize(float64(day), 0, DayMax)
		}
		return append(vec,
			hourFeature,
			dayFeature,
			boolFeature(hasDay && (day == 0 || day == 6)),
			boolFeature(hasHour && hour >= peakHourStart && hour <= peakHourEnd),
		)

	case core.FeatureKeywords:
		matches := b.keywords.Detect(post.Content)
		return append(vec,
			boolFeature(matches.Brand),
			boolFeature(matches.Emotional),
			boolFeature(matches.Comparison),
			boolFeature(matches.Price),
			boolFeature(matches.Recommendation),
		)
	}
	return vec
}

// Normalize maps v from [lo, hi] into [0,1], clamping out-of-range values.
// NaN maps to 0.5.
func Normalize(v, lo, hi float64) float64 {
	if math.IsNaN(v) || hi <= lo {
		return missingContinuous
	}
	n := (v - lo) / (hi - lo)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

func normalizedSentiment(post core.Post) float64 {
	return Normalize(post.Sentiment, SentimentMin, SentimentMax)
}

func normalizedEngagement(post core.Post) float64 {
	v, ok := post.EngagementValue()
	if !ok {
		return missingContinuous
	}
	return Normalize(v, EngagementMin, EngagementMax)
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
