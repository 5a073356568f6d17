package sentiment

import (
	"strings"

	"audiencelens/internal/core"
)

// SentimentScore represents the sentiment analysis result
type SentimentScore struct {
	Overall    float64 `json:"overall"`    // Overall sentiment score (-1.0 to 1.0)
	Positive   float64 `json:"positive"`   // Positive signal strength (0.0 to 1.0)
	Negative   float64 `json:"negative"`   // Negative signal strength (0.0 to 1.0)
	Confidence float64 `json:"confidence"` // Overall confidence in the analysis (0.3 to 1.0)
}

// SentimentClassification represents the discrete sentiment category
type SentimentClassification string

const (
	SentimentVeryPositive SentimentClassification = "very_positive"
	SentimentPositive     SentimentClassification = "positive"
	SentimentNeutral      SentimentClassification = "neutral"
	SentimentNegative     SentimentClassification = "negative"
	SentimentVeryNegative SentimentClassification = "very_negative"
	SentimentMixed        SentimentClassification = "mixed"
)

// SentimentEmoji maps sentiment classifications to emojis
var SentimentEmoji = map[SentimentClassification]string{
	SentimentVeryPositive: "🚀",
	SentimentPositive:     "😊",
	SentimentNeutral:      "😐",
	SentimentNegative:     "😞",
	SentimentVeryNegative: "😱",
	SentimentMixed:        "🤔",
}

var positiveKeywords = map[string]float64{
	"love": 0.9, "loved": 0.9, "loving": 0.8, "amazing": 0.9, "excellent": 1.0, "outstanding": 0.9,
	"fantastic": 0.8, "awesome": 0.8, "great": 0.7, "good": 0.6, "best": 0.8, "perfect": 0.9,
	"happy": 0.7, "glad": 0.6, "nice": 0.5, "recommend": 0.6, "impressed": 0.7, "enjoy": 0.6,
	"enjoyed": 0.6, "fast": 0.4, "easy": 0.4, "reliable": 0.6, "beautiful": 0.7, "thanks": 0.4,
	"win": 0.6, "wow": 0.6, "favorite": 0.7, "brilliant": 0.8, "smooth": 0.5, "worth": 0.5,
}

var negativeKeywords = map[string]float64{
	"hate": -0.9, "hated": -0.9, "terrible": -1.0, "awful": -0.9, "horrible": -0.9, "worst": -1.0,
	"bad": -0.6, "poor": -0.6, "broken": -0.7, "disappointed": -0.7, "disappointing": -0.7,
	"useless": -0.8, "scam": -0.9, "refund": -0.5, "slow": -0.4, "bug": -0.4, "buggy": -0.6,
	"crash": -0.6, "crashes": -0.6, "annoying": -0.6, "angry": -0.7, "fail": -0.6, "failed": -0.6,
	"problem": -0.5, "issue": -0.4, "expensive": -0.4, "overpriced": -0.6, "waste": -0.7,
	"never": -0.3, "unacceptable": -0.8,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "don't": true, "dont": true, "isn't": true,
	"wasn't": true, "can't": true, "cannot": true, "won't": true, "didn't": true,
}

// SentimentAnalyzer scores free text with a weighted keyword lexicon
type SentimentAnalyzer struct{}

// NewSentimentAnalyzer creates a new sentiment analyzer
func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{}
}

// AnalyzeText performs rule-based sentiment analysis on text.
// A negator directly before a keyword flips its polarity.
func (sa *SentimentAnalyzer) AnalyzeText(text string) SentimentScore {
	words := strings.Fields(strings.ToLower(text))

	var positiveScore, negativeScore float64
	negated := false
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'()")

		weight, isPositive := positiveKeywords[word]
		if !isPositive {
			weight = negativeKeywords[word]
		}
		if negated {
			weight = -weight
		}
		if weight > 0 {
			positiveScore += weight
		} else if weight < 0 {
			negativeScore += -weight
		}

		negated = negators[word]
	}

	// Normalize scores
	if len(words) > 0 {
		positiveScore = positiveScore / float64(len(words)) * 100
		negativeScore = negativeScore / float64(len(words)) * 100
	}

	overall := (positiveScore - negativeScore) / (positiveScore + negativeScore + 1.0)

	positiveScore = min(positiveScore, 1.0)
	negativeScore = min(negativeScore, 1.0)

	// Confidence follows the strength of the sentiment signals
	confidence := (positiveScore + negativeScore) / 2.0
	confidence = max(min(confidence, 1.0), 0.3)

	return SentimentScore{
		Overall:    overall,
		Positive:   positiveScore,
		Negative:   negativeScore,
		Confidence: confidence,
	}
}

// Classify converts a sentiment score to a classification
func (sa *SentimentAnalyzer) Classify(score SentimentScore) SentimentClassification {
	// Check for mixed sentiment (high positive and negative scores)
	if score.Positive > 0.3 && score.Negative > 0.3 && score.Overall > -0.2 && score.Overall < 0.2 {
		return SentimentMixed
	}
	return ClassifyValue(score.Overall)
}

// ClassifyValue buckets a sentiment value in [-1,1]
func ClassifyValue(overall float64) SentimentClassification {
	if overall >= 0.7 {
		return SentimentVeryPositive
	} else if overall >= 0.2 {
		return SentimentPositive
	} else if overall <= -0.7 {
		return SentimentVeryNegative
	} else if overall <= -0.2 {
		return SentimentNegative
	}
	return SentimentNeutral
}

// ScorePost returns the overall lexicon score of a post's content
func (sa *SentimentAnalyzer) ScorePost(post core.Post) float64 {
	return sa.AnalyzeText(post.Content).Overall
}
