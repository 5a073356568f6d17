package core

import (
	"strings"
	"time"
)

// Post represents a single sentiment-annotated social post supplied by a PostSource.
type Post struct {
	ID         string    `json:"id"`                   // Unique identifier for the post
	Content    string    `json:"content"`              // Raw text content
	Sentiment  float64   `json:"sentiment"`            // Sentiment score (-1.0 to 1.0)
	Engagement *float64  `json:"engagement,omitempty"` // Engagement metric (0-100), nil when absent
	Timestamp  time.Time `json:"timestamp"`            // Publication time (zero value if unknown)
	Platform   string    `json:"platform"`             // Source platform (e.g., "twitter", "reddit")
}

// WordCount returns the number of whitespace-separated words in the content.
func (p Post) WordCount() int {
	return len(strings.Fields(p.Content))
}

// HasLinks reports whether the content contains a URL.
func (p Post) HasLinks() bool {
	lower := strings.ToLower(p.Content)
	return strings.Contains(lower, "http://") ||
		strings.Contains(lower, "https://") ||
		strings.Contains(lower, "www.")
}

// HasQuestions reports whether the content contains a question mark.
func (p Post) HasQuestions() bool {
	return strings.Contains(p.Content, "?")
}

// HasExclamations reports whether the content contains an exclamation mark.
func (p Post) HasExclamations() bool {
	return strings.Contains(p.Content, "!")
}

// HourOfDay returns the UTC hour of the post. ok is false when the timestamp is unknown.
func (p Post) HourOfDay() (hour int, ok bool) {
	if p.Timestamp.IsZero() {
		return 0, false
	}
	return p.Timestamp.UTC().Hour(), true
}

// DayOfWeek returns the UTC weekday (0=Sunday). ok is false when the timestamp is unknown.
func (p Post) DayOfWeek() (day int, ok bool) {
	if p.Timestamp.IsZero() {
		return 0, false
	}
	return int(p.Timestamp.UTC().Weekday()), true
}

// EngagementValue returns the engagement metric and whether it is present.
func (p Post) EngagementValue() (float64, bool) {
	if p.Engagement == nil {
		return 0, false
	}
	return *p.Engagement, true
}

// FeatureGroup selects a family of features derived from each post.
type FeatureGroup string

const (
	FeatureSentiment  FeatureGroup = "sentiment"
	FeatureEngagement FeatureGroup = "engagement"
	FeatureContent    FeatureGroup = "content"
	FeatureTemporal   FeatureGroup = "temporal"
	FeatureKeywords   FeatureGroup = "keywords"
)

// AllFeatureGroups lists every feature group in canonical order.
var AllFeatureGroups = []FeatureGroup{
	FeatureSentiment,
	FeatureEngagement,
	FeatureContent,
	FeatureTemporal,
	FeatureKeywords,
}

// Valid reports whether g is one of the known feature groups.
func (g FeatureGroup) Valid() bool {
	for _, known := range AllFeatureGroups {
		if g == known {
			return true
		}
	}
	return false
}

// Algorithm identifies a clustering algorithm accepted in a request.
type Algorithm string

const (
	AlgorithmKMeans       Algorithm = "kmeans"
	AlgorithmHierarchical Algorithm = "hierarchical"
	AlgorithmDBSCAN       Algorithm = "dbscan"
	AlgorithmGaussian     Algorithm = "gaussian"
	AlgorithmSpectral     Algorithm = "spectral"
)

// Valid reports whether a is an accepted algorithm identifier.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmKMeans, AlgorithmHierarchical, AlgorithmDBSCAN, AlgorithmGaussian, AlgorithmSpectral:
		return true
	}
	return false
}

const (
	MinClusters = 2
	MaxClusters = 10
)

// ClusterRequest describes one audience segmentation request.
type ClusterRequest struct {
	Query         string         `json:"query"`          // Label only, never interpreted
	Platform      string         `json:"platform"`       // Opaque platform identifier
	Algorithm     Algorithm      `json:"algorithm"`      // Defaults to kmeans when empty
	NumClusters   int            `json:"numClusters"`    // Requested k, 2-10
	FeatureGroups []FeatureGroup `json:"featureGroups"`  // Subset of AllFeatureGroups
	Seed          int64          `json:"seed,omitempty"` // Random seed; 0 means "use configured default"
}

// DataPoint is the per-post clustering outcome.
type DataPoint struct {
	PostID     string  `json:"postId"`
	ClusterID  int     `json:"clusterId"`
	Confidence float64 `json:"confidence"` // 1/(1+distance to centroid), in (0, 1]
}

// ClusterSummary aggregates statistics for one cluster.
type ClusterSummary struct {
	ID              int     `json:"id"`
	Size            int     `json:"size"`
	Percentage      float64 `json:"percentage"`
	AvgSentiment    float64 `json:"avgSentiment"`
	AvgEngagement   float64 `json:"avgEngagement"`
	SentimentLevel  string  `json:"sentimentLevel"`  // Positive, Negative, Neutral
	EngagementLevel string  `json:"engagementLevel"` // High, Medium, Low
	Description     string  `json:"description"`
}

// ClusterInsight is the qualitative archetype assigned to a cluster.
type ClusterInsight struct {
	ClusterID      int    `json:"clusterId"`
	Archetype      string `json:"archetype"`
	Title          string `json:"title"`
	Recommendation string `json:"recommendation"`
}

// Insights bundles the overall statement with per-cluster archetypes.
type Insights struct {
	Overall          string           `json:"overall"`
	AverageSentiment float64          `json:"averageSentiment"`
	Clusters         []ClusterInsight `json:"clusters"`
}

// ClusterTrend describes the sentiment direction of a cluster.
type ClusterTrend struct {
	ClusterID  int     `json:"clusterId"`
	Direction  string  `json:"direction"`  // positive, negative, neutral
	Strength   float64 `json:"strength"`   // |avgSentiment|
	Engagement float64 `json:"engagement"` // avgEngagement
	Momentum   float64 `json:"momentum"`   // newer-half minus older-half mean sentiment
}

// Trends holds per-cluster trends and textual findings.
type Trends struct {
	Clusters    []ClusterTrend `json:"clusters"`
	KeyFindings []string       `json:"keyFindings"`
}

// Silhouette computation methods.
const (
	MethodSilhouette   = "silhouette"
	MethodInertiaProxy = "inertia_proxy"
)

// Metrics holds the clustering quality measures.
type Metrics struct {
	Inertia         float64         `json:"inertia"`
	SilhouetteScore float64         `json:"silhouetteScore"`
	Coherence       float64         `json:"coherence"`
	Method          string          `json:"method"`
	ClusterScores   map[int]float64 `json:"clusterScores,omitempty"`
	Quality         string          `json:"quality"`
	Iterations      int             `json:"iterations"`
	Issues          []string        `json:"issues,omitempty"`
}

// ClusteringResult is the immutable output of one analysis request.
type ClusteringResult struct {
	ID                 string           `json:"id"`
	Query              string           `json:"query"`
	Platform           string           `json:"platform"`
	RequestedAlgorithm Algorithm        `json:"requestedAlgorithm"`
	ActualAlgorithm    Algorithm        `json:"actualAlgorithm"`
	TotalPoints        int              `json:"totalPoints"`
	RequestedClusters  int              `json:"requestedClusters"`
	NumClusters        int              `json:"numClusters"` // Non-empty clusters
	Seed               int64            `json:"seed"`
	FeatureNames       []string         `json:"featureNames"`
	FeatureFallback    bool             `json:"featureFallback"`
	DataPoints         []DataPoint      `json:"dataPoints"`
	Centroids          [][]float64      `json:"centroids"`
	ClusterSummaries   []ClusterSummary `json:"clusterSummaries"`
	Insights           Insights         `json:"insights"`
	Trends             Trends           `json:"trends"`
	Metrics            Metrics          `json:"metrics"`
	Degraded           bool             `json:"degraded"`
	DegradedReason     string           `json:"degradedReason,omitempty"`
	Degradation        *Degradation     `json:"degradation,omitempty"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}
