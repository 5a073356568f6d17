package quality

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"audiencelens/internal/clustering"
	"audiencelens/internal/core"
	"audiencelens/internal/logger"
)

// DefaultExactLimit is the point count from which the inertia proxy replaces exact silhouette
const DefaultExactLimit = 2000

// Thresholds defines minimum acceptable clustering quality levels
type Thresholds struct {
	ExactLimit         int     // Exact silhouette below this many points
	ReferenceScale     float64 // Proxy denominator per point; 0 uses the feature dimension
	MinSilhouetteScore float64 // Per-cluster score below which an issue is reported
}

// DefaultThresholds returns the standard quality thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExactLimit:         DefaultExactLimit,
		MinSilhouetteScore: 0.3,
	}
}

// MetricsEvaluator computes inertia, silhouette (or its proxy) and coherence for a clustering
type MetricsEvaluator struct {
	thresholds Thresholds
	log        *slog.Logger
}

// NewMetricsEvaluator creates an evaluator with the given thresholds
func NewMetricsEvaluator(thresholds Thresholds) *MetricsEvaluator {
	if thresholds.ExactLimit <= 0 {
		thresholds.ExactLimit = DefaultExactLimit
	}
	return &MetricsEvaluator{
		thresholds: thresholds,
		log:        logger.Get(),
	}
}

// Evaluate scores assignments of points against centroids. Points, assignments and
// centroids must share the same feature space.
func (e *MetricsEvaluator) Evaluate(points [][]float64, assignments []int, centroids [][]float64) core.Metrics {
	metrics := core.Metrics{
		Inertia: clustering.Inertia(points, assignments, centroids),
	}

	n := len(points)
	if n == 0 {
		metrics.Method = core.MethodSilhouette
		metrics.Quality = interpretSilhouetteScore(0)
		return metrics
	}

	if n < e.thresholds.ExactLimit {
		analysis := PerformSilhouetteAnalysis(points, assignments)
		metrics.Method = core.MethodSilhouette
		metrics.SilhouetteScore = analysis.OverallScore
		metrics.ClusterScores = analysis.ClusterScores
		metrics.Issues = e.clusterIssues(analysis.ClusterScores, len(centroids))
	} else {
		metrics.Method = core.MethodInertiaProxy
		metrics.SilhouetteScore = e.inertiaProxy(metrics.Inertia, n, len(points[0]))
		e.log.Debug("Using inertia proxy for silhouette", "points", n, "score", metrics.SilhouetteScore)
	}

	metrics.Coherence = metrics.SilhouetteScore
	metrics.Quality = interpretSilhouetteScore(metrics.SilhouetteScore)

	return metrics
}

// inertiaProxy maps mean squared distance to centroid onto [0,1]: max(0, 1 - inertia/(n·scale))
func (e *MetricsEvaluator) inertiaProxy(inertia float64, n, dim int) float64 {
	scale := e.thresholds.ReferenceScale
	if scale <= 0 {
		// Largest squared distance inside the unit hypercube
		scale = float64(dim)
	}
	if scale <= 0 {
		return 0
	}
	return math.Max(0, 1-inertia/(float64(n)*scale))
}

// clusterIssues lists empty clusters and clusters scoring below the silhouette threshold
func (e *MetricsEvaluator) clusterIssues(scores map[int]float64, k int) []string {
	var issues []string

	labels := make([]int, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	for c := 0; c < k; c++ {
		if _, ok := scores[c]; !ok {
			issues = append(issues, fmt.Sprintf("Cluster %d is empty", c))
		}
	}
	for _, label := range labels {
		if scores[label] < e.thresholds.MinSilhouetteScore {
			issues = append(issues, fmt.Sprintf("Cluster %d has low silhouette score: %.2f (min: %.2f)",
				label, scores[label], e.thresholds.MinSilhouetteScore))
		}
	}

	return issues
}
