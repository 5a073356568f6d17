package quality

import (
	"math"

	"audiencelens/internal/clustering"
)

// SilhouetteAnalysis holds point, cluster and overall silhouette scores
type SilhouetteAnalysis struct {
	OverallScore  float64         // Average across all points
	ClusterScores map[int]float64 // Per-cluster average scores
	PointScores   []float64       // Individual point scores
	NumClusters   int             // Distinct labels present
	NumPoints     int
}

// PerformSilhouetteAnalysis computes exact Euclidean silhouette scores.
// Cost is quadratic in the number of points.
func PerformSilhouetteAnalysis(points [][]float64, assignments []int) *SilhouetteAnalysis {
	distances := clustering.DistanceMatrix(points)

	sizes := make(map[int]int)
	for _, label := range assignments {
		sizes[label]++
	}

	pointScores := make([]float64, len(assignments))
	clusterSums := make(map[int]float64)
	total := 0.0
	for i := range assignments {
		score := silhouetteScore(i, assignments, sizes, distances)
		pointScores[i] = score
		clusterSums[assignments[i]] += score
		total += score
	}

	clusterScores := make(map[int]float64, len(sizes))
	for label, size := range sizes {
		clusterScores[label] = clusterSums[label] / float64(size)
	}

	overall := 0.0
	if len(assignments) > 0 {
		overall = total / float64(len(assignments))
	}

	return &SilhouetteAnalysis{
		OverallScore:  overall,
		ClusterScores: clusterScores,
		PointScores:   pointScores,
		NumClusters:   len(sizes),
		NumPoints:     len(assignments),
	}
}

// silhouetteScore calculates the silhouette score for a single data point
// Returns a score between -1 and 1:
//
//	-1: Point likely in wrong cluster
//	 0: Point on the border between clusters, or alone in its cluster
//	+1: Point well matched to its cluster
func silhouetteScore(pointIdx int, assignments []int, sizes map[int]int, distances [][]float64) float64 {
	current := assignments[pointIdx]
	if sizes[current] <= 1 || len(sizes) < 2 {
		return 0.0
	}

	// Sum distances per cluster in one pass
	sums := make(map[int]float64, len(sizes))
	for i, label := range assignments {
		if i == pointIdx {
			continue
		}
		sums[label] += distances[pointIdx][i]
	}

	// a(i): mean distance to other points in same cluster
	a := sums[current] / float64(sizes[current]-1)

	// b(i): min mean distance to points in other clusters
	b := math.Inf(1)
	for label, size := range sizes {
		if label == current {
			continue
		}
		if mean := sums[label] / float64(size); mean < b {
			b = mean
		}
	}

	maxAB := math.Max(a, b)
	if maxAB == 0 {
		return 0.0
	}
	return (b - a) / maxAB
}

// interpretSilhouetteScore provides human-readable interpretation
func interpretSilhouetteScore(score float64) string {
	if score >= 0.71 {
		return "Excellent - Strong cluster structure"
	} else if score >= 0.51 {
		return "Good - Reasonable cluster structure"
	} else if score >= 0.26 {
		return "Fair - Weak cluster structure"
	} else if score >= 0.0 {
		return "Poor - No substantial cluster structure"
	}
	return "Very Poor - Artificial/forced clustering"
}
