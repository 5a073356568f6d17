package clustering

import "math"

// EuclideanDistance calculates Euclidean distance between two vectors
func EuclideanDistance(a, b []float64) float64 {
	return math.Sqrt(SquaredEuclidean(a, b))
}

// SquaredEuclidean calculates the squared Euclidean distance between two vectors.
// Vectors of different length are infinitely far apart.
func SquaredEuclidean(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	sumSquares := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sumSquares += diff * diff
	}
	return sumSquares
}

// Inertia is the sum of squared distances from each point to its assigned centroid
func Inertia(points [][]float64, assignments []int, centroids [][]float64) float64 {
	total := 0.0
	for i, point := range points {
		total += SquaredEuclidean(point, centroids[assignments[i]])
	}
	return total
}

// DistanceMatrix computes pairwise Euclidean distances between all points
func DistanceMatrix(points [][]float64) [][]float64 {
	n := len(points)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := EuclideanDistance(points[i], points[j])
			matrix[i][j] = d
			matrix[j][i] = d
		}
	}

	return matrix
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
