package clustering

import (
	"context"
	"log/slog"
	"math"
	"math/rand"

	"audiencelens/internal/core"
	"audiencelens/internal/logger"
)

// KMeansConfig holds configuration for K-means clustering
type KMeansConfig struct {
	MaxIterations int // Maximum number of assign/update rounds
}

// DefaultKMeansConfig returns sensible defaults for K-means clustering
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{
		MaxIterations: 100,
	}
}

// KMeansResult holds the outcome of one K-means run
type KMeansResult struct {
	Assignments    []int       // Cluster label per point, in [0,k)
	Centroids      [][]float64 // Per-cluster mean of assigned points
	Iterations     int         // Assignment rounds executed
	Converged      bool        // True when assignments stopped changing
	InertiaHistory []float64   // Inertia after each assignment round
}

// KMeans implements Lloyd's algorithm with K-means++ seeding.
// The random source is owned by the caller so runs are reproducible.
type KMeans struct {
	config KMeansConfig
	rng    *rand.Rand
	log    *slog.Logger
}

// NewKMeans creates a K-means clusterer drawing randomness from rng
func NewKMeans(config KMeansConfig, rng *rand.Rand) *KMeans {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultKMeansConfig().MaxIterations
	}
	return &KMeans{
		config: config,
		rng:    rng,
		log:    logger.Get(),
	}
}

// Fit clusters points into k groups
func (km *KMeans) Fit(ctx context.Context, points [][]float64, k int) (*KMeansResult, error) {
	n := len(points)
	if n == 0 {
		return nil, core.NewError(core.KindInvalidRequest, "no points to cluster")
	}
	if k <= 0 {
		return nil, core.NewError(core.KindInvalidRequest, "number of clusters must be positive, got %d", k)
	}
	if k > n {
		return nil, core.NewError(core.KindInvalidClusterCount, "k=%d exceeds number of points %d", k, n)
	}

	dim, err := commonDimension(points)
	if err != nil {
		return nil, err
	}

	// One point per cluster: nothing to optimize
	if k == n {
		return km.identityAssignment(points), nil
	}

	centroids := km.initializeCentroidsKMeansPP(points, k, dim)

	var assignments []int
	var history []float64
	converged := false
	iterations := 0

	for iteration := 0; iteration < km.config.MaxIterations && !converged; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Assignment step: assign each point to nearest centroid
		newAssignments := make([]int, n)
		for i, point := range points {
			newAssignments[i] = nearestCentroid(point, centroids)
		}
		history = append(history, Inertia(points, newAssignments, centroids))

		// Check convergence
		if iteration > 0 {
			converged = true
			for i := range assignments {
				if assignments[i] != newAssignments[i] {
					converged = false
					break
				}
			}
		}

		assignments = newAssignments
		iterations = iteration + 1

		if !converged {
			// Update step: recalculate centroids
			centroids = updateCentroids(points, assignments, centroids)
		}
	}

	km.log.Debug("K-means finished",
		"points", n,
		"k", k,
		"iterations", iterations,
		"converged", converged,
	)

	return &KMeansResult{
		Assignments:    assignments,
		Centroids:      centroids,
		Iterations:     iterations,
		Converged:      converged,
		InertiaHistory: history,
	}, nil
}

func (km *KMeans) identityAssignment(points [][]float64) *KMeansResult {
	assignments := make([]int, len(points))
	centroids := make([][]float64, len(points))
	for i, point := range points {
		assignments[i] = i
		centroids[i] = append([]float64(nil), point...)
	}
	return &KMeansResult{
		Assignments:    assignments,
		Centroids:      centroids,
		Iterations:     1,
		Converged:      true,
		InertiaHistory: []float64{0},
	}
}

// initializeCentroidsKMeansPP uses K-means++ initialization for better cluster quality
func (km *KMeans) initializeCentroidsKMeansPP(points [][]float64, k, dim int) [][]float64 {
	centroids := make([][]float64, k)

	// Step 1: Choose first centroid uniformly at random
	firstIndex := km.rng.Intn(len(points))
	centroids[0] = make([]float64, dim)
	copy(centroids[0], points[firstIndex])

	// Step 2: Choose remaining centroids with probability proportional to squared distance
	distances := make([]float64, len(points))
	for i := 1; i < k; i++ {
		totalDistance := 0.0

		for j, point := range points {
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				dist := SquaredEuclidean(point, centroids[c])
				if dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist
			totalDistance += minDist
		}

		centroids[i] = make([]float64, dim)

		if totalDistance == 0 {
			// Every point coincides with a chosen centroid
			copy(centroids[i], points[km.rng.Intn(len(points))])
			continue
		}

		target := km.rng.Float64() * totalDistance
		cumulative := 0.0
		selectedIndex := -1

		for j, dist := range distances {
			if dist == 0 {
				continue
			}
			selectedIndex = j
			cumulative += dist
			if cumulative > target {
				break
			}
		}

		copy(centroids[i], points[selectedIndex])
	}

	return centroids
}

// nearestCentroid finds the index of the nearest centroid; ties go to the lowest index
func nearestCentroid(point []float64, centroids [][]float64) int {
	minDistance := math.Inf(1)
	nearestIndex := 0

	for i, centroid := range centroids {
		distance := SquaredEuclidean(point, centroid)
		if distance < minDistance {
			minDistance = distance
			nearestIndex = i
		}
	}

	return nearestIndex
}

// updateCentroids recalculates centroids as per-dimension means.
// A cluster that lost all its points keeps its previous centroid.
func updateCentroids(points [][]float64, assignments []int, previous [][]float64) [][]float64 {
	k := len(previous)
	dim := len(previous[0])
	centroids := make([][]float64, k)
	counts := make([]int, k)

	for i := range centroids {
		centroids[i] = make([]float64, dim)
	}

	for i, point := range points {
		clusterID := assignments[i]
		counts[clusterID]++
		for j := range point {
			centroids[clusterID][j] += point[j]
		}
	}

	for i := range centroids {
		if counts[i] == 0 {
			copy(centroids[i], previous[i])
			continue
		}
		for j := range centroids[i] {
			centroids[i][j] /= float64(counts[i])
		}
	}

	return centroids
}

// commonDimension returns the shared vector length or an error on mismatch
func commonDimension(points [][]float64) (int, error) {
	dim := len(points[0])
	if dim == 0 {
		return 0, core.NewError(core.KindInvalidRequest, "points have zero dimension")
	}
	for i, p := range points {
		if len(p) != dim {
			return 0, core.NewError(core.KindInvalidRequest, "point %d has dimension %d, expected %d", i, len(p), dim)
		}
	}
	return dim, nil
}
