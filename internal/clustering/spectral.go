package clustering

import (
	"context"
	"log/slog"
	"math"
	"math/rand"

	"audiencelens/internal/core"
	"audiencelens/internal/logger"
)

// rowNormFloor leaves near-zero embedding rows unnormalized
const rowNormFloor = 1e-10

// SpectralConfig holds configuration for spectral clustering
type SpectralConfig struct {
	KMeans          KMeansConfig
	SigmaSampleSize int
}

// SpectralResult holds the outcome of a spectral clustering run
type SpectralResult struct {
	Assignments    []int
	Centroids      [][]float64 // Means of the original feature vectors per cluster
	Embedding      [][]float64 // Row-normalized spectral embedding (n×k)
	Sigma          float64
	Iterations     int
	InertiaHistory []float64 // K-means inertia in embedding space
}

// SpectralClusterer runs RBF graph → normalized Laplacian → bottom-k eigenvectors → K-means
type SpectralClusterer struct {
	config SpectralConfig
	solver EigenSolver
	rng    *rand.Rand
	log    *slog.Logger
}

// NewSpectralClusterer creates a spectral clusterer using solver for the eigen step
func NewSpectralClusterer(config SpectralConfig, solver EigenSolver, rng *rand.Rand) *SpectralClusterer {
	return &SpectralClusterer{
		config: config,
		solver: solver,
		rng:    rng,
		log:    logger.Get(),
	}
}

// Fit clusters points into k groups. Numerical problems are reported as ErrNumericalInstability
// so the caller can fall back to K-means on the original features.
func (sc *SpectralClusterer) Fit(ctx context.Context, points [][]float64, k int) (*SpectralResult, error) {
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

	graph, err := NewGraphBuilder(sc.config.SigmaSampleSize, sc.rng).Build(ctx, points)
	if err != nil {
		return nil, err
	}
	sc.log.Debug("Similarity graph built", "points", n, "sigma", graph.Sigma)

	vectors, err := sc.solver.Smallest(ctx, graph.Laplacian, k)
	if err != nil {
		return nil, err
	}
	rows, cols := vectors.Dims()
	if rows != n || cols != k {
		return nil, instability("eigen solver returned %dx%d, expected %dx%d", rows, cols, n, k)
	}

	embedding := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		copy(row, vectors.RawRowView(i))

		norm := 0.0
		for _, v := range row {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if !isFinite(norm) {
			return nil, instability("non-finite embedding row %d", i)
		}
		if norm > rowNormFloor {
			for j := range row {
				row[j] /= norm
			}
		}
		embedding[i] = row
	}

	km, err := NewKMeans(sc.config.KMeans, sc.rng).Fit(ctx, embedding, k)
	if err != nil {
		return nil, err
	}

	centroids, err := backProject(points, km.Assignments, k)
	if err != nil {
		return nil, err
	}

	return &SpectralResult{
		Assignments:    km.Assignments,
		Centroids:      centroids,
		Embedding:      embedding,
		Sigma:          graph.Sigma,
		Iterations:     km.Iterations,
		InertiaHistory: km.InertiaHistory,
	}, nil
}

// backProject computes per-cluster means in the original feature space.
// Clusters left empty by the embedding K-means take the global mean.
func backProject(points [][]float64, assignments []int, k int) ([][]float64, error) {
	dim := len(points[0])
	centroids := make([][]float64, k)
	counts := make([]int, k)
	global := make([]float64, dim)

	for i := range centroids {
		centroids[i] = make([]float64, dim)
	}

	for i, point := range points {
		if len(point) != dim {
			return nil, instability("dimension mismatch at point %d", i)
		}
		c := assignments[i]
		counts[c]++
		for j, v := range point {
			centroids[c][j] += v
			global[j] += v
		}
	}

	for j := range global {
		global[j] /= float64(len(points))
	}

	for c := range centroids {
		if counts[c] == 0 {
			copy(centroids[c], global)
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] /= float64(counts[c])
			if !isFinite(centroids[c][j]) {
				return nil, instability("non-finite centroid for cluster %d", c)
			}
		}
	}

	return centroids, nil
}
