package clustering

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"audiencelens/internal/core"
)

const (
	// sigmaScale shrinks the mean pairwise distance into the RBF bandwidth
	sigmaScale = 0.5
	// sigmaFloor keeps the bandwidth away from zero for very tight data
	sigmaFloor = 1e-6
	// DefaultSigmaSampleSize caps the points used for bandwidth estimation
	DefaultSigmaSampleSize = 100
)

// SimilarityGraph is the dense similarity graph built from feature vectors
type SimilarityGraph struct {
	Sigma      float64       // RBF bandwidth
	Similarity *mat.SymDense // S[i][i]=1, S[i][j]=exp(-d²/2σ²)
	Degree     []float64     // Row sums of S
	Laplacian  *mat.SymDense // I - D^(-1/2) S D^(-1/2)
}

// GraphBuilder constructs RBF similarity graphs and their normalized Laplacian
type GraphBuilder struct {
	sampleSize int
	rng        *rand.Rand
}

// NewGraphBuilder creates a builder sampling at most sampleSize points for sigma
func NewGraphBuilder(sampleSize int, rng *rand.Rand) *GraphBuilder {
	if sampleSize < 2 {
		sampleSize = DefaultSigmaSampleSize
	}
	return &GraphBuilder{sampleSize: sampleSize, rng: rng}
}

// Build computes sigma, the similarity matrix, degrees and the symmetric normalized Laplacian.
// Rows are computed in parallel; any non-finite value aborts with ErrNumericalInstability.
func (b *GraphBuilder) Build(ctx context.Context, points [][]float64) (*SimilarityGraph, error) {
	n := len(points)
	if n < 2 {
		return nil, instability("need at least 2 points for a similarity graph, got %d", n)
	}
	if _, err := commonDimension(points); err != nil {
		return nil, instability("dimension mismatch: %v", err)
	}

	sigma, err := b.EstimateSigma(points)
	if err != nil {
		return nil, err
	}
	twoSigmaSq := 2 * sigma * sigma

	simData := make([]float64, n*n)
	err = parallelRows(ctx, n, func(i int) error {
		row := simData[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			if i == j {
				row[j] = 1
				continue
			}
			s := math.Exp(-SquaredEuclidean(points[i], points[j]) / twoSigmaSq)
			if !isFinite(s) {
				return instability("non-finite similarity between points %d and %d", i, j)
			}
			row[j] = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	degree := make([]float64, n)
	invSqrt := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, s := range simData[i*n : (i+1)*n] {
			sum += s
		}
		if !isFinite(sum) || sum <= 0 {
			return nil, instability("invalid degree %v for point %d", sum, i)
		}
		degree[i] = sum
		invSqrt[i] = 1 / math.Sqrt(sum)
	}

	lapData := make([]float64, n*n)
	err = parallelRows(ctx, n, func(i int) error {
		row := lapData[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			v := -simData[i*n+j] * invSqrt[i] * invSqrt[j]
			if i == j {
				v += 1
			}
			if !isFinite(v) {
				return instability("non-finite Laplacian entry (%d,%d)", i, j)
			}
			row[j] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SimilarityGraph{
		Sigma:      sigma,
		Similarity: mat.NewSymDense(n, simData),
		Degree:     degree,
		Laplacian:  mat.NewSymDense(n, lapData),
	}, nil
}

// EstimateSigma returns half the mean pairwise distance over a capped sample, floored at sigmaFloor.
// Zero total distance (all sampled points identical) is reported as numerical instability.
func (b *GraphBuilder) EstimateSigma(points [][]float64) (float64, error) {
	sample := points
	if len(points) > b.sampleSize {
		perm := b.rng.Perm(len(points))[:b.sampleSize]
		sample = make([][]float64, len(perm))
		for i, idx := range perm {
			sample[i] = points[idx]
		}
	}

	total := 0.0
	pairs := 0
	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			total += EuclideanDistance(sample[i], sample[j])
			pairs++
		}
	}

	if pairs == 0 || total == 0 {
		return 0, instability("zero total pairwise distance, cannot estimate sigma")
	}
	if !isFinite(total) {
		return 0, instability("non-finite pairwise distance total")
	}

	return math.Max(sigmaScale*total/float64(pairs), sigmaFloor), nil
}

// parallelRows runs fn for every row index with bounded parallelism.
// Rows are independent; no ordering is implied between them.
func parallelRows(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// The parent may have been canceled after the last row was scheduled
	return ctx.Err()
}

func instability(format string, args ...any) error {
	return core.NewError(core.KindNumericalInstability, format, args...)
}
