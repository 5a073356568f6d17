package clustering

import (
	"context"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DefaultPowerIterations is the number of multiply/renormalize rounds per eigenvector
const DefaultPowerIterations = 50

// normFloor is the smallest vector norm accepted during power iteration
const normFloor = 1e-12

// EigenSolver extracts the eigenvectors of the k smallest eigenvalues of a symmetric matrix.
// The result is an n×k matrix whose columns are the eigenvectors.
type EigenSolver interface {
	Smallest(ctx context.Context, laplacian mat.Symmetric, k int) (*mat.Dense, error)
}

// PowerIterationSolver approximates the bottom eigenvectors of a normalized Laplacian L
// by running power iteration with deflation on M = I - L. The largest eigenvalues of M
// correspond to the smallest eigenvalues of L.
type PowerIterationSolver struct {
	Iterations int
	rng        *rand.Rand
}

// NewPowerIterationSolver creates a power iteration solver using rng for initial vectors
func NewPowerIterationSolver(iterations int, rng *rand.Rand) *PowerIterationSolver {
	if iterations <= 0 {
		iterations = DefaultPowerIterations
	}
	return &PowerIterationSolver{Iterations: iterations, rng: rng}
}

// Smallest implements EigenSolver
func (s *PowerIterationSolver) Smallest(ctx context.Context, laplacian mat.Symmetric, k int) (*mat.Dense, error) {
	n := laplacian.SymmetricDim()
	if k <= 0 || k > n {
		return nil, instability("cannot extract %d eigenvectors from a %dx%d matrix", k, n, n)
	}

	// M = I - L
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := -laplacian.At(i, j)
			if i == j {
				v += 1
			}
			m.SetSym(i, j, v)
		}
	}

	out := mat.NewDense(n, k, nil)
	v := mat.NewVecDense(n, nil)
	w := mat.NewVecDense(n, nil)

	for c := 0; c < k; c++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := 0; i < n; i++ {
			v.SetVec(i, s.rng.Float64()*2-1)
		}
		if err := normalizeInto(v, v); err != nil {
			return nil, err
		}

		for iter := 0; iter < s.Iterations; iter++ {
			w.MulVec(m, v)
			if err := normalizeInto(v, w); err != nil {
				return nil, instability("power iteration collapsed on eigenvector %d: %v", c, err)
			}
		}

		// Rayleigh quotient, then remove this component before the next extraction
		w.MulVec(m, v)
		lambda := mat.Dot(v, w)
		if !isFinite(lambda) {
			return nil, instability("non-finite eigenvalue estimate for eigenvector %d", c)
		}
		m.SymRankOne(m, -lambda, v)

		out.SetCol(c, v.RawVector().Data)
	}

	return out, nil
}

// normalizeInto writes src/||src|| into dst
func normalizeInto(dst, src *mat.VecDense) error {
	norm := mat.Norm(src, 2)
	if !isFinite(norm) || norm < normFloor {
		return instability("vector norm %v is not usable", norm)
	}
	dst.ScaleVec(1/norm, src)
	return nil
}

// SymmetricSolver computes an exact eigendecomposition with gonum's symmetric eigensolver
type SymmetricSolver struct{}

// NewSymmetricSolver creates a solver backed by mat.EigenSym
func NewSymmetricSolver() *SymmetricSolver {
	return &SymmetricSolver{}
}

// Smallest implements EigenSolver
func (s *SymmetricSolver) Smallest(ctx context.Context, laplacian mat.Symmetric, k int) (*mat.Dense, error) {
	n := laplacian.SymmetricDim()
	if k <= 0 || k > n {
		return nil, instability("cannot extract %d eigenvectors from a %dx%d matrix", k, n, n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(laplacian, true); !ok {
		return nil, instability("symmetric eigendecomposition did not converge")
	}

	// Eigenvalues are returned in ascending order
	for _, value := range eig.Values(nil) {
		if !isFinite(value) {
			return nil, instability("non-finite eigenvalue")
		}
	}

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	out := mat.NewDense(n, k, nil)
	out.Copy(vectors.Slice(0, n, 0, k))

	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			if !isFinite(out.At(i, j)) {
				return nil, instability("non-finite eigenvector entry (%d,%d)", i, j)
			}
		}
	}

	return out, nil
}
