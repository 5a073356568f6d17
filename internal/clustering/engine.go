package clustering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"audiencelens/internal/core"
	"audiencelens/internal/logger"
)

// Eigen solver identifiers accepted in EngineConfig
const (
	SolverPower     = "power"
	SolverSymmetric = "symmetric"
)

// EngineConfig holds configuration for the clustering engine
type EngineConfig struct {
	KMeans          KMeansConfig
	SigmaSampleSize int
	EigenSolver     string // "power" (default) or "symmetric"
	PowerIterations int
}

// DefaultEngineConfig returns sensible defaults for the engine
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		KMeans:          DefaultKMeansConfig(),
		SigmaSampleSize: DefaultSigmaSampleSize,
		EigenSolver:     SolverPower,
		PowerIterations: DefaultPowerIterations,
	}
}

// Outcome is the algorithm-level result of one engine run
type Outcome struct {
	Requested      core.Algorithm
	Algorithm      core.Algorithm // Algorithm that actually produced the assignments
	Assignments    []int
	Centroids      [][]float64 // Always in the original feature space
	Iterations     int
	// InertiaHistory is the per-iteration k-means inertia. Spectral runs record it in the
	// embedding space, so it is not comparable with Metrics.Inertia.
	InertiaHistory []float64
	Degradation    *core.Degradation // Non-nil when the requested algorithm was not executed as asked
}

// Degraded reports whether the run fell back from the requested algorithm
func (o *Outcome) Degraded() bool {
	return o.Degradation != nil
}

// Engine dispatches requests to K-means++ or the spectral pipeline.
// Each call builds its own random source from the seed; engines hold no mutable state.
type Engine struct {
	config EngineConfig
	log    *slog.Logger
}

// NewEngine creates a new clustering engine
func NewEngine(config EngineConfig) *Engine {
	defaults := DefaultEngineConfig()
	if config.KMeans.MaxIterations <= 0 {
		config.KMeans.MaxIterations = defaults.KMeans.MaxIterations
	}
	if config.SigmaSampleSize < 2 {
		config.SigmaSampleSize = defaults.SigmaSampleSize
	}
	if config.EigenSolver == "" {
		config.EigenSolver = defaults.EigenSolver
	}
	if config.PowerIterations <= 0 {
		config.PowerIterations = defaults.PowerIterations
	}
	return &Engine{
		config: config,
		log:    logger.Get(),
	}
}

// Cluster runs the requested algorithm on points. Numerical instability in the spectral
// pipeline and algorithms without a native implementation degrade to K-means++ and are
// reported through Outcome.Degradation rather than as errors.
func (e *Engine) Cluster(
	ctx context.Context,
	points [][]float64,
	k int,
	algorithm core.Algorithm,
	seed int64,
) (*Outcome, error) {
	if algorithm == "" {
		algorithm = core.AlgorithmKMeans
	}
	rng := rand.New(rand.NewSource(seed))

	switch algorithm {
	case core.AlgorithmKMeans:
		return e.runKMeans(ctx, points, k, rng, algorithm, nil)

	case core.AlgorithmSpectral:
		outcome, err := e.runSpectral(ctx, points, k, rng)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, core.ErrNumericalInstability) {
			return nil, err
		}
		e.log.Warn("Spectral clustering unstable, falling back to K-means", "error", err.Error())
		return e.runKMeans(ctx, points, k, rng, algorithm, &core.Degradation{
			Code:      core.KindNumericalInstability,
			Requested: algorithm,
			Message:   fmt.Sprintf("spectral clustering fell back to kmeans: %v", err),
		})

	case core.AlgorithmHierarchical, core.AlgorithmDBSCAN, core.AlgorithmGaussian:
		e.log.Warn("Algorithm delegated to K-means", "requested", string(algorithm))
		return e.runKMeans(ctx, points, k, rng, algorithm, &core.Degradation{
			Code:      core.KindNotFullyImplemented,
			Requested: algorithm,
			Message:   fmt.Sprintf("%s clustering is not implemented; delegated to kmeans", algorithm),
		})

	default:
		return nil, core.NewError(core.KindInvalidRequest, "unknown clustering algorithm %q", algorithm)
	}
}

func (e *Engine) runKMeans(
	ctx context.Context,
	points [][]float64,
	k int,
	rng *rand.Rand,
	requested core.Algorithm,
	degradation *core.Degradation,
) (*Outcome, error) {
	result, err := NewKMeans(e.config.KMeans, rng).Fit(ctx, points, k)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Requested:      requested,
		Algorithm:      core.AlgorithmKMeans,
		Assignments:    result.Assignments,
		Centroids:      result.Centroids,
		Iterations:     result.Iterations,
		InertiaHistory: result.InertiaHistory,
		Degradation:    degradation,
	}, nil
}

func (e *Engine) runSpectral(ctx context.Context, points [][]float64, k int, rng *rand.Rand) (*Outcome, error) {
	if _, err := commonDimension(points); err != nil {
		return nil, instability("dimension mismatch: %v", err)
	}

	sc := NewSpectralClusterer(SpectralConfig{
		KMeans:          e.config.KMeans,
		SigmaSampleSize: e.config.SigmaSampleSize,
	}, e.newSolver(rng), rng)

	result, err := sc.Fit(ctx, points, k)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Requested:      core.AlgorithmSpectral,
		Algorithm:      core.AlgorithmSpectral,
		Assignments:    result.Assignments,
		Centroids:      result.Centroids,
		Iterations:     result.Iterations,
		InertiaHistory: result.InertiaHistory,
	}, nil
}

func (e *Engine) newSolver(rng *rand.Rand) EigenSolver {
	if e.config.EigenSolver == SolverSymmetric {
		return NewSymmetricSolver()
	}
	return NewPowerIterationSolver(e.config.PowerIterations, rng)
}
