// Package analysis validates clustering requests and assembles results from the
// feature, clustering, summary, quality, insight and trend components
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"audiencelens/internal/clustering"
	"audiencelens/internal/core"
	"audiencelens/internal/features"
	"audiencelens/internal/insights"
	"audiencelens/internal/logger"
	"audiencelens/internal/quality"
	"audiencelens/internal/summary"
	"audiencelens/internal/trends"
)

// Options configures an Analyzer
type Options struct {
	Engine           clustering.EngineConfig
	Quality          quality.Thresholds
	DefaultAlgorithm core.Algorithm
	DefaultGroups    []core.FeatureGroup
	BrandTerms       []string
	Seed             int64         // Used when a request carries no seed; 0 draws from the clock
	Timeout          time.Duration // Upper bound per run; 0 leaves only the caller's deadline
}

// DefaultOptions returns the standard analyzer options
func DefaultOptions() Options {
	return Options{
		Engine:           clustering.DefaultEngineConfig(),
		Quality:          quality.DefaultThresholds(),
		DefaultAlgorithm: core.AlgorithmKMeans,
		DefaultGroups:    []core.FeatureGroup{core.FeatureSentiment, core.FeatureEngagement},
		Timeout:          30 * time.Second,
	}
}

// Analyzer turns a request and a post snapshot into a ClusteringResult.
// It holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	options   Options
	features  *features.Builder
	engine    *clustering.Engine
	metrics   *quality.MetricsEvaluator
	summaries *summary.Generator
	insights  *insights.Generator
	trends    *trends.TrendAnalyzer
	log       *slog.Logger
	now       func() time.Time
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(options Options) *Analyzer {
	if options.DefaultAlgorithm == "" {
		options.DefaultAlgorithm = core.AlgorithmKMeans
	}
	return &Analyzer{
		options:   options,
		features:  features.NewBuilder(options.BrandTerms...),
		engine:    clustering.NewEngine(options.Engine),
		metrics:   quality.NewMetricsEvaluator(options.Quality),
		summaries: summary.NewGenerator(),
		insights:  insights.NewGenerator(),
		trends:    trends.NewTrendAnalyzer(),
		log:       logger.Get(),
		now:       time.Now,
	}
}

// Validate rejects malformed requests before any computation
func (a *Analyzer) Validate(req core.ClusterRequest, posts []core.Post) error {
	k := req.NumClusters
	numPosts := len(posts)
	if k < core.MinClusters || k > core.MaxClusters {
		return core.NewError(core.KindInvalidRequest,
			"numClusters must be between %d and %d, got %d", core.MinClusters, core.MaxClusters, k)
	}
	if numPosts == 0 {
		return core.NewError(core.KindInvalidRequest, "no posts to analyze")
	}
	if req.Algorithm != "" && !req.Algorithm.Valid() {
		return core.NewError(core.KindInvalidRequest, "unknown algorithm %q", req.Algorithm)
	}
	for _, g := range req.FeatureGroups {
		if !g.Valid() {
			return core.NewError(core.KindInvalidRequest, "unknown feature group %q", g)
		}
	}
	for _, post := range posts {
		if math.IsNaN(post.Sentiment) || math.IsInf(post.Sentiment, 0) {
			return core.NewError(core.KindInvalidRequest, "post %q has no usable sentiment score", post.ID)
		}
	}
	if numPosts < k {
		return core.InsufficientData(numPosts, k)
	}
	return nil
}

// Analyze clusters posts according to req. The computation runs on its own goroutine;
// when ctx or the configured timeout fires first, the partial result is discarded and
// a canceled error is returned.
func (a *Analyzer) Analyze(ctx context.Context, req core.ClusterRequest, posts []core.Post) (*core.ClusteringResult, error) {
	if err := a.Validate(req, posts); err != nil {
		return nil, err
	}

	if req.Algorithm == "" {
		req.Algorithm = a.options.DefaultAlgorithm
	}
	// An omitted selection takes the configured groups; an explicit empty one falls back
	if req.FeatureGroups == nil {
		req.FeatureGroups = a.options.DefaultGroups
	}
	seed := a.resolveSeed(req.Seed)

	if a.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.options.Timeout)
		defer cancel()
	}

	type outcome struct {
		result *core.ClusteringResult
		err    error
	}
	done := make(chan outcome, 1)

	start := a.now()
	go func() {
		result, err := a.run(ctx, req, posts, seed)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		a.log.Warn("Clustering canceled", "algorithm", string(req.Algorithm), "posts", len(posts), "error", ctx.Err().Error())
		return nil, canceled(ctx.Err())
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.Canceled) || errors.Is(out.err, context.DeadlineExceeded) {
				return nil, canceled(out.err)
			}
			return nil, out.err
		}
		a.log.Info("Clustering completed",
			"id", out.result.ID,
			"requested", string(out.result.RequestedAlgorithm),
			"actual", string(out.result.ActualAlgorithm),
			"posts", out.result.TotalPoints,
			"clusters", out.result.NumClusters,
			"degraded", out.result.Degraded,
			"duration", a.now().Sub(start).String(),
		)
		return out.result, nil
	}
}

// run performs the full computation for one validated request
func (a *Analyzer) run(ctx context.Context, req core.ClusterRequest, posts []core.Post, seed int64) (*core.ClusteringResult, error) {
	set, err := a.features.Build(posts, req.FeatureGroups)
	if err != nil {
		return nil, err
	}
	if set.Fallback {
		a.log.Warn("Selected feature groups produced no features, using sentiment and engagement")
	}

	k := req.NumClusters
	out, err := a.engine.Cluster(ctx, set.Vectors, k, req.Algorithm, seed)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dataPoints := make([]core.DataPoint, len(posts))
	for i, post := range posts {
		c := out.Assignments[i]
		dataPoints[i] = core.DataPoint{
			PostID:     post.ID,
			ClusterID:  c,
			Confidence: 1 / (1 + clustering.EuclideanDistance(set.Vectors[i], out.Centroids[c])),
		}
	}

	summaries := a.summaries.Generate(posts, out.Assignments, k)
	nonEmpty := 0
	for _, s := range summaries {
		if s.Size > 0 {
			nonEmpty++
		}
	}

	metrics := a.metrics.Evaluate(set.Vectors, out.Assignments, out.Centroids)
	metrics.Iterations = out.Iterations

	result := &core.ClusteringResult{
		ID:                 uuid.New().String(),
		Query:              req.Query,
		Platform:           req.Platform,
		RequestedAlgorithm: out.Requested,
		ActualAlgorithm:    out.Algorithm,
		TotalPoints:        len(posts),
		RequestedClusters:  k,
		NumClusters:        nonEmpty,
		Seed:               seed,
		FeatureNames:       set.Names,
		FeatureFallback:    set.Fallback,
		DataPoints:         dataPoints,
		Centroids:          out.Centroids,
		ClusterSummaries:   summaries,
		Insights:           a.insights.Generate(posts, summaries),
		Trends:             a.trends.Analyze(posts, out.Assignments, summaries),
		Metrics:            metrics,
		Degraded:           out.Degraded(),
		Degradation:        out.Degradation,
		GeneratedAt:        a.now().UTC(),
	}
	if out.Degradation != nil {
		result.DegradedReason = out.Degradation.Message
	}

	return result, nil
}

// resolveSeed prefers the request seed, then the configured seed, then the clock
func (a *Analyzer) resolveSeed(requested int64) int64 {
	if requested != 0 {
		return requested
	}
	if a.options.Seed != 0 {
		return a.options.Seed
	}
	return a.now().UnixNano()
}

func canceled(cause error) error {
	return &core.AnalysisError{
		Kind:    core.KindCanceled,
		Message: fmt.Sprintf("analysis did not finish: %v", cause),
		Err:     cause,
	}
}
