package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"audiencelens/internal/clustering"
	"audiencelens/internal/config"
	"audiencelens/internal/core"
	"audiencelens/internal/insights"
)

func engagement(v float64) *float64 { return &v }

// ninePosts returns three well-separated audiences of three posts each
func ninePosts() []core.Post {
	sentiments := []float64{0.8, 0.9, 0.85, -0.7, -0.8, -0.75, 0.0, 0.05, -0.05}
	engagements := []float64{90, 95, 88, 85, 80, 82, 10, 12, 8}

	posts := make([]core.Post, len(sentiments))
	for i := range sentiments {
		posts[i] = core.Post{
			ID:         string(rune('a' + i)),
			Sentiment:  sentiments[i],
			Engagement: engagement(engagements[i]),
		}
	}
	return posts
}

func nineRequest(alg core.Algorithm) core.ClusterRequest {
	return core.ClusterRequest{
		Query:         "acme",
		Platform:      "x",
		Algorithm:     alg,
		NumClusters:   3,
		FeatureGroups: []core.FeatureGroup{core.FeatureSentiment, core.FeatureEngagement},
		Seed:          42,
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	result, err := NewAnalyzer(DefaultOptions()).Analyze(context.Background(), nineRequest(core.AlgorithmKMeans), ninePosts())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Degraded {
		t.Errorf("Expected non-degraded result, got reason %q", result.DegradedReason)
	}
	if result.TotalPoints != 9 || result.NumClusters != 3 || result.RequestedClusters != 3 {
		t.Errorf("Unexpected counts: total=%d clusters=%d requested=%d",
			result.TotalPoints, result.NumClusters, result.RequestedClusters)
	}
	if result.ID == "" {
		t.Error("Expected result id")
	}
	if result.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", result.Seed)
	}

	archetypes := make(map[int]string)
	for _, c := range result.Insights.Clusters {
		archetypes[c.ClusterID] = c.Archetype
	}

	type expectation struct {
		sentiment, engagement float64
		archetype             string
	}
	want := map[string]expectation{
		insights.ArchetypeBrandChampions:   {0.85, 91, insights.ArchetypeBrandChampions},
		insights.ArchetypeVocalCritics:     {-0.75, 82.333, insights.ArchetypeVocalCritics},
		insights.ArchetypePassiveObservers: {0, 10, insights.ArchetypePassiveObservers},
	}

	for _, s := range result.ClusterSummaries {
		if s.Size != 3 {
			t.Errorf("Cluster %d has size %d, expected 3", s.ID, s.Size)
		}
		exp, ok := want[archetypes[s.ID]]
		if !ok {
			t.Errorf("Cluster %d has unexpected archetype %q", s.ID, archetypes[s.ID])
			continue
		}
		if math.Abs(s.AvgSentiment-exp.sentiment) > 0.01 || math.Abs(s.AvgEngagement-exp.engagement) > 0.01 {
			t.Errorf("Cluster %d (%s): sentiment %.3f engagement %.3f, want ≈%.2f/≈%.2f",
				s.ID, exp.archetype, s.AvgSentiment, s.AvgEngagement, exp.sentiment, exp.engagement)
		}
		delete(want, archetypes[s.ID])
	}
	if len(want) != 0 {
		t.Errorf("Archetypes not found: %v", want)
	}

	// Posts of the same audience share a cluster
	for _, group := range [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}} {
		c := result.DataPoints[group[0]].ClusterID
		for _, i := range group[1:] {
			if result.DataPoints[i].ClusterID != c {
				t.Errorf("Post %d not clustered with post %d", i, group[0])
			}
		}
	}

	for _, dp := range result.DataPoints {
		if dp.Confidence <= 0 || dp.Confidence > 1 {
			t.Errorf("Confidence for %s outside (0,1]: %v", dp.PostID, dp.Confidence)
		}
	}

	if result.Metrics.Method != core.MethodSilhouette || result.Metrics.SilhouetteScore <= 0.5 {
		t.Errorf("Expected strong exact silhouette, got %s %.3f", result.Metrics.Method, result.Metrics.SilhouetteScore)
	}
	if result.Metrics.Iterations == 0 {
		t.Error("Expected iteration count to be recorded")
	}
	if len(result.FeatureNames) != 4 {
		t.Errorf("Expected 4 features, got %v", result.FeatureNames)
	}
	if len(result.Trends.Clusters) != 3 || len(result.Trends.KeyFindings) == 0 {
		t.Errorf("Expected trends for 3 clusters with findings, got %+v", result.Trends)
	}
}

func TestAnalyze_SizesSumToTotal(t *testing.T) {
	posts := make([]core.Post, 40)
	for i := range posts {
		posts[i] = core.Post{
			ID:         string(rune('A' + i)),
			Sentiment:  math.Sin(float64(i)),
			Engagement: engagement(float64((i * 37) % 100)),
			Timestamp:  time.Date(2025, 3, 1, i%24, 0, 0, 0, time.UTC),
			Content:    "Is this the best deal? Check https://example.com!",
		}
	}

	for _, alg := range []core.Algorithm{core.AlgorithmKMeans, core.AlgorithmSpectral, core.AlgorithmGaussian} {
		for k := core.MinClusters; k <= 6; k++ {
			req := core.ClusterRequest{
				Algorithm:     alg,
				NumClusters:   k,
				FeatureGroups: core.AllFeatureGroups,
				Seed:          7,
			}
			result, err := NewAnalyzer(DefaultOptions()).Analyze(context.Background(), req, posts)
			if err != nil {
				t.Fatalf("%s k=%d: Analyze failed: %v", alg, k, err)
			}

			total := 0
			percentage := 0.0
			for _, s := range result.ClusterSummaries {
				total += s.Size
				percentage += s.Percentage
			}
			if total != result.TotalPoints {
				t.Errorf("%s k=%d: sizes sum to %d, expected %d", alg, k, total, result.TotalPoints)
			}
			if math.Abs(percentage-100) > 0.05*float64(k) {
				t.Errorf("%s k=%d: percentages sum to %.2f", alg, k, percentage)
			}
			if s := result.Metrics.SilhouetteScore; s < -1 || s > 1 {
				t.Errorf("%s k=%d: silhouette %v outside [-1,1]", alg, k, s)
			}
		}
	}
}

func TestAnalyze_Validation(t *testing.T) {
	three := ninePosts()[:3]

	tests := []struct {
		name  string
		req   core.ClusterRequest
		posts []core.Post
		want  error
	}{
		{"k=1", core.ClusterRequest{NumClusters: 1}, ninePosts(), core.ErrInvalidRequest},
		{"k=11", core.ClusterRequest{NumClusters: 11}, ninePosts(), core.ErrInvalidRequest},
		{"no posts", core.ClusterRequest{NumClusters: 3}, nil, core.ErrInvalidRequest},
		{"unknown algorithm", core.ClusterRequest{NumClusters: 3, Algorithm: "affinity"}, ninePosts(), core.ErrInvalidRequest},
		{"unknown group", core.ClusterRequest{NumClusters: 3, FeatureGroups: []core.FeatureGroup{"mood"}}, ninePosts(), core.ErrInvalidRequest},
		{"k=5 with 3 posts", core.ClusterRequest{NumClusters: 5}, three, core.ErrInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewAnalyzer(DefaultOptions()).Analyze(context.Background(), tt.req, tt.posts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if result != nil {
				t.Errorf("Expected no result on rejection")
			}
		})
	}
}

func TestAnalyze_RejectsNonFiniteSentiment(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		posts := ninePosts()
		posts[0].Sentiment = v

		result, err := NewAnalyzer(DefaultOptions()).Analyze(context.Background(), nineRequest(core.AlgorithmKMeans), posts)
		if !errors.Is(err, core.ErrInvalidRequest) {
			t.Errorf("sentiment %v: expected invalid request, got %v", v, err)
		}
		if result != nil {
			t.Errorf("sentiment %v: expected no result", v)
		}
	}
}

func TestAnalyze_EmptyFeatureGroupsFallBack(t *testing.T) {
	req := nineRequest(core.AlgorithmKMeans)
	req.FeatureGroups = []core.FeatureGroup{}

	result, err := NewAnalyzer(DefaultOptions()).Analyze(context.Background(), req, ninePosts())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !result.FeatureFallback {
		t.Error("Expected feature fallback for an empty selection")
	}
	if len(result.FeatureNames) != 2 || result.FeatureNames[0] != "sentiment" || result.FeatureNames[1] != "engagement" {
		t.Errorf("Expected [sentiment engagement], got %v", result.FeatureNames)
	}
	if _, err := json.Marshal(result); err != nil {
		t.Errorf("Result should encode: %v", err)
	}
}

func TestAnalyze_InsufficientDataStatesMinimum(t *testing.T) {
	_, err := NewAnalyzer(DefaultOptions()).Analyze(context.Background(),
		core.ClusterRequest{NumClusters: 5}, ninePosts()[:3])

	var analysisErr *core.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("Expected *core.AnalysisError, got %T", err)
	}
	if analysisErr.MinRequired != 5 {
		t.Errorf("Expected minimum of 5 posts, got %d", analysisErr.MinRequired)
	}
}

func TestAnalyze_DelegatedAlgorithmIsDegraded(t *testing.T) {
	for _, alg := range []core.Algorithm{core.AlgorithmHierarchical, core.AlgorithmDBSCAN, core.AlgorithmGaussian} {
		t.Run(string(alg), func(t *testing.T) {
			result, err := NewAnalyzer(DefaultOptions()).Analyze(context.Background(), nineRequest(alg), ninePosts())
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if !result.Degraded || result.DegradedReason == "" {
				t.Errorf("Expected degraded result with a reason")
			}
			if result.RequestedAlgorithm != alg || result.ActualAlgorithm != core.AlgorithmKMeans {
				t.Errorf("Expected %s→kmeans, got %s→%s", alg, result.RequestedAlgorithm, result.ActualAlgorithm)
			}
			if result.Degradation == nil || result.Degradation.Code != core.KindNotFullyImplemented {
				t.Errorf("Expected %s degradation, got %+v", core.KindNotFullyImplemented, result.Degradation)
			}
		})
	}
}

func TestAnalyze_SpectralFallbackOnIdenticalPoints(t *testing.T) {
	posts := make([]core.Post, 6)
	for i := range posts {
		posts[i] = core.Post{ID: string(rune('a' + i)), Sentiment: 0.3, Engagement: engagement(50)}
	}
	req := core.ClusterRequest{Algorithm: core.AlgorithmSpectral, NumClusters: 2, Seed: 1}

	result, err := NewAnalyzer(DefaultOptions()).Analyze(context.Background(), req, posts)
	if err != nil {
		t.Fatalf("Expected fallback instead of error, got %v", err)
	}
	if !result.Degraded || result.ActualAlgorithm != core.AlgorithmKMeans {
		t.Errorf("Expected degraded kmeans result, got degraded=%v actual=%s", result.Degraded, result.ActualAlgorithm)
	}
	if result.Degradation.Code != core.KindNumericalInstability {
		t.Errorf("Expected %s, got %s", core.KindNumericalInstability, result.Degradation.Code)
	}
}

func TestAnalyze_SpectralEndToEnd(t *testing.T) {
	options := DefaultOptions()
	options.Engine.EigenSolver = clustering.SolverSymmetric

	result, err := NewAnalyzer(options).Analyze(context.Background(), nineRequest(core.AlgorithmSpectral), ninePosts())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Degraded || result.ActualAlgorithm != core.AlgorithmSpectral {
		t.Fatalf("Expected spectral result, got degraded=%v actual=%s", result.Degraded, result.ActualAlgorithm)
	}

	sizes := make([]int, 0, len(result.ClusterSummaries))
	for _, s := range result.ClusterSummaries {
		sizes = append(sizes, s.Size)
	}
	sort.Ints(sizes)
	if len(sizes) != 3 || sizes[0] != 3 || sizes[2] != 3 {
		t.Errorf("Expected three clusters of 3, got %v", sizes)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	analyzer := NewAnalyzer(DefaultOptions())
	req := nineRequest(core.AlgorithmKMeans)
	req.FeatureGroups = core.AllFeatureGroups

	first, err := analyzer.Analyze(context.Background(), req, ninePosts())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := analyzer.Analyze(context.Background(), req, ninePosts())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	for i := range first.DataPoints {
		if first.DataPoints[i].ClusterID != second.DataPoints[i].ClusterID {
			t.Fatalf("Post %d assigned differently across identical runs", i)
		}
	}
	if first.ID == second.ID {
		t.Error("Expected a fresh id per result")
	}
}

func TestAnalyze_DefaultsApplied(t *testing.T) {
	options := DefaultOptions()
	options.Seed = 99

	result, err := NewAnalyzer(options).Analyze(context.Background(), core.ClusterRequest{NumClusters: 3}, ninePosts())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.RequestedAlgorithm != core.AlgorithmKMeans {
		t.Errorf("Expected default algorithm kmeans, got %s", result.RequestedAlgorithm)
	}
	if result.Seed != 99 {
		t.Errorf("Expected configured seed 99, got %d", result.Seed)
	}
	if len(result.FeatureNames) != 4 || result.FeatureFallback {
		t.Errorf("Expected default sentiment+engagement features, got %v", result.FeatureNames)
	}
}

func TestAnalyze_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewAnalyzer(DefaultOptions()).Analyze(ctx, nineRequest(core.AlgorithmKMeans), ninePosts())
	if !errors.Is(err, core.ErrCanceled) {
		t.Fatalf("Expected ErrCanceled, got %v", err)
	}
	if result != nil {
		t.Error("Expected partial result to be discarded")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Clustering: config.Clustering{
			DefaultAlgorithm:     "spectral",
			MaxIterations:        40,
			Seed:                 5,
			SilhouetteExactLimit: 500,
			ProxyReferenceScale:  3,
			EigenSolver:          clustering.SolverSymmetric,
			PowerIterations:      80,
			SigmaSampleSize:      25,
			Timeout:              "5s",
		},
		Features: config.Features{
			DefaultGroups: []string{"content", "", "keywords"},
			BrandTerms:    []string{"acme"},
		},
	}

	options := OptionsFromConfig(cfg)

	if options.DefaultAlgorithm != core.AlgorithmSpectral || options.Seed != 5 {
		t.Errorf("Unexpected algorithm/seed: %s/%d", options.DefaultAlgorithm, options.Seed)
	}
	if options.Engine.KMeans.MaxIterations != 40 || options.Engine.EigenSolver != clustering.SolverSymmetric ||
		options.Engine.PowerIterations != 80 || options.Engine.SigmaSampleSize != 25 {
		t.Errorf("Engine config not mapped: %+v", options.Engine)
	}
	if options.Quality.ExactLimit != 500 || options.Quality.ReferenceScale != 3 {
		t.Errorf("Quality thresholds not mapped: %+v", options.Quality)
	}
	if options.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", options.Timeout)
	}
	if len(options.DefaultGroups) != 2 || options.DefaultGroups[0] != core.FeatureContent {
		t.Errorf("Expected content+keywords groups, got %v", options.DefaultGroups)
	}
	if len(options.BrandTerms) != 1 {
		t.Errorf("Expected brand terms to be carried, got %v", options.BrandTerms)
	}
}
