package analysis

import (
	"audiencelens/internal/clustering"
	"audiencelens/internal/config"
	"audiencelens/internal/core"
	"audiencelens/internal/quality"
)

// OptionsFromConfig maps the clustering and features configuration sections onto Options
func OptionsFromConfig(cfg *config.Config) Options {
	options := DefaultOptions()

	c := cfg.Clustering
	options.Engine = clustering.EngineConfig{
		KMeans:          clustering.KMeansConfig{MaxIterations: c.MaxIterations},
		SigmaSampleSize: c.SigmaSampleSize,
		EigenSolver:     c.EigenSolver,
		PowerIterations: c.PowerIterations,
	}
	options.Quality = quality.Thresholds{
		ExactLimit:         c.SilhouetteExactLimit,
		ReferenceScale:     c.ProxyReferenceScale,
		MinSilhouetteScore: quality.DefaultThresholds().MinSilhouetteScore,
	}
	if c.DefaultAlgorithm != "" {
		options.DefaultAlgorithm = core.Algorithm(c.DefaultAlgorithm)
	}
	options.Seed = c.Seed
	options.Timeout = c.ClusteringTimeout()

	if groups := ParseFeatureGroups(cfg.Features.DefaultGroups); len(groups) > 0 {
		options.DefaultGroups = groups
	}
	options.BrandTerms = cfg.Features.BrandTerms

	return options
}

// ParseFeatureGroups converts names to feature groups, keeping unknown names
// so that validation can report them. A nil list stays nil.
func ParseFeatureGroups(names []string) []core.FeatureGroup {
	if names == nil {
		return nil
	}
	groups := make([]core.FeatureGroup, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		groups = append(groups, core.FeatureGroup(name))
	}
	return groups
}
