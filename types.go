package split

import "github.com/imlitech/split/types"

// Re-export types from the types package.
//
// Internal packages depend on types rather than on the root package, which
// keeps the import graph acyclic while users still write split.Experiment,
// split.Logger and so on.
type (
	Experiment           = types.Experiment
	Alternative          = types.Alternative
	MetricDescriptor     = types.MetricDescriptor
	ExperimentDefinition = types.ExperimentDefinition
	VisitorContext       = types.VisitorContext
	Request              = types.Request
	TrialEvent           = types.TrialEvent
)

// Re-export interfaces from the types package for convenience.
type (
	Store               = types.Store
	VisitorStore        = types.VisitorStore
	AlternativeSelector = types.AlternativeSelector
	DefinitionSource    = types.DefinitionSource
	MetricsCollector    = types.MetricsCollector
	Logger              = types.Logger
	Hooks               = types.Hooks
)

// Named builds a bare metric descriptor.
func Named(name string) MetricDescriptor {
	return types.Named(name)
}

// WithGoals builds a metric descriptor carrying goals.
func WithGoals(name string, goals ...string) MetricDescriptor {
	return types.WithGoals(name, goals...)
}

// ParseAlternatives normalizes loosely typed alternative descriptors.
func ParseAlternatives(values []any) ([]Alternative, error) {
	return types.ParseAlternatives(values)
}
