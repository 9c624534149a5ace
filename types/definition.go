package types

// ExperimentDefinition is the static (configuration) form of an experiment.
//
// Alternatives and Goals are loosely typed because they come straight from
// YAML: alternatives may be plain names or {name, percent} mappings, goals
// may be nested sequences that are flattened on load.
type ExperimentDefinition struct {
	// Alternatives lists the variants; the first one is the control.
	Alternatives []any `yaml:"alternatives" json:"alternatives"`

	// Goals lists the tracked conversion goals.
	Goals any `yaml:"goals" json:"goals"`

	// Metric groups this experiment under a composite metric name.
	Metric string `yaml:"metric" json:"metric"`

	// Resettable controls whether completion resets the visitor (default: true).
	Resettable *bool `yaml:"resettable" json:"resettable"`

	// Algorithm selects the alternative selector by name (default: Config.DefaultAlgorithm).
	Algorithm string `yaml:"algorithm" json:"algorithm"`

	// Metadata is returned alongside the chosen alternative, keyed by alternative name.
	Metadata map[string]map[string]any `yaml:"metadata" json:"metadata"`
}

// IsResettable resolves the Resettable default.
func (d ExperimentDefinition) IsResettable() bool {
	return d.Resettable == nil || *d.Resettable
}
