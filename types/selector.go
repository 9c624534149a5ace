package types

// AlternativeSelector picks an alternative for a visitor entering an experiment.
//
// Selectors implement different algorithms:
//   - WeightedRandom: independent draw per enrollment
//   - WeightedHash: deterministic bucketing by visitor ID
//   - Custom: User-defined algorithms
//
// Implementations must be safe for concurrent use and free of side effects;
// persistence of the choice belongs to the trial.
type AlternativeSelector interface {
	// Select chooses one of exp.Alternatives.
	//
	// Parameters:
	//   - exp: Experiment to choose from
	//   - visitorID: Visitor identity (may be empty for session persistence)
	//
	// Returns:
	//   - Alternative: Chosen alternative
	//   - error: ErrNoAlternatives when exp has none
	Select(exp *Experiment, visitorID string) (Alternative, error)
}
