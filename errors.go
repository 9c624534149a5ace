package split

import "github.com/imlitech/split/types"

// Sentinel errors re-exported from the types package.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrStoreRequired is returned when NewManager receives a nil store.
	ErrStoreRequired = types.ErrStoreRequired

	// ErrVisitorContextRequired is returned when an entry point receives a nil visitor context.
	ErrVisitorContextRequired = types.ErrVisitorContextRequired

	// ErrInvalidDescriptor is returned for a malformed metric descriptor or alternative.
	ErrInvalidDescriptor = types.ErrInvalidDescriptor

	// ErrStoreUnavailable is returned when the store cannot be reached and failover is off.
	ErrStoreUnavailable = types.ErrStoreUnavailable

	// ErrValidation is returned when a goals value is not a sequence of strings.
	ErrValidation = types.ErrValidation

	// ErrExperimentNotFound is returned when an experiment has neither
	// alternatives nor a static definition.
	ErrExperimentNotFound = types.ErrExperimentNotFound

	// ErrInvalidExperiment is returned for an unusable experiment definition.
	ErrInvalidExperiment = types.ErrInvalidExperiment

	// ErrUnknownAlternative is returned when a winner names a missing alternative.
	ErrUnknownAlternative = types.ErrUnknownAlternative
)

// IsStoreUnavailable reports whether err means the store is unreachable.
func IsStoreUnavailable(err error) bool {
	return types.IsStoreUnavailable(err)
}
