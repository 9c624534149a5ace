package types

import "context"

// Store is the shared key-value store backing experiments, goals, counters and
// (optionally) visitor records.
//
// Every method is atomic for the single key it touches; no operation spans
// keys. Implementations wrap transport failures with ErrStoreUnavailable and
// carry their own bounded operation timeout.
type Store interface {
	// Get returns the string value of key. found is false when the key does not exist.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores a string value, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// IncrBy atomically adds delta to the integer stored at key (missing = 0)
	// and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// LPush prepends values one at a time, so the last value ends up first.
	// Called with no values it creates an empty list if key is missing.
	LPush(ctx context.Context, key string, values ...string) error

	// LRange returns the whole list stored at key (empty when missing).
	LRange(ctx context.Context, key string) ([]string, error)

	// Keys returns every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// VisitorStore is a per-visitor key-value view over experiment assignments.
type VisitorStore interface {
	// Get returns the value stored under key for this visitor.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for this visitor.
	Set(ctx context.Context, key, value string) error

	// Delete removes key from this visitor's record.
	Delete(ctx context.Context, key string) error

	// Keys lists every key held by this visitor.
	Keys(ctx context.Context) ([]string, error)
}

// ExperimentFinder looks experiments up by name.
type ExperimentFinder interface {
	// Find returns the stored experiment. found is false when it does not exist.
	Find(ctx context.Context, name string) (exp *Experiment, found bool, err error)
}

// DefinitionSource serves static experiment definitions.
type DefinitionSource interface {
	// Lookup returns the definition of name.
	Lookup(name string) (ExperimentDefinition, bool)

	// Names lists every defined experiment.
	Names() []string
}
