package types

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Sentinel errors for the split library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// Store adapters wrap transport failures with ErrStoreUnavailable so the
// orchestrators can apply the failover policy without knowing the backend.
//
// Error Naming Convention:
//   - Use descriptive names with Err prefix
//   - Group by component (Manager, Store, Catalog, Goals)
//   - Wrap external errors with fmt.Errorf("%s: %w", msg, err)

// Manager errors - Public API errors returned by Manager component.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStoreRequired is returned when the shared store is nil.
	ErrStoreRequired = errors.New("store is required")

	// ErrVisitorContextRequired is returned when an entry point receives a nil visitor context.
	ErrVisitorContextRequired = errors.New("visitor context is required")

	// ErrInvalidDescriptor is returned when a collaborator passes a malformed
	// metric descriptor or alternative (caller error).
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// Store errors - returned by Store implementations.
var (
	// ErrStoreUnavailable indicates the backing store could not be reached
	// (connection refused, transport failure, name resolution failure).
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrWrongType is returned when a list operation targets a string key or vice versa.
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

	// ErrNotInteger is returned when an increment targets a non-integer value.
	ErrNotInteger = errors.New("value is not an integer")

	// ErrInvalidKey is returned when a key cannot be represented by the store.
	ErrInvalidKey = errors.New("invalid key")
)

// Catalog errors - returned by the experiment catalog.
var (
	// ErrExperimentNotFound is returned when an experiment has no stored or static definition.
	ErrExperimentNotFound = errors.New("experiment not found")

	// ErrInvalidExperiment is returned when an experiment definition is unusable
	// (no alternatives, duplicate alternative names, empty name).
	ErrInvalidExperiment = errors.New("invalid experiment")

	// ErrUnknownAlternative is returned when a winner names an alternative the experiment lacks.
	ErrUnknownAlternative = errors.New("unknown alternative")
)

// Goals errors.
var (
	// ErrValidation is returned when a goals value is set but is not a sequence of strings.
	ErrValidation = errors.New("goals must be a sequence of strings")
)

// Selection errors.
var (
	// ErrNoAlternatives is returned by selectors when an experiment has no alternatives.
	ErrNoAlternatives = errors.New("experiment has no alternatives")
)

// IsStoreUnavailable reports whether err means the backing store is unreachable.
//
// Recognised causes:
//   - ErrStoreUnavailable (wrapped by store adapters)
//   - *net.OpError and *net.DNSError (transport and name resolution failures)
//   - syscall.ECONNREFUSED
//   - "connection refused" / "no such host" messages from drivers that flatten errors
//
// Parameters:
//   - err: The error to check
//
// Returns:
//   - bool: true if the failover policy applies to err
func IsStoreUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host")
}
