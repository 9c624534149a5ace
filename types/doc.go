// Package types provides core type definitions and interfaces for the split library.
//
// This package contains shared types that are used across multiple packages in the
// library. By keeping these types in a separate package, we avoid import cycles
// between the root split package and its collaborators (catalog, trial, visitor).
//
// Key types:
//   - Experiment: Named set of alternatives with persisted state
//   - Alternative: One variant a visitor may be assigned to
//   - VisitorContext: Explicit per-request visitor state
//   - Store: Shared key-value store with atomic single-key primitives
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
