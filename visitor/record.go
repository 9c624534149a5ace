// Package visitor manages the per-visitor record of experiment assignments.
//
// A record maps visitor keys to values:
//
//	<experiment>                       assigned alternative
//	<experiment>:<version>             assigned alternative, re-versioned experiment
//	<experiment>[:<version>]:finished  completion flag
//
// Stale keys are pruned lazily when a record is touched; there is no
// background sweep because visitors cannot be enumerated.
package visitor

import (
	"context"
	"fmt"

	"github.com/imlitech/split/internal/logging"
	"github.com/imlitech/split/internal/metrics"
	"github.com/imlitech/split/types"
)

// Cleanup reasons reported to metrics.
const (
	ReasonOldVersion = "old_version"
	ReasonMissing    = "missing"
	ReasonWinner     = "winner"
	ReasonNotStarted = "not_started"
)

// FinishedValue is stored under a completion flag key.
const FinishedValue = "true"

// Option configures a Record.
type Option func(*Record)

// WithMetrics sets the collector receiving cleanup counts.
func WithMetrics(m types.MetricsCollector) Option {
	return func(r *Record) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l types.Logger) Option {
	return func(r *Record) {
		if l != nil {
			r.logger = l
		}
	}
}

// Record is one visitor's view over their experiment assignments.
//
// A Record is request scoped and not safe for concurrent use.
type Record struct {
	id        string
	store     types.VisitorStore
	finder    types.ExperimentFinder
	metrics   types.MetricsCollector
	logger    types.Logger
	cleanedUp bool
}

// NewRecord creates a record.
//
// Parameters:
//   - id: Visitor identity (may be empty with session persistence)
//   - store: Per-visitor storage
//   - finder: Experiment lookup used by CleanupOldExperiments
//   - opts: Optional metrics and logger
func NewRecord(id string, store types.VisitorStore, finder types.ExperimentFinder, opts ...Option) *Record {
	r := &Record{
		id:      id,
		store:   store,
		finder:  finder,
		metrics: metrics.NewNop(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ID returns the visitor identity.
func (r *Record) ID() string {
	return r.id
}

// Get returns the value stored under key.
func (r *Record) Get(ctx context.Context, key string) (string, bool, error) {
	return r.store.Get(ctx, key)
}

// Set stores value under key.
func (r *Record) Set(ctx context.Context, key, value string) error {
	return r.store.Set(ctx, key, value)
}

// Delete removes key.
func (r *Record) Delete(ctx context.Context, key string) error {
	return r.store.Delete(ctx, key)
}

// Keys lists the visitor's keys.
func (r *Record) Keys(ctx context.Context) ([]string, error) {
	return r.store.Keys(ctx)
}

// Entries returns the whole record.
func (r *Record) Entries(ctx context.Context) (map[string]string, error) {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string, len(keys))
	for _, key := range keys {
		v, ok, err := r.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			entries[key] = v
		}
	}

	return entries, nil
}

// Alternative returns the alternative assigned for exp's current version.
func (r *Record) Alternative(ctx context.Context, exp *types.Experiment) (string, bool, error) {
	return r.store.Get(ctx, exp.Key())
}

// IsFinished reports whether the completion flag of exp's current version is set.
func (r *Record) IsFinished(ctx context.Context, exp *types.Experiment) (bool, error) {
	_, ok, err := r.store.Get(ctx, exp.FinishedKey())

	return ok, err
}

// MarkFinished sets the completion flag of exp's current version.
func (r *Record) MarkFinished(ctx context.Context, exp *types.Experiment) error {
	return r.store.Set(ctx, exp.FinishedKey(), FinishedValue)
}

// Reset deletes the assignment of exp's current version.
func (r *Record) Reset(ctx context.Context, exp *types.Experiment) error {
	return r.store.Delete(ctx, exp.Key())
}

// CleanupOldVersions removes every versioned key of exp whose version is not
// the current one, together with its completion flag. Unversioned keys are
// kept.
//
// Keys of other experiments are untouched, including experiments whose name
// merely shares a prefix with exp.Name.
func (r *Record) CleanupOldVersions(ctx context.Context, exp *types.Experiment) error {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("cleanup old versions of %s: %w", exp.Name, err)
	}

	removed := 0
	for _, raw := range keys {
		k := ParseKey(raw)
		if k.Base != exp.Name || !k.HasVersion || k.Version == exp.Version {
			continue
		}
		if err := r.store.Delete(ctx, raw); err != nil {
			return fmt.Errorf("cleanup old versions of %s: %w", exp.Name, err)
		}
		removed++
	}

	if removed > 0 {
		r.metrics.RecordCleanup(ReasonOldVersion, removed)
		r.logger.Debug("removed old experiment versions", "visitor", r.id, "experiment", exp.Name, "removed", removed)
	}

	return nil
}

// CleanupOldExperiments removes every key whose experiment no longer exists,
// already has a winner, or has not started. It runs at most once per Record.
func (r *Record) CleanupOldExperiments(ctx context.Context) error {
	if r.cleanedUp {
		return nil
	}

	keys, err := r.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("cleanup old experiments: %w", err)
	}

	reasons := make(map[string]string)
	removed := make(map[string]int)
	for _, raw := range keys {
		base := ParseKey(raw).Base

		reason, seen := reasons[base]
		if !seen {
			if reason, err = r.staleReason(ctx, base); err != nil {
				return err
			}
			reasons[base] = reason
		}
		if reason == "" {
			continue
		}

		if err := r.store.Delete(ctx, raw); err != nil {
			return fmt.Errorf("cleanup old experiments: %w", err)
		}
		removed[reason]++
	}

	for reason, n := range removed {
		r.metrics.RecordCleanup(reason, n)
		r.logger.Debug("removed stale experiment keys", "visitor", r.id, "reason", reason, "removed", n)
	}
	r.cleanedUp = true

	return nil
}

// staleReason returns why keys of experiment base must go, or "" to keep them.
func (r *Record) staleReason(ctx context.Context, base string) (string, error) {
	exp, found, err := r.finder.Find(ctx, base)
	if err != nil {
		return "", fmt.Errorf("cleanup old experiments: find %s: %w", base, err)
	}

	switch {
	case !found:
		return ReasonMissing, nil
	case exp.HasWinner():
		return ReasonWinner, nil
	case !exp.Started():
		return ReasonNotStarted, nil
	default:
		return "", nil
	}
}

// ActiveExperiments returns the current assignments of running experiments,
// keyed by experiment name. Finished, stale and winner-decided experiments
// are left out.
func (r *Record) ActiveExperiments(ctx context.Context) (map[string]string, error) {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	active := make(map[string]string)
	for _, raw := range keys {
		k := ParseKey(raw)
		if k.Finished {
			continue
		}

		exp, found, err := r.finder.Find(ctx, k.Base)
		if err != nil {
			return nil, fmt.Errorf("active experiments: find %s: %w", k.Base, err)
		}
		if !found || exp.HasWinner() || !k.SameVersion(exp) {
			continue
		}

		alt, ok, err := r.store.Get(ctx, raw)
		if err != nil {
			return nil, err
		}
		if ok {
			active[k.Base] = alt
		}
	}

	return active, nil
}
