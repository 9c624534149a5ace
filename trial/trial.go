// Package trial runs one visitor through one experiment.
//
// A Trial decides which alternative a visitor sees (Choose) and records
// conversions (Complete). It is request scoped and never persisted; the
// durable effects are the visitor record entry and the per-alternative
// counters in the shared store.
package trial

import (
	"context"
	"fmt"

	"github.com/imlitech/split/internal/hooks"
	"github.com/imlitech/split/internal/logging"
	"github.com/imlitech/split/internal/metrics"
	"github.com/imlitech/split/strategy"
	"github.com/imlitech/split/types"
	"github.com/imlitech/split/visitor"
)

// Option configures a Trial.
type Option func(*Trial)

// WithOverride forces an alternative. Names that are not alternatives of the
// experiment are ignored.
func WithOverride(name string) Option {
	return func(t *Trial) {
		t.override = name
	}
}

// WithExcluded marks the visitor as excluded: they see the control and
// nothing is stored.
func WithExcluded(excluded bool) Option {
	return func(t *Trial) {
		t.excluded = excluded
	}
}

// WithDisabled applies the per-request kill switch.
func WithDisabled(disabled bool) Option {
	return func(t *Trial) {
		t.disabled = disabled
	}
}

// WithStoreOverride persists forced and kill-switch choices.
func WithStoreOverride(store bool) Option {
	return func(t *Trial) {
		t.storeOverride = store
	}
}

// WithAlternative presets the chosen alternative, as when completing a trial
// whose assignment was read from the visitor record.
func WithAlternative(name string) Option {
	return func(t *Trial) {
		t.alternative = name
	}
}

// WithSelector sets the alternative selector.
func WithSelector(s types.AlternativeSelector) Option {
	return func(t *Trial) {
		if s != nil {
			t.selector = s
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(t *Trial) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithHooks sets lifecycle hooks. Nil callbacks are no-ops.
func WithHooks(h *types.Hooks) Option {
	return func(t *Trial) {
		t.hooks = hooks.Merge(h)
	}
}

// WithLogger sets the logger.
func WithLogger(l types.Logger) Option {
	return func(t *Trial) {
		if l != nil {
			t.logger = l
		}
	}
}

// Trial is one visitor's pass through one experiment.
type Trial struct {
	record *visitor.Record
	exp    *types.Experiment
	store  types.Store

	override      string
	excluded      bool
	disabled      bool
	storeOverride bool

	selector types.AlternativeSelector
	metrics  types.MetricsCollector
	hooks    types.Hooks
	logger   types.Logger

	alternative string
	chosen      bool
}

// New creates a trial.
//
// Parameters:
//   - record: Visitor record
//   - exp: Experiment, as saved by the catalog
//   - store: Shared store holding the counters
//   - opts: Override, exclusion, kill switch and collaborators
//
// Returns:
//   - *Trial: Trial ready to Choose or Complete
func New(record *visitor.Record, exp *types.Experiment, store types.Store, opts ...Option) *Trial {
	t := &Trial{
		record:   record,
		exp:      exp,
		store:    store,
		selector: strategy.NewWeightedRandom(),
		metrics:  metrics.NewNop(),
		hooks:    hooks.NewNop(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Experiment returns the trial's experiment.
func (t *Trial) Experiment() *types.Experiment {
	return t.exp
}

// Alternative returns the chosen alternative ("" before Choose).
func (t *Trial) Alternative() string {
	return t.alternative
}

// Metadata returns the metadata attached to the chosen alternative.
func (t *Trial) Metadata() map[string]any {
	if t.alternative == "" || t.exp.Metadata == nil {
		return nil
	}

	return t.exp.Metadata[t.alternative]
}

// Excluded reports whether the visitor is kept out of the experiment, either
// explicitly or because the experiment has not started.
func (t *Trial) Excluded() bool {
	return t.excluded || !t.exp.Started()
}

// Choose picks the visitor's alternative and records it.
//
// Precedence: a valid override, then exclusion (control), then the kill
// switch (control), then the experiment's winner, then the visitor's stored
// assignment, then a fresh selection. A fresh selection increments the
// participation counter. Nothing is stored once the experiment has a winner.
// Repeated calls return the first result.
//
// Parameters:
//   - ctx: Context
//
// Returns:
//   - string: Chosen alternative name
//   - error: Store or selector error
func (t *Trial) Choose(ctx context.Context) (string, error) {
	if t.chosen {
		return t.alternative, nil
	}

	if err := t.record.CleanupOldExperiments(ctx); err != nil {
		return "", err
	}

	stored, hasStored, err := t.record.Alternative(ctx, t.exp)
	if err != nil {
		return "", fmt.Errorf("read assignment of %s: %w", t.exp.Key(), err)
	}

	forced := false
	switch {
	case t.overrideIsAlternative():
		t.alternative = t.override
		forced = true
		if t.shouldStore() && !hasStored {
			if err := t.incrementParticipation(ctx); err != nil {
				return "", err
			}
		}
	case t.Excluded():
		t.alternative = t.exp.Control().Name
	case t.disabled:
		t.alternative = t.exp.Control().Name
		forced = true
	case t.exp.HasWinner():
		t.alternative = t.exp.Winner
	default:
		if err := t.record.CleanupOldVersions(ctx, t.exp); err != nil {
			return "", err
		}
		if hasStored {
			if _, ok := t.exp.Alternative(stored); ok {
				t.alternative = stored
				break
			}
			t.logger.Warn("discarding unknown stored alternative",
				"visitor", t.record.ID(), "experiment", t.exp.Key(), "alternative", stored)
		}

		alt, err := t.selector.Select(t.exp, t.record.ID())
		if err != nil {
			return "", fmt.Errorf("select alternative of %s: %w", t.exp.Key(), err)
		}
		t.alternative = alt.Name
		if err := t.incrementParticipation(ctx); err != nil {
			return "", err
		}
		t.runHook(ctx, "on_trial_choose", t.hooks.OnTrialChoose)
	}

	if !t.Excluded() && !t.exp.HasWinner() && (!forced || t.storeOverride) {
		if err := t.record.Set(ctx, t.exp.Key(), t.alternative); err != nil {
			return "", fmt.Errorf("store assignment of %s: %w", t.exp.Key(), err)
		}
	}
	t.chosen = true

	if !t.disabled {
		t.runHook(ctx, "on_trial", t.hooks.OnTrial)
	}

	return t.alternative, nil
}

// Complete records a conversion for the chosen alternative: one completion
// per goal, or the bare completion counter when goals is empty. It does
// nothing when no alternative has been chosen.
func (t *Trial) Complete(ctx context.Context, goals []string) error {
	if t.alternative == "" {
		return nil
	}

	if len(goals) == 0 {
		if err := t.incrementCompletion(ctx, ""); err != nil {
			return err
		}
	}
	for _, goal := range goals {
		if err := t.incrementCompletion(ctx, goal); err != nil {
			return err
		}
	}

	t.runHookWithGoals(ctx, "on_trial_complete", t.hooks.OnTrialComplete, goals)

	return nil
}

func (t *Trial) overrideIsAlternative() bool {
	if t.override == "" {
		return false
	}
	_, ok := t.exp.Alternative(t.override)

	return ok
}

func (t *Trial) shouldStore() bool {
	if t.override != "" || t.disabled {
		return t.storeOverride
	}

	return !t.Excluded()
}

func (t *Trial) incrementParticipation(ctx context.Context) error {
	if _, err := t.store.IncrBy(ctx, ParticipantKey(t.exp, t.alternative), 1); err != nil {
		return fmt.Errorf("count participation in %s: %w", t.exp.Key(), err)
	}
	t.metrics.RecordParticipation(t.exp.Name, t.alternative)

	return nil
}

func (t *Trial) incrementCompletion(ctx context.Context, goal string) error {
	if _, err := t.store.IncrBy(ctx, CompletedKey(t.exp, t.alternative, goal), 1); err != nil {
		return fmt.Errorf("count completion in %s: %w", t.exp.Key(), err)
	}
	t.metrics.RecordConversion(t.exp.Name, t.alternative, goal)

	return nil
}

func (t *Trial) runHook(ctx context.Context, name string, hook func(context.Context, types.TrialEvent) error) {
	t.runHookWithGoals(ctx, name, hook, nil)
}

func (t *Trial) runHookWithGoals(ctx context.Context, name string, hook func(context.Context, types.TrialEvent) error, goals []string) {
	ev := types.TrialEvent{
		VisitorID:   t.record.ID(),
		Experiment:  t.exp,
		Alternative: t.alternative,
		Goals:       goals,
	}
	if err := hook(ctx, ev); err != nil {
		t.logger.Warn("trial hook failed", "hook", name, "experiment", t.exp.Key(), "error", err)
	}
}
