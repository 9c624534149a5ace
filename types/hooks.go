package types

import "context"

// TrialEvent describes one assignment or completion passed to hooks.
type TrialEvent struct {
	VisitorID   string
	Experiment  *Experiment
	Alternative string
	Goals       []string
}

// Hooks defines callbacks for trial lifecycle events.
//
// All hooks are optional and run synchronously on the request path, after the
// store mutation they describe. Hook errors are logged but never fail the
// assignment or completion that triggered them.
//
// Best practices for hook implementation:
//   - Complete quickly (they delay the caller)
//   - Respect context cancellation
//   - Make hooks idempotent (a benign race may enroll a visitor twice)
//
// Example:
//
//	hooks := &split.Hooks{
//	    OnTrialChoose: func(ctx context.Context, ev split.TrialEvent) error {
//	        return analytics.Track(ctx, ev.VisitorID, ev.Experiment.Name, ev.Alternative)
//	    },
//	}
type Hooks struct {
	// OnTrialChoose is called when a visitor is enrolled into a newly chosen alternative.
	OnTrialChoose func(ctx context.Context, ev TrialEvent) error

	// OnTrial is called on every assignment that is not bypassed by the kill switch.
	OnTrial func(ctx context.Context, ev TrialEvent) error

	// OnTrialComplete is called after a conversion has been recorded.
	OnTrialComplete func(ctx context.Context, ev TrialEvent) error

	// OnFailover is called when a store failure is absorbed by the failover policy.
	OnFailover func(ctx context.Context, err error) error
}
