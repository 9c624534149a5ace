// Package hooks provides default trial lifecycle hooks.
package hooks

import (
	"context"

	"github.com/imlitech/split/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, types.TrialEvent) error = (*NopHooks)(nil).OnTrial
	_ func(context.Context, error) error            = (*NopHooks)(nil).OnFailover
)

// NewNop creates a new no-op hooks implementation.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnTrialChoose:   h.OnTrial,
		OnTrial:         h.OnTrial,
		OnTrialComplete: h.OnTrial,
		OnFailover:      h.OnFailover,
	}
}

// Merge fills the nil callbacks of custom with no-ops.
//
// Parameters:
//   - custom: User hooks (may be nil)
//
// Returns:
//   - types.Hooks: Hooks with every callback set
func Merge(custom *types.Hooks) types.Hooks {
	h := NewNop()
	if custom == nil {
		return h
	}
	if custom.OnTrialChoose != nil {
		h.OnTrialChoose = custom.OnTrialChoose
	}
	if custom.OnTrial != nil {
		h.OnTrial = custom.OnTrial
	}
	if custom.OnTrialComplete != nil {
		h.OnTrialComplete = custom.OnTrialComplete
	}
	if custom.OnFailover != nil {
		h.OnFailover = custom.OnFailover
	}

	return h
}

// OnTrial is a no-op implementation.
func (h *NopHooks) OnTrial(_ context.Context, _ types.TrialEvent) error {
	return nil
}

// OnFailover is a no-op implementation.
func (h *NopHooks) OnFailover(_ context.Context, _ error) error {
	return nil
}
