package strategy

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/imlitech/split/types"
)

// RoundRobin cycles through an experiment's alternatives in order.
//
// Counters are kept per experiment key in process memory, so two processes
// each cycle independently. Weights are ignored.
type RoundRobin struct {
	next *xsync.Map[string, uint64]
}

var _ types.AlternativeSelector = (*RoundRobin)(nil)

// NewRoundRobin creates a new round-robin selector.
//
// Example:
//
//	mgr, err := split.NewManager(cfg, store, split.WithSelector(strategy.NewRoundRobin()))
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{next: xsync.NewMap[string, uint64]()}
}

// Select implements types.AlternativeSelector.
func (rr *RoundRobin) Select(exp *types.Experiment, _ string) (types.Alternative, error) {
	if exp == nil || len(exp.Alternatives) == 0 {
		return types.Alternative{}, types.ErrNoAlternatives
	}

	var slot uint64
	rr.next.Compute(exp.Key(), func(cur uint64, _ bool) (uint64, xsync.ComputeOp) {
		slot = cur

		return cur + 1, xsync.UpdateOp
	})

	return exp.Alternatives[slot%uint64(len(exp.Alternatives))], nil
}
