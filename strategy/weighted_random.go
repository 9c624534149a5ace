package strategy

import (
	"math/rand/v2"

	"github.com/imlitech/split/types"
)

// WeightedRandom draws an alternative proportionally to its weight.
type WeightedRandom struct {
	float func() float64
}

var _ types.AlternativeSelector = (*WeightedRandom)(nil)

// NewWeightedRandom creates a weighted random selector.
//
// Example:
//
//	mgr, err := split.NewManager(cfg, store, split.WithSelector(strategy.NewWeightedRandom()))
func NewWeightedRandom() *WeightedRandom {
	return &WeightedRandom{float: rand.Float64}
}

// Select implements types.AlternativeSelector.
func (w *WeightedRandom) Select(exp *types.Experiment, _ string) (types.Alternative, error) {
	if exp == nil || len(exp.Alternatives) == 0 {
		return types.Alternative{}, types.ErrNoAlternatives
	}

	return pickWeighted(exp.Alternatives, w.float()), nil
}
