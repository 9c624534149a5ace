package strategy

import (
	"fmt"

	"github.com/imlitech/split/types"
)

// Algorithm names accepted by Lookup and by experiment definitions.
const (
	AlgorithmWeightedRandom = "weighted_random"
	AlgorithmWeightedHash   = "weighted_hash"
	AlgorithmRoundRobin     = "round_robin"
)

// Lookup returns a new selector for an algorithm name.
//
// Parameters:
//   - name: Algorithm name ("" selects weighted_random)
//
// Returns:
//   - types.AlternativeSelector: Selector instance
//   - error: ErrUnknownAlgorithm for an unregistered name
func Lookup(name string) (types.AlternativeSelector, error) {
	switch name {
	case "", AlgorithmWeightedRandom:
		return NewWeightedRandom(), nil
	case AlgorithmWeightedHash:
		return NewWeightedHash(0), nil
	case AlgorithmRoundRobin:
		return NewRoundRobin(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// pickWeighted maps u in [0,1) onto an alternative proportionally to weight.
// When every weight is zero, alternatives are equally likely.
func pickWeighted(alts []types.Alternative, u float64) types.Alternative {
	total := 0.0
	for _, alt := range alts {
		if alt.Weight > 0 {
			total += alt.Weight
		}
	}

	if total <= 0 {
		idx := int(u * float64(len(alts)))
		return alts[min(idx, len(alts)-1)]
	}

	point := u * total
	for _, alt := range alts {
		if alt.Weight <= 0 {
			continue
		}
		if point < alt.Weight {
			return alt
		}
		point -= alt.Weight
	}

	// Floating point slack lands on the last weighted alternative.
	for i := len(alts) - 1; i >= 0; i-- {
		if alts[i].Weight > 0 {
			return alts[i]
		}
	}

	return alts[len(alts)-1]
}
