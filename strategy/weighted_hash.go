package strategy

import (
	"github.com/zeebo/xxh3"

	"github.com/imlitech/split/types"
)

// WeightedHash buckets visitors deterministically by hashing the experiment
// key and visitor ID with xxh3.
//
// Visitors without an ID fall back to a weighted random draw.
type WeightedHash struct {
	seed     uint64
	fallback *WeightedRandom
}

var _ types.AlternativeSelector = (*WeightedHash)(nil)

// NewWeightedHash creates a deterministic weighted selector.
//
// Parameters:
//   - seed: Hash seed (0 uses unseeded xxh3)
//
// Returns:
//   - *WeightedHash: Initialized selector
func NewWeightedHash(seed uint64) *WeightedHash {
	return &WeightedHash{seed: seed, fallback: NewWeightedRandom()}
}

// Select implements types.AlternativeSelector.
func (w *WeightedHash) Select(exp *types.Experiment, visitorID string) (types.Alternative, error) {
	if exp == nil || len(exp.Alternatives) == 0 {
		return types.Alternative{}, types.ErrNoAlternatives
	}
	if visitorID == "" {
		return w.fallback.Select(exp, visitorID)
	}

	return pickWeighted(exp.Alternatives, w.unit(exp.Key()+"\x00"+visitorID)), nil
}

// unit maps a key onto [0,1) using the top 53 bits of its hash.
func (w *WeightedHash) unit(key string) float64 {
	var h uint64
	if w.seed != 0 {
		h = xxh3.HashStringSeed(key, w.seed)
	} else {
		h = xxh3.HashString(key)
	}

	return float64(h>>11) / (1 << 53)
}
