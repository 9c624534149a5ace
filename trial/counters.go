package trial

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/imlitech/split/types"
)

// Counter key suffixes.
const (
	ParticipantSuffix = "participant_count"
	CompletedSuffix   = "completed_count"
)

// ParticipantKey returns the participation counter key of an alternative.
func ParticipantKey(exp *types.Experiment, alternative string) string {
	return exp.Key() + ":" + alternative + ":" + ParticipantSuffix
}

// CompletedKey returns the completion counter key of an alternative, scoped
// to goal when goal is not empty.
func CompletedKey(exp *types.Experiment, alternative, goal string) string {
	key := exp.Key() + ":" + alternative + ":" + CompletedSuffix
	if goal != "" {
		key += ":" + goal
	}

	return key
}

// AlternativeStats holds the counters of one alternative.
type AlternativeStats struct {
	Name         string
	Participants int64
	Completed    int64
	Goals        map[string]int64
}

// LoadStats reads the counters of every alternative of exp's current version.
//
// Parameters:
//   - ctx: Context
//   - store: Shared store
//   - exp: Experiment
//
// Returns:
//   - []AlternativeStats: One entry per alternative, in experiment order
//   - error: Store error, or ErrNotInteger for a corrupt counter
func LoadStats(ctx context.Context, store types.Store, exp *types.Experiment) ([]AlternativeStats, error) {
	stats := make([]AlternativeStats, 0, len(exp.Alternatives))
	for _, alt := range exp.Alternatives {
		s := AlternativeStats{Name: alt.Name, Goals: make(map[string]int64, len(exp.Goals))}

		var err error
		if s.Participants, err = readCounter(ctx, store, ParticipantKey(exp, alt.Name)); err != nil {
			return nil, err
		}
		if s.Completed, err = readCounter(ctx, store, CompletedKey(exp, alt.Name, "")); err != nil {
			return nil, err
		}

		prefix := CompletedKey(exp, alt.Name, "") + ":"
		keys, err := store.Keys(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("list goal counters of %s: %w", alt.Name, err)
		}
		for _, key := range keys {
			n, err := readCounter(ctx, store, key)
			if err != nil {
				return nil, err
			}
			s.Goals[strings.TrimPrefix(key, prefix)] = n
		}

		stats = append(stats, s)
	}

	return stats, nil
}

func readCounter(ctx context.Context, store types.Store, key string) (int64, error) {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		return 0, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q", types.ErrNotInteger, key, raw)
	}

	return n, nil
}
