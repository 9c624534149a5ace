// Package goals persists the ordered goal list of an experiment.
//
// Goals live in a single store list under "<experiment>:goals". The list
// primitive only pushes to the head, so goals are pushed in reverse to read
// back in insertion order.
package goals

import (
	"context"
	"fmt"
	"slices"

	"github.com/imlitech/split/types"
)

// KeySuffix is appended to the experiment name to form the goals list key.
const KeySuffix = "goals"

// Key returns the store key holding the goals of experiment.
func Key(experiment string) string {
	return experiment + ":" + KeySuffix
}

// Collection is the goal list of one experiment.
//
// The goals value is kept loosely typed until Validate: nil means "not
// configured", an empty sequence means "configured with no goals".
type Collection struct {
	store      types.Store
	experiment string
	goals      any
}

// New creates a collection for experiment.
//
// Parameters:
//   - store: Backing store
//   - experiment: Experiment name
//   - goals: Goal value; nil, []string, or []any of strings (nested sequences allowed)
//
// Returns:
//   - *Collection: Collection bound to "<experiment>:goals"
func New(store types.Store, experiment string, goals any) *Collection {
	return &Collection{store: store, experiment: experiment, goals: goals}
}

// Key returns the store key of this collection.
func (c *Collection) Key() string {
	return Key(c.experiment)
}

// IsSet reports whether a goals value was configured.
func (c *Collection) IsSet() bool {
	return c.goals != nil
}

// LoadFromStore reads the goals list. Repeated goals, left behind by
// concurrent saves of the same list, are read once.
//
// Returns:
//   - []string: Goals in insertion order (empty if none were saved)
//   - error: Store error
func (c *Collection) LoadFromStore(ctx context.Context) ([]string, error) {
	list, err := c.store.LRange(ctx, c.Key())
	if err != nil {
		return nil, fmt.Errorf("load goals of %s: %w", c.experiment, err)
	}

	return unique(list), nil
}

// LoadFromDefinitions reads the goals of the experiment's static definition.
//
// Absent definitions or goals yield an empty list; nested sequences are
// flattened. Non-string entries are dropped.
func (c *Collection) LoadFromDefinitions(src types.DefinitionSource) []string {
	if src == nil {
		return []string{}
	}

	def, ok := src.Lookup(c.experiment)
	if !ok {
		return []string{}
	}

	out := []string{}
	_ = flatten(def.Goals, &out, false)

	return out
}

// Validate checks the goals value.
//
// Returns:
//   - error: types.ErrValidation when goals are set but not a sequence of strings
func (c *Collection) Validate() error {
	if c.goals == nil {
		return nil
	}

	var out []string
	if err := flatten(c.goals, &out, true); err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrValidation, c.experiment, err)
	}

	return nil
}

// Goals returns the validated, flattened goals with repeats removed.
//
// Returns:
//   - []string: Goals in first-seen order (nil when not set)
//   - error: types.ErrValidation for a malformed value
func (c *Collection) Goals() ([]string, error) {
	if c.goals == nil {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	out := []string{}
	_ = flatten(c.goals, &out, true)

	return unique(out), nil
}

// Save writes the goals, replacing any previous list.
//
// Returns:
//   - bool: false (and no write) when goals are not set
//   - error: types.ErrValidation for a malformed value, or a store error
func (c *Collection) Save(ctx context.Context) (bool, error) {
	goals, err := c.Goals()
	if err != nil {
		return false, err
	}
	if goals == nil {
		return false, nil
	}

	if err := c.store.Delete(ctx, c.Key()); err != nil {
		return false, fmt.Errorf("save goals of %s: %w", c.experiment, err)
	}

	reversed := slices.Clone(goals)
	slices.Reverse(reversed)
	if err := c.store.LPush(ctx, c.Key(), reversed...); err != nil {
		return false, fmt.Errorf("save goals of %s: %w", c.experiment, err)
	}

	return true, nil
}

// Delete removes the goals list. Deleting a missing list is not an error.
func (c *Collection) Delete(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.Key()); err != nil {
		return fmt.Errorf("delete goals of %s: %w", c.experiment, err)
	}

	return nil
}

// flatten appends the strings of v to out. With strict set, a non-sequence
// top level or a non-string leaf is an error; otherwise such values are skipped.
func flatten(v any, out *[]string, strict bool) error {
	switch g := v.(type) {
	case nil:
		return nil
	case []string:
		*out = append(*out, g...)
		return nil
	case []any:
		for _, item := range g {
			switch leaf := item.(type) {
			case string:
				*out = append(*out, leaf)
			case []string, []any:
				if err := flatten(leaf, out, strict); err != nil {
					return err
				}
			default:
				if strict {
					return fmt.Errorf("goal %v is %T", item, item)
				}
			}
		}

		return nil
	default:
		if strict {
			return fmt.Errorf("goals value is %T, not a sequence", v)
		}
		if s, ok := v.(string); ok {
			*out = append(*out, s)
		}

		return nil
	}
}

// unique drops repeated goals, keeping the first occurrence.
func unique(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := list[:0:0]
	for _, g := range list {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}

	return out
}
