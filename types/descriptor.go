package types

import (
	"fmt"
	"strconv"
)

// MetricDescriptor names an experiment (or composite metric) and the goals a
// call refers to.
//
// The bare form carries only a name; the mapping form carries the goals
// declared inline.
type MetricDescriptor struct {
	Name  string
	Goals []string
}

// Named builds a bare descriptor.
func Named(name string) MetricDescriptor {
	return MetricDescriptor{Name: name}
}

// WithGoals builds a mapping descriptor.
func WithGoals(name string, goals ...string) MetricDescriptor {
	return MetricDescriptor{Name: name, Goals: goals}
}

// ParseDescriptor normalizes a loosely typed descriptor.
//
// Accepted shapes:
//   - string: bare experiment name, empty goal list
//   - MetricDescriptor: returned as is
//   - single-entry map[string]any / map[string]string / map[string][]string:
//     name mapped to goals; a scalar goal is coerced to a one-element list
//
// Parameters:
//   - v: Descriptor value (typically decoded from YAML or JSON)
//
// Returns:
//   - MetricDescriptor: Normalized descriptor
//   - error: ErrInvalidDescriptor for any other shape
func ParseDescriptor(v any) (MetricDescriptor, error) {
	switch d := v.(type) {
	case MetricDescriptor:
		if d.Name == "" {
			return MetricDescriptor{}, fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
		}

		return d, nil
	case string:
		if d == "" {
			return MetricDescriptor{}, fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
		}

		return MetricDescriptor{Name: d, Goals: []string{}}, nil
	case map[string]string:
		if len(d) != 1 {
			return MetricDescriptor{}, fmt.Errorf("%w: mapping must have exactly one entry, got %d", ErrInvalidDescriptor, len(d))
		}
		for name, goal := range d {
			return MetricDescriptor{Name: name, Goals: []string{goal}}, nil
		}
	case map[string][]string:
		if len(d) != 1 {
			return MetricDescriptor{}, fmt.Errorf("%w: mapping must have exactly one entry, got %d", ErrInvalidDescriptor, len(d))
		}
		for name, goals := range d {
			return MetricDescriptor{Name: name, Goals: append([]string{}, goals...)}, nil
		}
	case map[string]any:
		if len(d) != 1 {
			return MetricDescriptor{}, fmt.Errorf("%w: mapping must have exactly one entry, got %d", ErrInvalidDescriptor, len(d))
		}
		for name, raw := range d {
			goals, err := coerceGoals(raw)
			if err != nil {
				return MetricDescriptor{}, err
			}

			return MetricDescriptor{Name: name, Goals: goals}, nil
		}
	}

	return MetricDescriptor{}, fmt.Errorf("%w: unsupported descriptor type %T", ErrInvalidDescriptor, v)
}

func coerceGoals(raw any) ([]string, error) {
	switch g := raw.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{g}, nil
	case []string:
		return append([]string{}, g...), nil
	case []any:
		goals := make([]string, 0, len(g))
		for _, item := range g {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: goal %v is %T, not a string", ErrInvalidDescriptor, item, item)
			}
			goals = append(goals, s)
		}

		return goals, nil
	default:
		return nil, fmt.Errorf("%w: unsupported goals type %T", ErrInvalidDescriptor, raw)
	}
}

// ParseAlternative normalizes a loosely typed alternative descriptor.
//
// Accepted shapes:
//   - Alternative: returned as is (weight defaults to 1)
//   - string: name with weight 1
//   - single-entry map: name mapped to a numeric weight; the canonical name is the key
//   - map with "name" and optional "weight"/"percent" entries (static definitions)
//
// Parameters:
//   - v: Alternative value
//
// Returns:
//   - Alternative: Normalized alternative
//   - error: ErrInvalidDescriptor for any other shape
func ParseAlternative(v any) (Alternative, error) {
	switch a := v.(type) {
	case Alternative:
		if a.Name == "" {
			return Alternative{}, fmt.Errorf("%w: alternative has no name", ErrInvalidDescriptor)
		}
		if a.Weight == 0 {
			a.Weight = 1
		}

		return a, nil
	case string:
		if a == "" {
			return Alternative{}, fmt.Errorf("%w: alternative has no name", ErrInvalidDescriptor)
		}

		return Alternative{Name: a, Weight: 1}, nil
	case map[string]int:
		return singleWeighted(len(a), func(yield func(string, any)) {
			for k, w := range a {
				yield(k, w)
			}
		})
	case map[string]float64:
		return singleWeighted(len(a), func(yield func(string, any)) {
			for k, w := range a {
				yield(k, w)
			}
		})
	case map[string]any:
		if name, ok := a["name"].(string); ok {
			weight := 1.0
			for _, field := range []string{"weight", "percent"} {
				if raw, present := a[field]; present {
					w, err := toWeight(raw)
					if err != nil {
						return Alternative{}, err
					}
					weight = w
				}
			}

			return ParseAlternative(Alternative{Name: name, Weight: weight})
		}

		return singleWeighted(len(a), func(yield func(string, any)) {
			for k, w := range a {
				yield(k, w)
			}
		})
	}

	return Alternative{}, fmt.Errorf("%w: unsupported alternative type %T", ErrInvalidDescriptor, v)
}

// ParseAlternatives normalizes a list of alternative descriptors.
func ParseAlternatives(values []any) ([]Alternative, error) {
	alts := make([]Alternative, 0, len(values))
	for _, v := range values {
		alt, err := ParseAlternative(v)
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}

	return alts, nil
}

func singleWeighted(n int, entries func(yield func(string, any))) (Alternative, error) {
	if n != 1 {
		return Alternative{}, fmt.Errorf("%w: weighted alternative must have exactly one entry, got %d", ErrInvalidDescriptor, n)
	}

	var (
		alt Alternative
		err error
	)
	entries(func(name string, raw any) {
		var w float64
		w, err = toWeight(raw)
		alt = Alternative{Name: name, Weight: w}
	})
	if err != nil {
		return Alternative{}, err
	}

	return ParseAlternative(alt)
}

func toWeight(raw any) (float64, error) {
	switch w := raw.(type) {
	case int:
		return float64(w), nil
	case int64:
		return float64(w), nil
	case float64:
		return w, nil
	case string:
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: weight %q: %w", ErrInvalidDescriptor, w, err)
		}

		return f, nil
	default:
		return 0, fmt.Errorf("%w: unsupported weight type %T", ErrInvalidDescriptor, raw)
	}
}
