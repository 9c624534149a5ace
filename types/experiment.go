package types

import (
	"fmt"
	"strconv"
	"time"
)

// FinishedSuffix marks the per-visitor completion flag of an experiment key.
const FinishedSuffix = "finished"

// Alternative represents one variant a visitor may be assigned to.
type Alternative struct {
	// Name uniquely identifies the alternative within its experiment.
	Name string `json:"name" yaml:"name"`

	// Weight is the relative selection weight (default: 1).
	Weight float64 `json:"weight" yaml:"weight"`
}

// Experiment is a named set of alternatives with persisted state.
//
// The first alternative is the control. Version is 0 for an experiment that
// was never reset; once bumped, per-visitor keys carry a ":<version>" suffix.
type Experiment struct {
	Name         string                    `json:"name"`
	Alternatives []Alternative             `json:"alternatives"`
	Goals        []string                  `json:"goals,omitempty"`
	Metric       string                    `json:"metric,omitempty"`
	Version      int                       `json:"version"`
	Winner       string                    `json:"winner,omitempty"`
	Resettable   bool                      `json:"resettable"`
	StartTime    time.Time                 `json:"startTime"`
	Algorithm    string                    `json:"algorithm,omitempty"`
	Metadata     map[string]map[string]any `json:"metadata,omitempty"`
}

// Control returns the control alternative (the first one).
//
// Returns:
//   - Alternative: Control alternative (zero value if the experiment has none)
func (e *Experiment) Control() Alternative {
	if len(e.Alternatives) == 0 {
		return Alternative{}
	}

	return e.Alternatives[0]
}

// Key returns the per-visitor assignment key for the current version.
//
// Returns:
//   - string: "<name>" for version 0, "<name>:<version>" otherwise
func (e *Experiment) Key() string {
	if e.Version > 0 {
		return e.Name + ":" + strconv.Itoa(e.Version)
	}

	return e.Name
}

// FinishedKey returns the per-visitor completion flag key for the current version.
func (e *Experiment) FinishedKey() string {
	return FinishedKey(e.Key())
}

// HasWinner reports whether a winning alternative has been recorded.
func (e *Experiment) HasWinner() bool {
	return e.Winner != ""
}

// Started reports whether the experiment has a start time.
func (e *Experiment) Started() bool {
	return !e.StartTime.IsZero()
}

// Alternative looks up an alternative by name.
//
// Parameters:
//   - name: Alternative name
//
// Returns:
//   - Alternative: The matching alternative
//   - bool: false if the experiment has no alternative with that name
func (e *Experiment) Alternative(name string) (Alternative, bool) {
	for _, alt := range e.Alternatives {
		if alt.Name == name {
			return alt, true
		}
	}

	return Alternative{}, false
}

// AlternativeNames returns the alternative names in order.
func (e *Experiment) AlternativeNames() []string {
	names := make([]string, len(e.Alternatives))
	for i, alt := range e.Alternatives {
		names[i] = alt.Name
	}

	return names
}

// Validate checks that the experiment can be persisted and selected from.
//
// Returns:
//   - error: ErrInvalidExperiment wrapped with the reason, nil if valid
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidExperiment)
	}
	if len(e.Alternatives) == 0 {
		return fmt.Errorf("%w: %s has no alternatives", ErrInvalidExperiment, e.Name)
	}

	seen := make(map[string]struct{}, len(e.Alternatives))
	for _, alt := range e.Alternatives {
		if alt.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed alternative", ErrInvalidExperiment, e.Name)
		}
		if alt.Weight < 0 {
			return fmt.Errorf("%w: %s alternative %s has negative weight", ErrInvalidExperiment, e.Name, alt.Name)
		}
		if _, dup := seen[alt.Name]; dup {
			return fmt.Errorf("%w: %s has duplicate alternative %s", ErrInvalidExperiment, e.Name, alt.Name)
		}
		seen[alt.Name] = struct{}{}
	}

	if e.Winner != "" {
		if _, ok := seen[e.Winner]; !ok {
			return fmt.Errorf("%w: winner %s of %s", ErrUnknownAlternative, e.Winner, e.Name)
		}
	}

	return nil
}

// FinishedKey returns the completion flag key for an assignment key.
func FinishedKey(key string) string {
	return key + ":" + FinishedSuffix
}
