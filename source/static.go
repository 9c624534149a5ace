package source

import (
	"maps"
	"slices"
	"sync"

	"github.com/imlitech/split/types"
)

// Static implements a definition source backed by a fixed map.
type Static struct {
	mu          sync.RWMutex
	definitions map[string]types.ExperimentDefinition
}

var _ types.DefinitionSource = (*Static)(nil)

// NewStatic creates a new static definition source.
//
// Parameters:
//   - definitions: Experiment definitions keyed by experiment name (may be nil)
//
// Returns:
//   - *Static: Initialized static source
//
// Example:
//
//	src := source.NewStatic(map[string]types.ExperimentDefinition{
//	    "link_color": {Alternatives: []any{"blue", "red"}, Goals: []any{"purchase"}},
//	})
//	mgr, err := split.NewManager(cfg, store, split.WithDefinitionSource(src))
func NewStatic(definitions map[string]types.ExperimentDefinition) *Static {
	return &Static{definitions: maps.Clone(definitions)}
}

// Lookup returns the definition of name.
func (s *Static) Lookup(name string) (types.ExperimentDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[name]

	return def, ok
}

// Names returns every defined experiment name, sorted.
func (s *Static) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.definitions))
}

// Update replaces all definitions.
//
// Experiments whose alternatives or goals change are re-versioned by the
// catalog the next time they are used.
//
// Parameters:
//   - definitions: New definitions
func (s *Static) Update(definitions map[string]types.ExperimentDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.definitions = maps.Clone(definitions)
}
