package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imlitech/split/types"
)

func TestStatic_Lookup(t *testing.T) {
	t.Run("returns defined experiments", func(t *testing.T) {
		src := NewStatic(map[string]types.ExperimentDefinition{
			"link_color": {Alternatives: []any{"blue", "red"}, Metric: "purchase"},
		})

		def, ok := src.Lookup("link_color")
		require.True(t, ok)
		require.Equal(t, []any{"blue", "red"}, def.Alternatives)
		require.Equal(t, "purchase", def.Metric)

		_, ok = src.Lookup("button_size")
		require.False(t, ok)
	})

	t.Run("nil map is empty", func(t *testing.T) {
		src := NewStatic(nil)

		_, ok := src.Lookup("anything")
		require.False(t, ok)
		require.Empty(t, src.Names())
	})

	t.Run("does not alias the caller's map", func(t *testing.T) {
		defs := map[string]types.ExperimentDefinition{"a": {}}
		src := NewStatic(defs)

		defs["b"] = types.ExperimentDefinition{}

		require.Equal(t, []string{"a"}, src.Names())
	})
}

func TestStatic_Update(t *testing.T) {
	src := NewStatic(map[string]types.ExperimentDefinition{"b": {}, "a": {}})
	require.Equal(t, []string{"a", "b"}, src.Names())

	src.Update(map[string]types.ExperimentDefinition{"c": {Alternatives: []any{"x"}}})

	require.Equal(t, []string{"c"}, src.Names())
	_, ok := src.Lookup("a")
	require.False(t, ok)
}

func TestExperimentDefinition_IsResettable(t *testing.T) {
	no := false

	require.True(t, types.ExperimentDefinition{}.IsResettable())
	require.False(t, types.ExperimentDefinition{Resettable: &no}.IsResettable())
}
