package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDescriptor(t *testing.T) {
	t.Run("bare name yields empty goals", func(t *testing.T) {
		d, err := ParseDescriptor("link_color")
		require.NoError(t, err)
		require.Equal(t, "link_color", d.Name)
		require.Empty(t, d.Goals)
		require.NotNil(t, d.Goals)
	})

	t.Run("mapping with goal list", func(t *testing.T) {
		d, err := ParseDescriptor(map[string]any{"link_color": []any{"purchase", "signup"}})
		require.NoError(t, err)
		require.Equal(t, "link_color", d.Name)
		require.Equal(t, []string{"purchase", "signup"}, d.Goals)
	})

	t.Run("scalar goal is coerced to one element", func(t *testing.T) {
		d, err := ParseDescriptor(map[string]any{"link_color": "purchase"})
		require.NoError(t, err)
		require.Equal(t, []string{"purchase"}, d.Goals)

		d, err = ParseDescriptor(map[string]string{"link_color": "purchase"})
		require.NoError(t, err)
		require.Equal(t, []string{"purchase"}, d.Goals)
	})

	t.Run("typed descriptor passes through", func(t *testing.T) {
		d, err := ParseDescriptor(WithGoals("link_color", "purchase"))
		require.NoError(t, err)
		require.Equal(t, []string{"purchase"}, d.Goals)
	})

	t.Run("malformed descriptors are caller errors", func(t *testing.T) {
		for _, v := range []any{
			"",
			42,
			nil,
			map[string]any{},
			map[string]any{"a": "x", "b": "y"},
			map[string]any{"a": []any{1, 2}},
			map[string]any{"a": 3},
			Named(""),
		} {
			_, err := ParseDescriptor(v)
			require.ErrorIs(t, err, ErrInvalidDescriptor, "value %#v", v)
		}
	})
}

func TestParseAlternative(t *testing.T) {
	t.Run("string has weight one", func(t *testing.T) {
		alt, err := ParseAlternative("red")
		require.NoError(t, err)
		require.Equal(t, Alternative{Name: "red", Weight: 1}, alt)
	})

	t.Run("single entry mapping uses key as canonical name", func(t *testing.T) {
		alt, err := ParseAlternative(map[string]any{"red": 1})
		require.NoError(t, err)
		require.Equal(t, "red", alt.Name)

		alt, err = ParseAlternative(map[string]int{"blue": 3})
		require.NoError(t, err)
		require.Equal(t, Alternative{Name: "blue", Weight: 3}, alt)

		alt, err = ParseAlternative(map[string]float64{"green": 0.25})
		require.NoError(t, err)
		require.InDelta(t, 0.25, alt.Weight, 0.0001)
	})

	t.Run("name and percent mapping", func(t *testing.T) {
		alt, err := ParseAlternative(map[string]any{"name": "red", "percent": 70})
		require.NoError(t, err)
		require.Equal(t, Alternative{Name: "red", Weight: 70}, alt)
	})

	t.Run("list of mixed shapes", func(t *testing.T) {
		alts, err := ParseAlternatives([]any{"a", map[string]any{"b": 2.0}})
		require.NoError(t, err)
		require.Equal(t, []Alternative{{Name: "a", Weight: 1}, {Name: "b", Weight: 2}}, alts)
	})

	t.Run("malformed alternatives", func(t *testing.T) {
		for _, v := range []any{"", 7, map[string]any{"a": 1, "b": 2}, map[string]any{"a": true}, Alternative{}} {
			_, err := ParseAlternative(v)
			require.ErrorIs(t, err, ErrInvalidDescriptor, "value %#v", v)
		}
	})
}
