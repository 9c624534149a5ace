package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imlitech/split/types"
)

// runConformance exercises the types.Store contract against a fresh store.
func runConformance(t *testing.T, newStore func(t *testing.T) types.Store) {
	t.Helper()

	t.Run("get missing key", func(t *testing.T) {
		s := newStore(t)

		v, found, err := s.Get(t.Context(), "link_color")
		require.NoError(t, err)
		require.False(t, found)
		require.Empty(t, v)
	})

	t.Run("set get delete", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Set(ctx, "visitor:v-1:link_color", "red"))
		v, found, err := s.Get(ctx, "visitor:v-1:link_color")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "red", v)

		require.NoError(t, s.Set(ctx, "visitor:v-1:link_color", "blue"))
		v, _, err = s.Get(ctx, "visitor:v-1:link_color")
		require.NoError(t, err)
		require.Equal(t, "blue", v)

		require.NoError(t, s.Delete(ctx, "visitor:v-1:link_color"))
		_, found, err = s.Get(ctx, "visitor:v-1:link_color")
		require.NoError(t, err)
		require.False(t, found)

		require.NoError(t, s.Delete(ctx, "visitor:v-1:link_color"), "deleting a missing key is not an error")
	})

	t.Run("empty string value is present", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Set(ctx, "flag", ""))
		v, found, err := s.Get(ctx, "flag")
		require.NoError(t, err)
		require.True(t, found)
		require.Empty(t, v)
	})

	t.Run("keys with awkward characters", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		key := "visitor:a b/c.d*>:exp name:2:finished"
		require.NoError(t, s.Set(ctx, key, "true"))
		v, found, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "true", v)

		keys, err := s.Keys(ctx, "visitor:a b/c.d*>:")
		require.NoError(t, err)
		require.Equal(t, []string{key}, keys)
	})

	t.Run("incr", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		n, err := s.IncrBy(ctx, "link_color:red:participant_count", 1)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		n, err = s.IncrBy(ctx, "link_color:red:participant_count", 5)
		require.NoError(t, err)
		require.Equal(t, int64(6), n)

		v, _, err := s.Get(ctx, "link_color:red:participant_count")
		require.NoError(t, err)
		require.Equal(t, "6", v)

		require.NoError(t, s.Set(ctx, "plain", "abc"))
		_, err = s.IncrBy(ctx, "plain", 1)
		require.ErrorIs(t, err, types.ErrNotInteger)
	})

	t.Run("concurrent incr", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		const workers = 8
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1) //nolint:revive // Standard pattern for concurrent operations
			go func() {
				defer wg.Done()
				_, err := s.IncrBy(ctx, "counter", 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		v, _, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		require.Equal(t, fmt.Sprint(workers), v)
	})

	t.Run("lpush lrange order", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		list, err := s.LRange(ctx, "link_color:goals")
		require.NoError(t, err)
		require.Empty(t, list)

		require.NoError(t, s.LPush(ctx, "link_color:goals", "b"))
		require.NoError(t, s.LPush(ctx, "link_color:goals", "a"))
		require.NoError(t, s.LPush(ctx, "link_color:goals", "y", "x"))

		list, err = s.LRange(ctx, "link_color:goals")
		require.NoError(t, err)
		require.Equal(t, []string{"x", "y", "a", "b"}, list)
	})

	t.Run("lpush without values creates an empty list", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.LPush(ctx, "empty:goals"))

		keys, err := s.Keys(ctx, "empty:")
		require.NoError(t, err)
		require.Equal(t, []string{"empty:goals"}, keys)

		list, err := s.LRange(ctx, "empty:goals")
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("wrong type", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Set(ctx, "str", "v"))
		require.NoError(t, s.LPush(ctx, "list", "v"))

		_, err := s.LRange(ctx, "str")
		require.ErrorIs(t, err, types.ErrWrongType)
		require.ErrorIs(t, s.LPush(ctx, "str", "x"), types.ErrWrongType)

		_, _, err = s.Get(ctx, "list")
		require.ErrorIs(t, err, types.ErrWrongType)
		_, err = s.IncrBy(ctx, "list", 1)
		require.ErrorIs(t, err, types.ErrWrongType)
	})

	t.Run("keys by prefix", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		for _, k := range []string{
			"visitor:v-1:link_color",
			"visitor:v-1:link_color:finished",
			"visitor:v-10:link_color",
			"visitor:v-2:button",
			"link_color:goals",
		} {
			require.NoError(t, s.Set(ctx, k, "x"))
		}

		keys, err := s.Keys(ctx, "visitor:v-1:")
		require.NoError(t, err)
		require.Equal(t, []string{"visitor:v-1:link_color", "visitor:v-1:link_color:finished"}, keys)

		keys, err = s.Keys(ctx, "visitor:v-1")
		require.NoError(t, err)
		require.Len(t, keys, 3)

		keys, err = s.Keys(ctx, "")
		require.NoError(t, err)
		require.Len(t, keys, 5)

		keys, err = s.Keys(ctx, "nothing:")
		require.NoError(t, err)
		require.Empty(t, keys)
	})
}
