package testing_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imlitech/split/store"
	splittest "github.com/imlitech/split/testing"
	"github.com/imlitech/split/types"
)

func TestCountingStore(t *testing.T) {
	cs := splittest.NewCountingStore(store.NewMemory())
	ctx := t.Context()

	require.NoError(t, cs.Set(ctx, "a", "1"))
	_, err := cs.IncrBy(ctx, "n", 1)
	require.NoError(t, err)
	require.NoError(t, cs.LPush(ctx, "l", "x"))
	require.NoError(t, cs.Delete(ctx, "a"))

	_, _, err = cs.Get(ctx, "a")
	require.NoError(t, err)
	_, err = cs.LRange(ctx, "l")
	require.NoError(t, err)
	_, err = cs.Keys(ctx, "")
	require.NoError(t, err)

	require.Equal(t, int64(4), cs.Writes())
	require.Equal(t, int64(3), cs.Reads())
}

func TestFailingStore(t *testing.T) {
	boom := errors.Join(types.ErrStoreUnavailable, errors.New("dial tcp: connection refused"))
	fs := splittest.NewFailingStore(store.NewMemory(), boom)
	ctx := t.Context()

	require.ErrorIs(t, fs.Set(ctx, "a", "1"), types.ErrStoreUnavailable)
	_, _, err := fs.Get(ctx, "a")
	require.ErrorIs(t, err, types.ErrStoreUnavailable)

	fs.SetFailing(false)
	require.NoError(t, fs.Set(ctx, "a", "1"))
	v, found, err := fs.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1", v)

	always := splittest.NewFailingStore(nil, boom)
	always.SetFailing(false)
	_, err = always.Keys(ctx, "")
	require.ErrorIs(t, err, types.ErrStoreUnavailable)
}
