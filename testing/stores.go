package testing

import (
	"context"
	"sync/atomic"

	"github.com/imlitech/split/types"
)

// CountingStore wraps a Store and counts mutating calls.
//
// Example:
//
//	cs := splittest.NewCountingStore(store.NewMemory())
//	mgr.ABTest(ctx, vc, split.Named("link_color"), "red")
//	require.Zero(t, cs.Writes())
type CountingStore struct {
	types.Store

	writes atomic.Int64
	reads  atomic.Int64
}

var _ types.Store = (*CountingStore)(nil)

// NewCountingStore wraps inner.
func NewCountingStore(inner types.Store) *CountingStore {
	return &CountingStore{Store: inner}
}

// Writes returns the number of Set, Delete, IncrBy and LPush calls seen.
func (c *CountingStore) Writes() int64 { return c.writes.Load() }

// Reads returns the number of Get, LRange and Keys calls seen.
func (c *CountingStore) Reads() int64 { return c.reads.Load() }

func (c *CountingStore) Get(ctx context.Context, key string) (string, bool, error) {
	c.reads.Add(1)
	return c.Store.Get(ctx, key)
}

func (c *CountingStore) Set(ctx context.Context, key, value string) error {
	c.writes.Add(1)
	return c.Store.Set(ctx, key, value)
}

func (c *CountingStore) Delete(ctx context.Context, key string) error {
	c.writes.Add(1)
	return c.Store.Delete(ctx, key)
}

func (c *CountingStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	c.writes.Add(1)
	return c.Store.IncrBy(ctx, key, delta)
}

func (c *CountingStore) LPush(ctx context.Context, key string, values ...string) error {
	c.writes.Add(1)
	return c.Store.LPush(ctx, key, values...)
}

func (c *CountingStore) LRange(ctx context.Context, key string) ([]string, error) {
	c.reads.Add(1)
	return c.Store.LRange(ctx, key)
}

func (c *CountingStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	c.reads.Add(1)
	return c.Store.Keys(ctx, prefix)
}

// FailingStore returns Err from every operation while failing is on.
//
// With no inner store it fails unconditionally.
type FailingStore struct {
	inner   types.Store
	Err     error
	failing atomic.Bool
}

var _ types.Store = (*FailingStore)(nil)

// NewFailingStore creates a store that starts out failing with err.
//
// Parameters:
//   - inner: Store used while failing is off (may be nil)
//   - err: Error returned while failing is on
func NewFailingStore(inner types.Store, err error) *FailingStore {
	f := &FailingStore{inner: inner, Err: err}
	f.failing.Store(true)

	return f
}

// SetFailing toggles failure injection.
func (f *FailingStore) SetFailing(on bool) { f.failing.Store(on) }

func (f *FailingStore) fail() bool {
	return f.failing.Load() || f.inner == nil
}

func (f *FailingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.fail() {
		return "", false, f.Err
	}

	return f.inner.Get(ctx, key)
}

func (f *FailingStore) Set(ctx context.Context, key, value string) error {
	if f.fail() {
		return f.Err
	}

	return f.inner.Set(ctx, key, value)
}

func (f *FailingStore) Delete(ctx context.Context, key string) error {
	if f.fail() {
		return f.Err
	}

	return f.inner.Delete(ctx, key)
}

func (f *FailingStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if f.fail() {
		return 0, f.Err
	}

	return f.inner.IncrBy(ctx, key, delta)
}

func (f *FailingStore) LPush(ctx context.Context, key string, values ...string) error {
	if f.fail() {
		return f.Err
	}

	return f.inner.LPush(ctx, key, values...)
}

func (f *FailingStore) LRange(ctx context.Context, key string) ([]string, error) {
	if f.fail() {
		return nil, f.Err
	}

	return f.inner.LRange(ctx, key)
}

func (f *FailingStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if f.fail() {
		return nil, f.Err
	}

	return f.inner.Keys(ctx, prefix)
}
