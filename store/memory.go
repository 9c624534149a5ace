package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/imlitech/split/types"
)

type memoryEntry struct {
	value  string
	list   []string
	isList bool
}

// Memory is an in-process types.Store.
//
// Every operation is atomic for its key: read-modify-write operations run
// inside xsync.Map.Compute. Memory never returns ErrStoreUnavailable.
type Memory struct {
	entries *xsync.Map[string, memoryEntry]
}

var _ types.Store = (*Memory)(nil)

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{entries: xsync.NewMap[string, memoryEntry]()}
}

// Get implements types.Store.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	e, ok := m.entries.Load(key)
	if !ok {
		return "", false, nil
	}
	if e.isList {
		return "", false, fmt.Errorf("%w: get %s", types.ErrWrongType, key)
	}

	return e.value, true, nil
}

// Set implements types.Store.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.entries.Store(key, memoryEntry{value: value})

	return nil
}

// Delete implements types.Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)

	return nil
}

// IncrBy implements types.Store.
func (m *Memory) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	var (
		result int64
		err    error
	)

	m.entries.Compute(key, func(old memoryEntry, loaded bool) (memoryEntry, xsync.ComputeOp) {
		var cur int64
		if loaded {
			if old.isList {
				err = fmt.Errorf("%w: incr %s", types.ErrWrongType, key)
				return old, xsync.CancelOp
			}

			cur, err = strconv.ParseInt(old.value, 10, 64)
			if err != nil {
				err = fmt.Errorf("%w: incr %s: %q", types.ErrNotInteger, key, old.value)
				return old, xsync.CancelOp
			}
		}

		result = cur + delta

		return memoryEntry{value: strconv.FormatInt(result, 10)}, xsync.UpdateOp
	})

	return result, err
}

// LPush implements types.Store.
func (m *Memory) LPush(_ context.Context, key string, values ...string) error {
	var err error

	m.entries.Compute(key, func(old memoryEntry, loaded bool) (memoryEntry, xsync.ComputeOp) {
		if loaded && !old.isList {
			err = fmt.Errorf("%w: lpush %s", types.ErrWrongType, key)
			return old, xsync.CancelOp
		}

		return memoryEntry{list: prepend(old.list, values), isList: true}, xsync.UpdateOp
	})

	return err
}

// LRange implements types.Store.
func (m *Memory) LRange(_ context.Context, key string) ([]string, error) {
	e, ok := m.entries.Load(key)
	if !ok {
		return []string{}, nil
	}
	if !e.isList {
		return nil, fmt.Errorf("%w: lrange %s", types.ErrWrongType, key)
	}

	return slices.Clone(e.list), nil
}

// Keys implements types.Store. Keys are returned sorted.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	m.entries.Range(func(key string, _ memoryEntry) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}

		return true
	})
	slices.Sort(keys)

	return keys, nil
}

// Len returns the number of keys held.
func (m *Memory) Len() int {
	return m.entries.Size()
}

// prepend pushes values to the head one at a time, so the last value ends up first.
func prepend(list, values []string) []string {
	out := make([]string, 0, len(list)+len(values))
	for i := len(values) - 1; i >= 0; i-- {
		out = append(out, values[i])
	}

	return append(out, list...)
}
