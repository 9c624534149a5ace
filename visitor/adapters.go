package visitor

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/imlitech/split/types"
)

// SessionAdapter keeps a visitor's record in a session map owned by the host
// application. It performs no I/O.
type SessionAdapter struct {
	session map[string]string
}

var _ types.VisitorStore = (*SessionAdapter)(nil)

// NewSessionAdapter wraps session. A nil session is replaced by an empty map,
// so writes are kept for the life of the adapter.
func NewSessionAdapter(session map[string]string) *SessionAdapter {
	if session == nil {
		session = map[string]string{}
	}

	return &SessionAdapter{session: session}
}

// Get implements types.VisitorStore.
func (a *SessionAdapter) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := a.session[key]

	return v, ok, nil
}

// Set implements types.VisitorStore.
func (a *SessionAdapter) Set(_ context.Context, key, value string) error {
	a.session[key] = value

	return nil
}

// Delete implements types.VisitorStore.
func (a *SessionAdapter) Delete(_ context.Context, key string) error {
	delete(a.session, key)

	return nil
}

// Keys implements types.VisitorStore. Keys are returned sorted.
func (a *SessionAdapter) Keys(_ context.Context) ([]string, error) {
	return slices.Sorted(maps.Keys(a.session)), nil
}

// StoreAdapter keeps a visitor's record in the shared store under
// "<prefix><visitorID>:<key>". A ":" or "%" in the visitor ID is
// percent-escaped, so one visitor's prefix never covers another's keys.
type StoreAdapter struct {
	store  types.Store
	prefix string
}

var _ types.VisitorStore = (*StoreAdapter)(nil)

// DefaultKeyPrefix namespaces visitor records in the shared store.
const DefaultKeyPrefix = "visitor:"

// NewStoreAdapter scopes store to one visitor.
//
// Parameters:
//   - store: Shared store
//   - keyPrefix: Namespace prefix (DefaultKeyPrefix when empty)
//   - visitorID: Visitor identity
func NewStoreAdapter(store types.Store, keyPrefix, visitorID string) *StoreAdapter {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	return &StoreAdapter{store: store, prefix: keyPrefix + idEscaper.Replace(visitorID) + ":"}
}

var idEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Get implements types.VisitorStore.
func (a *StoreAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	return a.store.Get(ctx, a.prefix+key)
}

// Set implements types.VisitorStore.
func (a *StoreAdapter) Set(ctx context.Context, key, value string) error {
	return a.store.Set(ctx, a.prefix+key, value)
}

// Delete implements types.VisitorStore.
func (a *StoreAdapter) Delete(ctx context.Context, key string) error {
	return a.store.Delete(ctx, a.prefix+key)
}

// Keys implements types.VisitorStore.
func (a *StoreAdapter) Keys(ctx context.Context) ([]string, error) {
	full, err := a.store.Keys(ctx, a.prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, a.prefix))
	}

	return keys, nil
}
