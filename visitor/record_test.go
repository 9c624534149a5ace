package visitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/imlitech/split/internal/metrics"
	"github.com/imlitech/split/types"
)

// stubFinder serves a fixed set of experiments and counts lookups.
type stubFinder struct {
	experiments map[string]*types.Experiment
	lookups     int
	err         error
}

func (f *stubFinder) Find(_ context.Context, name string) (*types.Experiment, bool, error) {
	f.lookups++
	if f.err != nil {
		return nil, false, f.err
	}
	exp, ok := f.experiments[name]

	return exp, ok, nil
}

func started(name string, version int) *types.Experiment {
	return &types.Experiment{
		Name:         name,
		Version:      version,
		StartTime:    time.Now(),
		Alternatives: []types.Alternative{{Name: "blue", Weight: 1}, {Name: "red", Weight: 1}},
	}
}

func newRecord(session map[string]string, finder types.ExperimentFinder) *Record {
	return NewRecord("v-1", NewSessionAdapter(session), finder)
}

func TestRecord_Delegation(t *testing.T) {
	ctx := t.Context()
	session := map[string]string{"link_color": "blue"}
	r := newRecord(session, &stubFinder{})

	v, ok, err := r.Get(ctx, "link_color")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, session["link_color"], v)

	require.NoError(t, r.Set(ctx, "button", "big"))
	require.Equal(t, "big", session["button"])

	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"button", "link_color"}, keys)

	require.NoError(t, r.Delete(ctx, "button"))
	entries, err := r.Entries(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"link_color": "blue"}, entries)
	require.Equal(t, "v-1", r.ID())
}

func TestRecord_CleanupOldVersions(t *testing.T) {
	t.Run("removes old version key when experiment is unversioned", func(t *testing.T) {
		session := map[string]string{"link_color:1": "blue"}
		r := newRecord(session, &stubFinder{})

		require.NoError(t, r.CleanupOldVersions(t.Context(), &types.Experiment{Name: "link_color"}))

		keys, err := r.Keys(t.Context())
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	t.Run("keeps current and unversioned keys and drops other versions", func(t *testing.T) {
		session := map[string]string{
			"link_color:1":          "blue",
			"link_color:1:finished": "true",
			"link_color:2":          "red",
			"link_color:2:finished": "true",
			"link_color":            "blue",
			"link_color_v2":         "blue",
			"button":                "big",
		}
		r := newRecord(session, &stubFinder{})

		require.NoError(t, r.CleanupOldVersions(t.Context(), &types.Experiment{Name: "link_color", Version: 2}))

		require.Equal(t, map[string]string{
			"link_color:2":          "red",
			"link_color:2:finished": "true",
			"link_color":            "blue",
			"link_color_v2":         "blue",
			"button":                "big",
		}, session)
	})

	t.Run("keeps unversioned key of unversioned experiment", func(t *testing.T) {
		session := map[string]string{"link_color": "blue", "link_color:finished": "true"}
		r := newRecord(session, &stubFinder{})

		require.NoError(t, r.CleanupOldVersions(t.Context(), &types.Experiment{Name: "link_color"}))
		require.Len(t, session, 2)
	})

	t.Run("reports removals", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := metrics.NewPrometheus(reg, "split")
		r := NewRecord("v-1", NewSessionAdapter(map[string]string{"e:1": "a", "e:2": "a"}), &stubFinder{}, WithMetrics(m))

		require.NoError(t, r.CleanupOldVersions(t.Context(), &types.Experiment{Name: "e", Version: 3}))

		expected := `
# HELP split_visitor_cleanup_removed_keys_total Visitor keys removed by lazy cleanup, by reason.
# TYPE split_visitor_cleanup_removed_keys_total counter
split_visitor_cleanup_removed_keys_total{reason="old_version"} 2
`
		require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "split_visitor_cleanup_removed_keys_total"))
	})
}

func TestRecord_CleanupOldExperiments(t *testing.T) {
	t.Run("removes key if experiment is not found", func(t *testing.T) {
		session := map[string]string{"link_color": "blue"}
		r := newRecord(session, &stubFinder{})

		require.NoError(t, r.CleanupOldExperiments(t.Context()))
		require.Empty(t, session)
	})

	t.Run("removes key if experiment has a winner", func(t *testing.T) {
		exp := started("link_color", 0)
		exp.Winner = "red"
		session := map[string]string{"link_color": "blue", "link_color:finished": "true"}
		r := newRecord(session, &stubFinder{experiments: map[string]*types.Experiment{"link_color": exp}})

		require.NoError(t, r.CleanupOldExperiments(t.Context()))
		require.Empty(t, session)
	})

	t.Run("removes key if experiment has not started yet", func(t *testing.T) {
		exp := started("link_color", 0)
		exp.StartTime = time.Time{}
		session := map[string]string{"link_color": "blue"}
		r := newRecord(session, &stubFinder{experiments: map[string]*types.Experiment{"link_color": exp}})

		require.NoError(t, r.CleanupOldExperiments(t.Context()))
		require.Empty(t, session)
	})

	t.Run("keeps keys of running experiments", func(t *testing.T) {
		finder := &stubFinder{experiments: map[string]*types.Experiment{
			"link_color": started("link_color", 2),
		}}
		session := map[string]string{
			"link_color:2":          "blue",
			"link_color:2:finished": "true",
			"retired":               "x",
			"retired:3:finished":    "true",
		}
		r := newRecord(session, finder)

		require.NoError(t, r.CleanupOldExperiments(t.Context()))
		require.Equal(t, map[string]string{"link_color:2": "blue", "link_color:2:finished": "true"}, session)
		require.Equal(t, 2, finder.lookups, "one lookup per experiment")
	})

	t.Run("runs once per record", func(t *testing.T) {
		finder := &stubFinder{}
		session := map[string]string{"gone": "x"}
		r := newRecord(session, finder)

		require.NoError(t, r.CleanupOldExperiments(t.Context()))
		session["gone-again"] = "y"
		require.NoError(t, r.CleanupOldExperiments(t.Context()))

		require.Equal(t, map[string]string{"gone-again": "y"}, session)
	})

	t.Run("lookup errors surface", func(t *testing.T) {
		r := newRecord(map[string]string{"link_color": "blue"}, &stubFinder{err: types.ErrStoreUnavailable})

		require.ErrorIs(t, r.CleanupOldExperiments(t.Context()), types.ErrStoreUnavailable)
	})
}

func TestRecord_Flags(t *testing.T) {
	ctx := t.Context()
	exp := started("link_color", 1)
	session := map[string]string{"link_color:1": "red"}
	r := newRecord(session, &stubFinder{})

	alt, ok, err := r.Alternative(ctx, exp)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "red", alt)

	finished, err := r.IsFinished(ctx, exp)
	require.NoError(t, err)
	require.False(t, finished)

	require.NoError(t, r.MarkFinished(ctx, exp))
	require.Equal(t, FinishedValue, session["link_color:1:finished"])

	require.NoError(t, r.Reset(ctx, exp))
	_, ok = session["link_color:1"]
	require.False(t, ok)
}

func TestRecord_ActiveExperiments(t *testing.T) {
	decided := started("button", 0)
	decided.Winner = "red"
	finder := &stubFinder{experiments: map[string]*types.Experiment{
		"link_color": started("link_color", 1),
		"button":     decided,
		"headline":   started("headline", 0),
	}}
	r := newRecord(map[string]string{
		"link_color:1":       "red",
		"link_color":         "blue",
		"button":             "big",
		"headline":           "bold",
		"headline:finished":  "true",
		"retired_experiment": "x",
	}, finder)

	active, err := r.ActiveExperiments(t.Context())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"link_color": "red", "headline": "bold"}, active)
}
