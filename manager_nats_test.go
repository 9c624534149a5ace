package split

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imlitech/split/store"
	splittest "github.com/imlitech/split/testing"
	"github.com/imlitech/split/trial"
)

func newNATSManager(t *testing.T, cfg Config, opts ...Option) (*Manager, *store.NATS, *nats.Conn) {
	t.Helper()

	_, nc := splittest.StartEmbeddedNATS(t)
	cfg.Store.MaxRetries = 50
	cfg.Store.OperationTimeout = time.Second

	s, err := store.NewNATS(t.Context(), nc, cfg.Store, store.WithNATSLogger(splittest.NewTestLogger(t)))
	require.NoError(t, err)

	return newManager(t, cfg, s, opts...), s, nc
}

func TestManager_NATSStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	t.Run("concurrent visitors are each counted once", func(t *testing.T) {
		mgr, s, _ := newNATSManager(t, TestConfig())
		ctx := t.Context()

		_, err := mgr.ABTest(ctx, &VisitorContext{ID: "warmup"}, "link_color", "blue", "red")
		require.NoError(t, err)

		const workers, perWorker = 4, 5
		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perWorker {
					vc := &VisitorContext{ID: "v-" + strconv.Itoa(w) + "-" + strconv.Itoa(i)}
					first, err := mgr.ABTest(ctx, vc, "link_color", "blue", "red")
					if !assert.NoError(t, err) {
						return
					}
					again, err := mgr.ABTest(ctx, vc, "link_color", "blue", "red")
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, first.Name(), again.Name())
				}
			}()
		}
		wg.Wait()

		exp, found, err := mgr.Catalog().Find(ctx, "link_color")
		require.NoError(t, err)
		require.True(t, found)

		stats, err := trial.LoadStats(ctx, s, exp)
		require.NoError(t, err)

		var total int64
		for _, st := range stats {
			total += st.Participants
		}
		require.Equal(t, int64(workers*perWorker+1), total)
	})

	t.Run("finish with goals survives a round trip", func(t *testing.T) {
		mgr, s, _ := newNATSManager(t, TestConfig(), WithSelector(&pickSelector{name: "red"}))
		ctx := t.Context()
		vc := &VisitorContext{ID: "visitor-1"}

		_, err := mgr.ABTest(ctx, vc, WithGoals("link_color", "purchase", "signup"), "blue", "red")
		require.NoError(t, err)
		require.NoError(t, mgr.ABFinished(ctx, vc, WithGoals("link_color", "purchase"), WithReset(false)))

		require.Equal(t, "1", counter(t, s, "link_color:red:completed_count:purchase"))
		active, err := mgr.ActiveExperiments(ctx, vc)
		require.NoError(t, err)
		require.Equal(t, map[string]string{"link_color": "red"}, active)
	})

	t.Run("closed connection falls back to control", func(t *testing.T) {
		cfg := TestConfig()
		cfg.Failover.Enabled = true

		var failovers int
		mgr, _, nc := newNATSManager(t, cfg, WithHooks(&Hooks{
			OnFailover: func(_ context.Context, _ error) error { failovers++; return nil },
		}))
		ctx := t.Context()
		vc := &VisitorContext{ID: "visitor-1"}

		_, err := mgr.ABTest(ctx, vc, "link_color", "blue", "red")
		require.NoError(t, err)

		nc.Close()

		asg, err := mgr.ABTest(ctx, vc, "link_color", "blue", "red")
		require.NoError(t, err)
		require.Equal(t, "blue", asg.Name())
		require.NotNil(t, asg.Fallback)
		require.Equal(t, FallbackStoreUnavailable, asg.Fallback.Reason)
		require.ErrorIs(t, asg.Fallback.Err, ErrStoreUnavailable)

		require.NoError(t, mgr.ABFinished(ctx, vc, "link_color"))
		require.Equal(t, 2, failovers)
	})
}
