package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/imlitech/split/internal/metrics"
	splittest "github.com/imlitech/split/testing"
	"github.com/imlitech/split/types"
)

func TestNATS_Conformance(t *testing.T) {
	_, nc := splittest.StartEmbeddedNATS(t)

	n := 0
	runConformance(t, func(t *testing.T) types.Store {
		n++
		kv := splittest.CreateJetStreamKV(t, nc, fmt.Sprintf("split-conf-%d", n))

		return NewNATSFromKV(kv, NATSConfig{})
	})
}

func TestNewNATS_CreatesBucket(t *testing.T) {
	_, nc := splittest.StartEmbeddedNATS(t)
	ctx := t.Context()

	s, err := NewNATS(ctx, nc, NATSConfig{Bucket: "split-app"}, WithNATSLogger(splittest.NewTestLogger(t)))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "link_color", "red"))

	again, err := NewNATS(ctx, nc, NATSConfig{Bucket: "split-app"})
	require.NoError(t, err)
	v, found, err := again.Get(ctx, "link_color")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "red", v)
}

func TestNewNATS_NilConnection(t *testing.T) {
	_, err := NewNATS(t.Context(), nil, NATSConfig{})
	require.ErrorIs(t, err, types.ErrStoreRequired)
}

func TestNATS_ClosedConnectionIsUnavailable(t *testing.T) {
	_, nc := splittest.StartEmbeddedNATS(t)
	ctx := t.Context()

	s, err := NewNATS(ctx, nc, NATSConfig{Bucket: "split-closed", OperationTimeout: 500 * time.Millisecond})
	require.NoError(t, err)

	nc.Close()

	_, _, err = s.Get(ctx, "link_color")
	require.ErrorIs(t, err, types.ErrStoreUnavailable)
	require.True(t, types.IsStoreUnavailable(err))

	require.ErrorIs(t, s.Set(ctx, "link_color", "red"), types.ErrStoreUnavailable)

	_, err = s.IncrBy(ctx, "n", 1)
	require.ErrorIs(t, err, types.ErrStoreUnavailable)
}

func TestNATS_RecordsStoreMetrics(t *testing.T) {
	_, nc := splittest.StartEmbeddedNATS(t)
	ctx := t.Context()

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg, "split")

	s, err := NewNATS(ctx, nc, NATSConfig{Bucket: "split-metrics"}, WithNATSMetrics(m))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "a", "1"))
	_, _, err = s.Get(ctx, "a")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "split_store_operations_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestKeyEncoding(t *testing.T) {
	tests := []string{
		"link_color",
		"link_color:2:finished",
		"visitor:v-1:link_color",
		"trailing:",
		":leading",
		"a::b",
		"spaces and.dots*>",
	}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			encoded := encodeKey(key)
			require.Regexp(t, `^[A-Za-z0-9_\-=.]+$`, encoded)

			decoded, err := decodeKey(encoded)
			require.NoError(t, err)
			require.Equal(t, key, decoded)
		})
	}

	_, err := decodeKey("not base64!")
	require.ErrorIs(t, err, types.ErrInvalidKey)
}

func TestKeyFilter(t *testing.T) {
	require.Equal(t, ">", keyFilter(""))
	require.Equal(t, ">", keyFilter("visitor"))
	require.Equal(t, encodeSegment("visitor")+".>", keyFilter("visitor:"))
	require.Equal(t, encodeSegment("visitor")+"."+encodeSegment("v-1")+".>", keyFilter("visitor:v-1:"))
}
