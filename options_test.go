package split

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	logger.Warn("store failure absorbed by failover", "operation", "assign")
	require.Contains(t, buf.String(), "operation=assign")

	require.NotNil(t, NewSlogLogger(nil))
}

func TestNewZapLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Debug("dropped")
	logger.Info("assigned", "experiment", "link_color")
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "link_color", logs.All()[0].ContextMap()["experiment"])

	require.NotPanics(t, func() { NewZapLogger(nil).Info("discarded") })
}
