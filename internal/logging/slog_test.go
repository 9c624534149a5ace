package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *SlogLogger)
		level string
	}{
		{"debug", func(l *SlogLogger) { l.Debug("trial chosen", "experiment", "link_color") }, "level=DEBUG"},
		{"info", func(l *SlogLogger) { l.Info("trial chosen", "experiment", "link_color") }, "level=INFO"},
		{"warn", func(l *SlogLogger) { l.Warn("trial chosen", "experiment", "link_color") }, "level=WARN"},
		{"error", func(l *SlogLogger) { l.Error("trial chosen", "experiment", "link_color") }, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewSlogText(buf, slog.LevelDebug)

			tt.log(logger)

			out := buf.String()
			require.Contains(t, out, "trial chosen")
			require.Contains(t, out, "experiment=link_color")
			require.Contains(t, out, tt.level)
		})
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSlogText(buf, slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	require.Empty(t, buf.String())

	logger.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestSlogLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSlogText(buf, slog.LevelInfo).With("visitor", "v-1")

	logger.Info("finished")
	require.Contains(t, buf.String(), "visitor=v-1")
}

func TestNewSlog_NilUsesDefault(t *testing.T) {
	logger := NewSlog(nil)

	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()

	require.NotPanics(t, func() {
		logger.Debug("x", "k", 1)
		logger.Info("x")
		logger.Warn("x", "odd")
		logger.Error("x")
		logger.Fatal("x")
	})
}
