package testing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatKeyValues(t *testing.T) {
	require.Empty(t, formatKeyValues(nil))
	require.Equal(t, " experiment=link_color alternative=red", formatKeyValues([]any{"experiment", "link_color", "alternative", "red"}))
	require.Equal(t, " dangling=<missing>", formatKeyValues([]any{"dangling"}))
}

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)

	require.NotPanics(t, func() {
		logger.Debug("debug", "k", "v")
		logger.Info("info")
		logger.Warn("warn", "k", 1)
		logger.Error("error")
	})
}
