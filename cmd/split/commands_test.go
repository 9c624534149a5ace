package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imlitech/split"
	"github.com/imlitech/split/trial"
)

func TestWriteStats(t *testing.T) {
	exp := &split.Experiment{
		Name:         "link_color",
		Alternatives: []split.Alternative{{Name: "blue", Weight: 1}, {Name: "red", Weight: 1}},
		Version:      2,
		Winner:       "red",
		StartTime:    time.Now(),
	}
	stats := []trial.AlternativeStats{
		{Name: "blue", Participants: 10, Completed: 2, Goals: map[string]int64{}},
		{Name: "red", Participants: 12, Completed: 5, Goals: map[string]int64{"signup": 1, "purchase": 4}},
	}

	var buf bytes.Buffer
	writeStats(&buf, exp, stats)

	out := buf.String()
	require.Contains(t, out, "version 2")
	require.Contains(t, out, "winner")
	require.Regexp(t, `red\s+12\s+5\s+purchase=4 signup=1`, out)
	require.Regexp(t, `blue\s+10\s+2`, out)
}

func TestCommandTree(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"assign", "finish", "stats", "goals", "list", "winner", "reset", "delete", "cleanup", "visitor"} {
		require.True(t, names[want], "missing command %s", want)
	}

	require.NotNil(t, finishCmd.Flags().Lookup("goal"))
	require.NotNil(t, finishCmd.Flags().Lookup("no-reset"))
}
