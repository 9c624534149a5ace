package split

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	splittest "github.com/imlitech/split/testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.True(t, cfg.Enabled())
	require.Equal(t, PersistenceSession, cfg.Persistence)
	require.Equal(t, "visitor:", cfg.VisitorKeyPrefix)
	require.Equal(t, "SPLIT_DISABLE", cfg.DisableParam)
	require.Equal(t, DefaultRobotRegex, cfg.RobotRegex)
	require.Equal(t, "weighted_random", cfg.DefaultAlgorithm)
	require.False(t, cfg.Failover.Enabled)
	require.Equal(t, "split", cfg.Store.Bucket)
	require.Equal(t, 2*time.Second, cfg.Store.OperationTimeout)
	require.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)

		require.Equal(t, PersistenceSession, cfg.Persistence)
		require.Equal(t, DefaultDisableParam, cfg.DisableParam)
		require.Equal(t, 10, cfg.Store.MaxRetries)
		require.NoError(t, cfg.Validate())
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			Persistence:      PersistenceStore,
			VisitorKeyPrefix: "u:",
			DisableParam:     "NO_AB",
			RobotRegex:       "(?i)bot",
			DefaultAlgorithm: "round_robin",
		}
		SetDefaults(&cfg)

		require.Equal(t, PersistenceStore, cfg.Persistence)
		require.Equal(t, "u:", cfg.VisitorKeyPrefix)
		require.Equal(t, "NO_AB", cfg.DisableParam)
		require.Equal(t, "(?i)bot", cfg.RobotRegex)
		require.Equal(t, "round_robin", cfg.DefaultAlgorithm)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown persistence", func(c *Config) { c.Persistence = "cookie" }},
		{"bad robot regex", func(c *Config) { c.RobotRegex = "(" }},
		{"bad ip pattern", func(c *Config) { c.IgnoreIPAddresses = []string{"/[/"} }},
		{"unknown algorithm", func(c *Config) { c.DefaultAlgorithm = "coin_flip" }},
		{"experiment without alternatives", func(c *Config) {
			c.Experiments = map[string]ExperimentDefinition{"link_color": {}}
		}},
		{"experiment with malformed alternative", func(c *Config) {
			c.Experiments = map[string]ExperimentDefinition{"link_color": {Alternatives: []any{"blue", 3}}}
		}},
		{"experiment with string goals", func(c *Config) {
			c.Experiments = map[string]ExperimentDefinition{"link_color": {Alternatives: []any{"blue"}, Goals: "purchase"}}
		}},
		{"experiment name with colon", func(c *Config) {
			c.Experiments = map[string]ExperimentDefinition{"link:color": {Alternatives: []any{"blue"}}}
		}},
		{"experiment with unknown algorithm", func(c *Config) {
			c.Experiments = map[string]ExperimentDefinition{"link_color": {Alternatives: []any{"blue"}, Algorithm: "x"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfig_ValidateWithWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Failover.AllowParameterOverride = true
	cfg.Experiments = map[string]ExperimentDefinition{"solo": {Alternatives: []any{"only"}}}

	cfg.ValidateWithWarnings(splittest.NewTestLogger(t))
}

func TestParseConfig(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		data := []byte(`
persistence: store
storeOverride: true
failover:
  enabled: true
  allowParameterOverride: true
ignoreIpAddresses:
  - 10.0.0.1
  - /^192\.168\./
experiments:
  link_color:
    alternatives:
      - name: blue
        percent: 30
      - name: red
        percent: 70
    goals: [purchase, [signup]]
    metric: conversion
    resettable: false
    metadata:
      red:
        text: Red
  button:
    alternatives: [big, small]
store:
  bucket: ab
  operationTimeout: 500ms
`)

		cfg, err := ParseConfig(data)
		require.NoError(t, err)
		require.Equal(t, PersistenceStore, cfg.Persistence)
		require.True(t, cfg.StoreOverride)
		require.True(t, cfg.Failover.Enabled)
		require.True(t, cfg.Failover.AllowParameterOverride)
		require.Equal(t, []string{"10.0.0.1", `/^192\.168\./`}, cfg.IgnoreIPAddresses)
		require.Equal(t, "ab", cfg.Store.Bucket)
		require.Equal(t, 500*time.Millisecond, cfg.Store.OperationTimeout)
		require.Equal(t, DefaultDisableParam, cfg.DisableParam)

		def := cfg.Experiments["link_color"]
		require.Equal(t, "conversion", def.Metric)
		require.False(t, def.IsResettable())
		require.True(t, cfg.Experiments["button"].IsResettable())

		alts, err := ParseAlternatives(def.Alternatives)
		require.NoError(t, err)
		require.Equal(t, []Alternative{{Name: "blue", Weight: 30}, {Name: "red", Weight: 70}}, alts)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseConfig([]byte("persistence: [unclosed"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := ParseConfig([]byte("persistence: cookie"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestDefaultRobotRegex(t *testing.T) {
	re := regexp.MustCompile(DefaultRobotRegex)

	for _, ua := range []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"Wget/1.21",
		"some crawler",
		"",
		"  ",
	} {
		require.True(t, re.MatchString(ua), ua)
	}

	for _, ua := range []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Safari/605.1.15",
		"robotics-fan",
	} {
		require.False(t, re.MatchString(ua), ua)
	}
}
