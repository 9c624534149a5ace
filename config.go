package split

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imlitech/split/goals"
	"github.com/imlitech/split/store"
	"github.com/imlitech/split/strategy"
)

// Persistence modes for visitor records.
const (
	// PersistenceSession keeps visitor records in VisitorContext.Session.
	PersistenceSession = "session"

	// PersistenceStore keeps visitor records in the shared store under
	// "<VisitorKeyPrefix><visitorID>:".
	PersistenceStore = "store"
)

// DefaultDisableParam is the request parameter that turns experiments off
// for a single request.
const DefaultDisableParam = "SPLIT_DISABLE"

// defaultBots lists user agent fragments treated as robots.
var defaultBots = []string{
	"AdsBot-Google", "Baidu", "Baiduspider", "Bingbot", "bingbot", "Gigabot",
	"Googlebot", "facebookexternalhit", "LinkedInBot", "libwww-perl",
	"lwp-trivial", "msnbot", "Pinterest", "SitePoint", "Slurp", "Twitterbot",
	"Wget", "YandexBot", "bot", "crawler", "spider", "Yahoo! Slurp",
}

// DefaultRobotRegex matches the default bot list as whole words, plus user
// agents made only of non-word characters (including the empty one).
var DefaultRobotRegex = `(?i)\b(?:` + quoteAll(defaultBots) + `)\b|\A\W*\z`

func quoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}

	return strings.Join(quoted, "|")
}

// FailoverConfig controls how store outages are absorbed.
type FailoverConfig struct {
	// Enabled makes ABTest fall back to the control and ABFinished swallow
	// errors when the store is unreachable. The failover handler is called
	// with the cause.
	Enabled bool `yaml:"enabled"`

	// AllowParameterOverride re-applies request overrides and the disable
	// parameter during failover, without consulting the store.
	AllowParameterOverride bool `yaml:"allowParameterOverride"`
}

// Config is the configuration for the Manager.
type Config struct {
	// Disabled turns every experiment off: ABTest returns the control without
	// touching the store and ABFinished is a no-op.
	Disabled bool `yaml:"disabled"`

	// Persistence selects where visitor records live: "session" (default) or "store".
	Persistence string `yaml:"persistence"`

	// VisitorKeyPrefix namespaces visitor records in the shared store (default: "visitor:").
	VisitorKeyPrefix string `yaml:"visitorKeyPrefix"`

	// StoreOverride persists alternatives forced by a request parameter.
	StoreOverride bool `yaml:"storeOverride"`

	// StartManually leaves new experiments unstarted (every visitor sees the
	// control) until they are started explicitly.
	StartManually bool `yaml:"startManually"`

	// DisableParam is the request parameter acting as a per-request kill
	// switch (default: "SPLIT_DISABLE").
	DisableParam string `yaml:"disableParam"`

	// Failover controls store outage handling.
	Failover FailoverConfig `yaml:"failover"`

	// IgnoreIPAddresses excludes visitors by IP. An entry wrapped in slashes
	// ("/^10\\./") is a regular expression; anything else matches exactly.
	IgnoreIPAddresses []string `yaml:"ignoreIpAddresses"`

	// RobotRegex excludes visitors whose user agent matches (default: DefaultRobotRegex).
	RobotRegex string `yaml:"robotRegex"`

	// DefaultAlgorithm names the selector used by experiments that do not
	// pick one (default: "weighted_random").
	DefaultAlgorithm string `yaml:"defaultAlgorithm"`

	// Experiments holds static experiment definitions, keyed by name.
	Experiments map[string]ExperimentDefinition `yaml:"experiments"`

	// Store configures the NATS JetStream KeyValue store.
	Store store.NATSConfig `yaml:"store"`
}

// Enabled reports whether experiments are on.
func (cfg *Config) Enabled() bool {
	return !cfg.Disabled
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	cfg := Config{
		Persistence:      PersistenceSession,
		VisitorKeyPrefix: "visitor:",
		DisableParam:     DefaultDisableParam,
		RobotRegex:       DefaultRobotRegex,
		DefaultAlgorithm: strategy.AlgorithmWeightedRandom,
	}
	cfg.Store.SetDefaults()

	return cfg
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Persistence == "" {
		cfg.Persistence = defaults.Persistence
	}
	if cfg.VisitorKeyPrefix == "" {
		cfg.VisitorKeyPrefix = defaults.VisitorKeyPrefix
	}
	if cfg.DisableParam == "" {
		cfg.DisableParam = defaults.DisableParam
	}
	if cfg.RobotRegex == "" {
		cfg.RobotRegex = defaults.RobotRegex
	}
	if cfg.DefaultAlgorithm == "" {
		cfg.DefaultAlgorithm = defaults.DefaultAlgorithm
	}
	cfg.Store.SetDefaults()
}

// Validate checks configuration constraints.
//
// Rules:
//   - Persistence is "session" or "store"
//   - RobotRegex and every "/.../" ignored IP compile
//   - DefaultAlgorithm and every experiment algorithm are known
//   - Every static experiment has parseable alternatives and goals
//
// Returns:
//   - error: ErrInvalidConfig wrapped with the first violation, nil if valid
func (cfg *Config) Validate() error {
	switch cfg.Persistence {
	case PersistenceSession, PersistenceStore:
	default:
		return fmt.Errorf("%w: persistence must be %q or %q, got %q",
			ErrInvalidConfig, PersistenceSession, PersistenceStore, cfg.Persistence)
	}

	if _, err := regexp.Compile(cfg.RobotRegex); err != nil {
		return fmt.Errorf("%w: robotRegex: %w", ErrInvalidConfig, err)
	}
	for _, ip := range cfg.IgnoreIPAddresses {
		if pattern, ok := ipPattern(ip); ok {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("%w: ignoreIpAddresses %s: %w", ErrInvalidConfig, ip, err)
			}
		}
	}

	if _, err := strategy.Lookup(cfg.DefaultAlgorithm); err != nil {
		return fmt.Errorf("%w: defaultAlgorithm: %w", ErrInvalidConfig, err)
	}

	for name, def := range cfg.Experiments {
		if name == "" || strings.Contains(name, ":") {
			return fmt.Errorf("%w: experiment name %q must be non-empty and contain no ':'", ErrInvalidConfig, name)
		}
		alts, err := ParseAlternatives(def.Alternatives)
		if err != nil {
			return fmt.Errorf("%w: experiment %s: %w", ErrInvalidConfig, name, err)
		}
		if len(alts) == 0 {
			return fmt.Errorf("%w: experiment %s has no alternatives", ErrInvalidConfig, name)
		}
		if def.Algorithm != "" {
			if _, err := strategy.Lookup(def.Algorithm); err != nil {
				return fmt.Errorf("%w: experiment %s: %w", ErrInvalidConfig, name, err)
			}
		}
		if err := goals.New(nil, name, def.Goals).Validate(); err != nil {
			return fmt.Errorf("%w: experiment %s: %w", ErrInvalidConfig, name, err)
		}
	}

	return nil
}

// ValidateWithWarnings logs warnings for legal but suspicious settings.
//
// This is called after Validate() in NewManager() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.Failover.AllowParameterOverride && !cfg.Failover.Enabled {
		logger.Warn("failover.allowParameterOverride has no effect while failover is disabled")
	}

	if cfg.Persistence == PersistenceStore && cfg.Store.Bucket == "" {
		logger.Warn("store persistence without a bucket name", "default", "split")
	}

	for name, def := range cfg.Experiments {
		if len(def.Alternatives) == 1 {
			logger.Warn("experiment has a single alternative, every visitor sees the control", "experiment", name)
		}
	}
}

// TestConfig returns a configuration for tests: store persistence so that
// records are visible through the store, and failover off so errors surface.
//
// Returns:
//   - Config: Configuration for tests
//
// Example:
//
//	cfg := split.TestConfig()
//	cfg.Failover.Enabled = true
//	mgr, err := split.NewManager(cfg, store.NewMemory())
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.Persistence = PersistenceStore
	cfg.DefaultAlgorithm = strategy.AlgorithmWeightedHash

	return cfg
}

// ParseConfig decodes a YAML configuration, applies defaults and validates it.
//
// Parameters:
//   - data: YAML document
//
// Returns:
//   - Config: Decoded configuration
//   - error: Decode or validation error
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ipPattern returns the regular expression of a "/.../" ignored IP entry.
func ipPattern(entry string) (string, bool) {
	if len(entry) >= 2 && strings.HasPrefix(entry, "/") && strings.HasSuffix(entry, "/") {
		return entry[1 : len(entry)-1], true
	}

	return "", false
}
