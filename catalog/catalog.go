// Package catalog resolves, persists and administers experiments.
//
// An experiment's persisted state lives in the shared store:
//
//	<name>:definition   JSON document (alternatives, version, winner, start time, ...)
//	<name>:goals        ordered goal list (see package goals)
//	metric:<metric>     experiment names grouped under a composite metric
//
// Changing an experiment's alternatives or goals bumps its version, which
// moves every visitor onto fresh "<name>:<version>" keys.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/imlitech/split/goals"
	"github.com/imlitech/split/internal/logging"
	"github.com/imlitech/split/types"
	"github.com/imlitech/split/visitor"
)

// DefinitionSuffix is appended to the experiment name to form the definition key.
const DefinitionSuffix = "definition"

// Counter key suffixes, as written by package trial.
const (
	participantSuffix = "participant_count"
	completedSuffix   = "completed_count"
)

// DefinitionKey returns the store key of an experiment's persisted definition.
func DefinitionKey(name string) string {
	return name + ":" + DefinitionSuffix
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithDefinitions sets the static definition source.
func WithDefinitions(src types.DefinitionSource) Option {
	return func(c *Catalog) {
		c.defs = src
	}
}

// WithStartManually leaves new experiments unstarted until Start is called.
func WithStartManually(manual bool) Option {
	return func(c *Catalog) {
		c.startManually = manual
	}
}

// WithClock overrides the time source used for start times.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// WithVisitorKeyPrefix sets the namespace of visitor records, which listing
// and deletion never touch (default: visitor.DefaultKeyPrefix).
func WithVisitorKeyPrefix(prefix string) Option {
	return func(c *Catalog) {
		if prefix != "" {
			c.visitorPrefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l types.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// Catalog is the experiment catalog.
//
// It is safe for concurrent use; all state lives in the store.
type Catalog struct {
	store         types.Store
	defs          types.DefinitionSource
	startManually bool
	visitorPrefix string
	now           func() time.Time
	logger        types.Logger
}

var _ types.ExperimentFinder = (*Catalog)(nil)

// New creates a catalog over store.
//
// Parameters:
//   - store: Shared store
//   - opts: Optional definition source, start policy, clock and logger
//
// Returns:
//   - *Catalog: Initialized catalog
func New(store types.Store, opts ...Option) *Catalog {
	c := &Catalog{
		store:         store,
		visitorPrefix: visitor.DefaultKeyPrefix,
		now:           time.Now,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Definitions returns the static definition source (may be nil).
func (c *Catalog) Definitions() types.DefinitionSource {
	return c.defs
}

// Find loads a persisted experiment.
//
// Parameters:
//   - ctx: Context
//   - name: Experiment name
//
// Returns:
//   - *types.Experiment: The stored experiment
//   - bool: false if no definition is stored under name
//   - error: Store or decode error
func (c *Catalog) Find(ctx context.Context, name string) (*types.Experiment, bool, error) {
	raw, found, err := c.store.Get(ctx, DefinitionKey(name))
	if err != nil {
		return nil, false, fmt.Errorf("find experiment %s: %w", name, err)
	}
	if !found {
		return nil, false, nil
	}

	var exp types.Experiment
	if err := json.Unmarshal([]byte(raw), &exp); err != nil {
		return nil, false, fmt.Errorf("decode experiment %s: %w", name, err)
	}

	stored, err := goals.New(c.store, name, nil).LoadFromStore(ctx)
	if err != nil {
		return nil, false, err
	}
	exp.Goals = stored

	return &exp, true, nil
}

// FindOrInitialize resolves the experiment an ABTest call refers to: it
// builds the experiment with Initialize and merges persisted state (version,
// winner, start time) with Merge. Nothing is written.
//
// Parameters:
//   - ctx: Context
//   - desc: Experiment descriptor (name plus inline goals)
//   - control: Control alternative descriptor; a []any is split into control and alternatives
//   - alternatives: Additional alternative descriptors
//
// Returns:
//   - *types.Experiment: The resolved experiment
//   - error: types.ErrExperimentNotFound without alternatives or definition,
//     types.ErrInvalidDescriptor for malformed alternatives, or a store error
func (c *Catalog) FindOrInitialize(
	ctx context.Context,
	desc types.MetricDescriptor,
	control any,
	alternatives ...any,
) (*types.Experiment, error) {
	exp, err := c.Initialize(desc, control, alternatives...)
	if err != nil {
		return nil, err
	}
	if err := c.Merge(ctx, exp); err != nil {
		return nil, err
	}

	return exp, nil
}

// Initialize builds an experiment from call arguments without touching the
// store.
//
// The descriptor name may carry a ":<version>" suffix, which is ignored.
// Alternatives passed by the caller win; without them the static definition
// supplies alternatives, goals, metric, resettable flag, algorithm and
// metadata. Names inside the visitor record namespace are rejected.
func (c *Catalog) Initialize(desc types.MetricDescriptor, control any, alternatives ...any) (*types.Experiment, error) {
	name, _, _ := strings.Cut(desc.Name, ":")
	if name == "" {
		return nil, fmt.Errorf("%w: empty experiment name", types.ErrInvalidDescriptor)
	}
	if strings.HasPrefix(name+":", c.visitorPrefix) || strings.HasPrefix(c.visitorPrefix, name+":") {
		return nil, fmt.Errorf("%w: experiment name %s is reserved for visitor records", types.ErrInvalidDescriptor, name)
	}

	if list, ok := control.([]any); ok && len(alternatives) == 0 {
		control, alternatives = nil, list
		if len(list) > 0 {
			control, alternatives = list[0], list[1:]
		}
	}

	raw := alternatives
	if control != nil {
		raw = append([]any{control}, alternatives...)
	}

	exp := &types.Experiment{
		Name:       name,
		Goals:      slices.Clone(desc.Goals),
		Resettable: true,
	}

	if len(raw) > 0 {
		alts, err := types.ParseAlternatives(raw)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", name, err)
		}
		exp.Alternatives = alts
	} else if err := c.applyDefinition(exp); err != nil {
		return nil, err
	}

	if exp.Goals == nil {
		exp.Goals = []string{}
	}

	return exp, nil
}

// Merge copies the persisted version, winner, start time and metric of exp
// into exp. An experiment that was never saved is left unchanged.
func (c *Catalog) Merge(ctx context.Context, exp *types.Experiment) error {
	stored, found, err := c.Find(ctx, exp.Name)
	if err != nil {
		return err
	}
	if found {
		exp.Version = stored.Version
		exp.Winner = stored.Winner
		exp.StartTime = stored.StartTime
		if exp.Metric == "" {
			exp.Metric = stored.Metric
		}
	}

	return nil
}

func (c *Catalog) applyDefinition(exp *types.Experiment) error {
	if c.defs == nil {
		return fmt.Errorf("%w: %s", types.ErrExperimentNotFound, exp.Name)
	}

	def, ok := c.defs.Lookup(exp.Name)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrExperimentNotFound, exp.Name)
	}

	alts, err := types.ParseAlternatives(def.Alternatives)
	if err != nil {
		return fmt.Errorf("experiment %s: %w", exp.Name, err)
	}

	exp.Alternatives = alts
	exp.Goals = goals.New(c.store, exp.Name, nil).LoadFromDefinitions(c.defs)
	exp.Metric = def.Metric
	exp.Resettable = def.IsResettable()
	exp.Algorithm = def.Algorithm
	exp.Metadata = def.Metadata

	return nil
}

// Save persists exp.
//
// A new experiment is stored with a start time (unless starting manually),
// its goals and its metric membership. An existing experiment whose
// alternatives or goals changed is reset: counters are cleared, the winner
// is dropped and the version is bumped. exp is updated in place.
//
// Parameters:
//   - ctx: Context
//   - exp: Experiment to persist
//
// Returns:
//   - error: types.ErrInvalidExperiment/ErrUnknownAlternative, or a store error
func (c *Catalog) Save(ctx context.Context, exp *types.Experiment) error {
	if err := exp.Validate(); err != nil {
		return err
	}
	if exp.Goals == nil {
		exp.Goals = []string{}
	}

	stored, found, err := c.Find(ctx, exp.Name)
	if err != nil {
		return err
	}

	switch {
	case !found:
		if !c.startManually && exp.StartTime.IsZero() {
			exp.StartTime = c.now().UTC()
		}
		if err := c.addToMetric(ctx, exp); err != nil {
			return err
		}
		if err := c.saveGoals(ctx, exp); err != nil {
			return err
		}

		c.logger.Info("experiment created", "experiment", exp.Name, "alternatives", exp.AlternativeNames())

	case configurationChanged(stored, exp):
		exp.Version = stored.Version
		exp.StartTime = stored.StartTime
		if err := c.clearCounters(ctx, stored); err != nil {
			return err
		}
		exp.Winner = ""
		exp.Version++
		if err := c.writeDefinition(ctx, exp); err != nil {
			return err
		}
		if err := c.saveGoals(ctx, exp); err != nil {
			return err
		}

		c.logger.Info("experiment configuration changed", "experiment", exp.Name, "version", exp.Version)

		return nil

	default:
		if stored.Version == exp.Version && stored.Winner == exp.Winner &&
			stored.StartTime.Equal(exp.StartTime) && stored.Metric == exp.Metric &&
			stored.Resettable == exp.Resettable && stored.Algorithm == exp.Algorithm {
			return nil
		}
	}

	return c.writeDefinition(ctx, exp)
}

// Start records the start time of an experiment created with start-manually.
func (c *Catalog) Start(ctx context.Context, exp *types.Experiment) error {
	exp.StartTime = c.now().UTC()

	return c.writeDefinition(ctx, exp)
}

// SetWinner records the winning alternative.
//
// Returns:
//   - error: types.ErrUnknownAlternative if exp has no such alternative
func (c *Catalog) SetWinner(ctx context.Context, exp *types.Experiment, alternative string) error {
	if _, ok := exp.Alternative(alternative); !ok {
		return fmt.Errorf("%w: %s has no alternative %s", types.ErrUnknownAlternative, exp.Name, alternative)
	}
	exp.Winner = alternative

	return c.writeDefinition(ctx, exp)
}

// ResetWinner clears the winning alternative.
func (c *Catalog) ResetWinner(ctx context.Context, exp *types.Experiment) error {
	exp.Winner = ""

	return c.writeDefinition(ctx, exp)
}

// Reset clears the counters of the current version, drops the winner and
// bumps the version so every visitor is re-enrolled.
func (c *Catalog) Reset(ctx context.Context, exp *types.Experiment) error {
	if err := c.clearCounters(ctx, exp); err != nil {
		return err
	}

	exp.Winner = ""
	exp.Version++

	return c.writeDefinition(ctx, exp)
}

// Delete removes an experiment with its goals, counters of every version and
// definition. Keys of other experiments, metric lists and visitor records
// sharing the "<name>:" prefix are left alone. Deleting a missing experiment
// is not an error.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	keys, err := c.store.Keys(ctx, name+":")
	if err != nil {
		return fmt.Errorf("delete experiment %s: %w", name, err)
	}
	for _, key := range keys {
		if strings.HasPrefix(key, c.visitorPrefix) || !ownedKey(name, key) {
			continue
		}
		if err := c.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}

	c.logger.Info("experiment deleted", "experiment", name)

	return nil
}

// Names lists every persisted experiment, sorted.
func (c *Catalog) Names(ctx context.Context) ([]string, error) {
	keys, err := c.store.Keys(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}

	names := make([]string, 0)
	for _, key := range keys {
		if name, ok := strings.CutSuffix(key, ":"+DefinitionSuffix); ok && !strings.HasPrefix(key, c.visitorPrefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	return names, nil
}

func (c *Catalog) writeDefinition(ctx context.Context, exp *types.Experiment) error {
	doc := *exp
	doc.Goals = nil

	raw, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode experiment %s: %w", exp.Name, err)
	}
	if err := c.store.Set(ctx, DefinitionKey(exp.Name), string(raw)); err != nil {
		return fmt.Errorf("save experiment %s: %w", exp.Name, err)
	}

	return nil
}

func (c *Catalog) saveGoals(ctx context.Context, exp *types.Experiment) error {
	if _, err := goals.New(c.store, exp.Name, exp.Goals).Save(ctx); err != nil {
		return err
	}

	return nil
}

// clearCounters deletes the per-alternative counters of exp's current version.
func (c *Catalog) clearCounters(ctx context.Context, exp *types.Experiment) error {
	for _, alt := range exp.Alternatives {
		prefix := exp.Key() + ":" + alt.Name + ":"
		keys, err := c.store.Keys(ctx, prefix)
		if err != nil {
			return fmt.Errorf("list %s*: %w", prefix, err)
		}
		for _, key := range keys {
			if strings.HasPrefix(key, c.visitorPrefix) || !ownedKey(exp.Name, key) {
				continue
			}
			if err := c.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
	}

	return nil
}

// ownedKey reports whether key is the definition, the goals list or a
// counter ("[<version>:]<alternative>:participant_count" or
// "[<version>:]<alternative>:completed_count[:<goal>]") of experiment name.
func ownedKey(name, key string) bool {
	rest, ok := strings.CutPrefix(key, name+":")
	if !ok {
		return false
	}
	if rest == DefinitionSuffix || rest == goals.KeySuffix {
		return true
	}

	parts := strings.Split(rest, ":")
	if len(parts) > 2 && isVersion(parts[0]) && isCounter(parts[2:]) {
		return true
	}

	return len(parts) > 1 && isCounter(parts[1:])
}

func isCounter(parts []string) bool {
	switch parts[0] {
	case participantSuffix:
		return len(parts) == 1
	case completedSuffix:
		return len(parts) <= 2
	}

	return false
}

func isVersion(s string) bool {
	v, err := strconv.Atoi(s)

	return err == nil && v > 0
}

func configurationChanged(stored, exp *types.Experiment) bool {
	return !slices.Equal(stored.Alternatives, exp.Alternatives) || !slices.Equal(stored.Goals, exp.Goals)
}
