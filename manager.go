package split

import (
	"context"

	"github.com/google/uuid"

	"github.com/imlitech/split/catalog"
	"github.com/imlitech/split/internal/hooks"
	"github.com/imlitech/split/internal/logging"
	"github.com/imlitech/split/internal/metrics"
	"github.com/imlitech/split/source"
	"github.com/imlitech/split/strategy"
	"github.com/imlitech/split/trial"
	"github.com/imlitech/split/types"
	"github.com/imlitech/split/visitor"
)

// Fallback reasons reported on an Assignment.
const (
	// FallbackDisabled means experiments are globally disabled.
	FallbackDisabled = "disabled"

	// FallbackStoreUnavailable means the store failed and the failover policy applied.
	FallbackStoreUnavailable = "store_unavailable"

	// FallbackNoChoice means the trial produced no alternative.
	FallbackNoChoice = "no_choice"
)

// Failover operations reported to metrics.
const (
	operationAssign = "assign"
	operationFinish = "finish"
)

// Fallback explains why an Assignment is the control rather than a trial choice.
type Fallback struct {
	Reason string
	Err    error
}

// Assignment is the result of ABTest.
type Assignment struct {
	// Experiment is the experiment name.
	Experiment string

	// Alternative is the chosen alternative ("" when a fallback applies and
	// no override was honored).
	Alternative string

	// Control is the name of the experiment's control.
	Control string

	// Fallback is set when the result did not come from a trial.
	Fallback *Fallback

	// Metadata is the metadata attached to the chosen alternative.
	Metadata map[string]any
}

// Name returns the alternative to render: Alternative when set, otherwise Control.
func (a Assignment) Name() string {
	if a.Alternative != "" {
		return a.Alternative
	}

	return a.Control
}

// FinishOptions controls FinishExperiment.
type FinishOptions struct {
	// Reset deletes the visitor's assignment on completion so a resettable
	// experiment can be entered again (default for ABFinished: true).
	Reset bool

	// Goals records one completion per goal instead of the bare completion.
	Goals []string
}

// FinishOption configures ABFinished.
type FinishOption func(*FinishOptions)

// WithReset sets whether completion resets the visitor's assignment.
func WithReset(reset bool) FinishOption {
	return func(o *FinishOptions) {
		o.Reset = reset
	}
}

// Manager runs experiments for visitors.
//
// Manager is the main entry point of the split library. It handles:
//   - Resolving experiments from call arguments or static definitions
//   - Assigning visitors to alternatives (ABTest)
//   - Recording conversions (ABFinished)
//   - Absorbing store outages according to the failover policy
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//   - Per-visitor state lives in the VisitorContext or the store; a single
//     VisitorContext must not be shared between concurrent calls
//
// Testing:
// Consumers can define minimal interfaces for mocking:
//
//	type Experimenter interface {
//	    ABTest(ctx context.Context, vc *split.VisitorContext, desc any, control any, alternatives ...any) (split.Assignment, error)
//	}
type Manager struct {
	cfg     Config
	store   Store
	catalog *catalog.Catalog

	selector  AlternativeSelector
	selectors map[string]AlternativeSelector
	excluder  *excluder

	hooks          types.Hooks
	metrics        MetricsCollector
	logger         Logger
	customRequest  func(vc *VisitorContext) *Request
	customOverride func(vc *VisitorContext, name string) (string, bool)
}

// NewManager creates a new Manager.
//
// Parameters:
//   - cfg: Configuration (defaults are applied to a copy)
//   - store: Shared store holding experiments, goals, counters and, with
//     store persistence, visitor records
//   - opts: Optional hooks, metrics, logger, selector and callbacks
//
// Returns:
//   - *Manager: Initialized manager
//   - error: ErrStoreRequired or ErrInvalidConfig
//
// Example:
//
//	mgr, err := split.NewManager(split.DefaultConfig(), store.NewMemory())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	asg, err := mgr.ABTest(ctx, vc, "link_color", "blue", "red")
func NewManager(cfg Config, store Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.logger == nil {
		options.logger = logging.NewNop()
	}
	if options.metrics == nil {
		options.metrics = metrics.NewNop()
	}

	cfg.ValidateWithWarnings(options.logger)

	definitions := options.definitions
	if definitions == nil {
		definitions = source.NewStatic(cfg.Experiments)
	}

	m := &Manager{
		cfg:   cfg,
		store: store,
		catalog: catalog.New(store,
			catalog.WithDefinitions(definitions),
			catalog.WithStartManually(cfg.StartManually),
			catalog.WithVisitorKeyPrefix(cfg.VisitorKeyPrefix),
			catalog.WithLogger(options.logger),
		),
		selectors:      make(map[string]AlternativeSelector),
		excluder:       newExcluder(&cfg, options.ignoreFilter),
		hooks:          hooks.Merge(options.hooks),
		metrics:        options.metrics,
		logger:         options.logger,
		customRequest:  options.customRequest,
		customOverride: options.customOverride,
	}
	if options.failoverHandler != nil {
		m.hooks.OnFailover = options.failoverHandler
	}

	for _, name := range []string{strategy.AlgorithmWeightedRandom, strategy.AlgorithmWeightedHash, strategy.AlgorithmRoundRobin} {
		sel, err := strategy.Lookup(name)
		if err != nil {
			return nil, err
		}
		m.selectors[name] = sel
	}

	m.selector = options.selector
	if m.selector == nil {
		m.selector = m.selectors[cfg.DefaultAlgorithm]
	}

	return m, nil
}

// Config returns the manager's effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Catalog returns the experiment catalog, for administration.
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog
}

// ABTest assigns the visitor to an alternative of an experiment.
//
// The experiment is resolved from the arguments (or its static definition)
// and created on first use. The visitor keeps the alternative across calls
// until the experiment is reset or changes version.
//
// Parameters:
//   - ctx: Context
//   - vc: Visitor context
//   - desc: Experiment name, MetricDescriptor, or single-entry name → goals mapping
//   - control: Control alternative (name, {name: weight} mapping, Alternative,
//     or a []any holding every alternative); nil to use the static definition
//   - alternatives: Further alternatives
//
// Returns:
//   - Assignment: The assignment; Name() is never empty
//   - error: ErrInvalidDescriptor/ErrExperimentNotFound for bad arguments,
//     or a store error when failover is disabled
func (m *Manager) ABTest(ctx context.Context, vc *VisitorContext, desc any, control any, alternatives ...any) (Assignment, error) {
	if vc == nil {
		return Assignment{}, ErrVisitorContextRequired
	}

	md, err := types.ParseDescriptor(desc)
	if err != nil {
		return Assignment{}, err
	}

	exp, err := m.catalog.Initialize(md, control, alternatives...)
	if err != nil {
		return Assignment{}, err
	}

	asg := Assignment{Experiment: exp.Name, Control: exp.Control().Name}
	if !m.cfg.Enabled() {
		asg.Fallback = &Fallback{Reason: FallbackDisabled}
		m.recordAssignment(asg)

		return asg, nil
	}

	t, err := m.runTrial(ctx, vc, exp)
	if err != nil {
		if !m.cfg.Failover.Enabled || !IsStoreUnavailable(err) {
			return Assignment{}, err
		}

		m.failover(ctx, operationAssign, err)
		asg.Fallback = &Fallback{Reason: FallbackStoreUnavailable, Err: err}
		if m.cfg.Failover.AllowParameterOverride {
			if alt, ok := m.override(vc, exp.Name); ok {
				asg.Alternative = alt
			}
			if m.genericallyDisabled(vc) {
				asg.Alternative = asg.Control
			}
		}
		m.recordAssignment(asg)

		return asg, nil
	}

	asg.Alternative = t.Alternative()
	asg.Metadata = t.Metadata()
	if asg.Alternative == "" {
		asg.Fallback = &Fallback{Reason: FallbackNoChoice}
	}
	m.recordAssignment(asg)

	return asg, nil
}

func (m *Manager) runTrial(ctx context.Context, vc *VisitorContext, exp *Experiment) (*trial.Trial, error) {
	if err := m.catalog.Merge(ctx, exp); err != nil {
		return nil, err
	}
	if err := m.catalog.Save(ctx, exp); err != nil {
		return nil, err
	}

	override, _ := m.override(vc, exp.Name)
	t := trial.New(m.record(vc), exp, m.store,
		trial.WithOverride(override),
		trial.WithExcluded(m.excluded(vc)),
		trial.WithDisabled(m.genericallyDisabled(vc)),
		trial.WithStoreOverride(m.cfg.StoreOverride),
		trial.WithSelector(m.selectorFor(exp)),
		trial.WithMetrics(m.metrics),
		trial.WithHooks(&m.hooks),
		trial.WithLogger(m.logger),
	)
	if _, err := t.Choose(ctx); err != nil {
		return nil, err
	}

	return t, nil
}

// ABFinished records a conversion for every experiment the descriptor
// refers to: the experiment itself and every experiment grouped under a
// metric of that name.
//
// It does nothing for excluded visitors or when experiments are disabled.
// With failover enabled every error is reported to the failover handler and
// swallowed.
//
// Parameters:
//   - ctx: Context
//   - vc: Visitor context
//   - desc: Experiment or metric name, or a name → goals mapping
//   - opts: Finish options (reset defaults to true)
//
// Returns:
//   - error: Descriptor or store error when failover is disabled
func (m *Manager) ABFinished(ctx context.Context, vc *VisitorContext, desc any, opts ...FinishOption) error {
	if vc == nil {
		return ErrVisitorContextRequired
	}
	if m.excluded(vc) || !m.cfg.Enabled() {
		return nil
	}

	fo := FinishOptions{Reset: true}
	for _, opt := range opts {
		opt(&fo)
	}

	err := m.finish(ctx, vc, desc, fo)
	if err != nil && m.cfg.Failover.Enabled {
		m.failover(ctx, operationFinish, err)
		return nil
	}

	return err
}

func (m *Manager) finish(ctx context.Context, vc *VisitorContext, desc any, fo FinishOptions) error {
	md, err := types.ParseDescriptor(desc)
	if err != nil {
		return err
	}
	fo.Goals = md.Goals

	experiments, err := m.catalog.PossibleExperiments(ctx, md.Name)
	if err != nil {
		return err
	}

	record := m.record(vc)
	for _, exp := range experiments {
		if _, err := m.finishExperiment(ctx, record, exp, fo); err != nil {
			return err
		}
	}

	return nil
}

// FinishExperiment records the visitor's conversion in one experiment.
//
// Nothing changes when the experiment has a winner, or when the visitor
// already finished and no reset applies. Otherwise the conversion is counted
// for the visitor's alternative and the assignment is deleted (resettable
// experiment with Reset) or marked finished.
//
// Parameters:
//   - ctx: Context
//   - vc: Visitor context
//   - exp: Experiment, as returned by the catalog
//   - opts: Reset flag and goals
//
// Returns:
//   - bool: true when the experiment needed no further work
//   - error: Store error
func (m *Manager) FinishExperiment(ctx context.Context, vc *VisitorContext, exp *Experiment, opts FinishOptions) (bool, error) {
	if vc == nil {
		return false, ErrVisitorContextRequired
	}

	return m.finishExperiment(ctx, m.record(vc), exp, opts)
}

func (m *Manager) finishExperiment(ctx context.Context, record *visitor.Record, exp *Experiment, opts FinishOptions) (bool, error) {
	if exp.HasWinner() {
		return true, nil
	}

	shouldReset := exp.Resettable && opts.Reset
	finished, err := record.IsFinished(ctx, exp)
	if err != nil {
		return false, err
	}
	if finished && !shouldReset {
		return true, nil
	}

	alt, _, err := record.Alternative(ctx, exp)
	if err != nil {
		return false, err
	}

	t := trial.New(record, exp, m.store,
		trial.WithAlternative(alt),
		trial.WithMetrics(m.metrics),
		trial.WithHooks(&m.hooks),
		trial.WithLogger(m.logger),
	)
	if err := t.Complete(ctx, opts.Goals); err != nil {
		return false, err
	}

	if shouldReset {
		return false, record.Reset(ctx, exp)
	}

	return false, record.MarkFinished(ctx, exp)
}

// Reset deletes the visitor's assignment in exp, so the next ABTest call
// chooses again.
func (m *Manager) Reset(ctx context.Context, vc *VisitorContext, exp *Experiment) error {
	if vc == nil {
		return ErrVisitorContextRequired
	}

	return m.record(vc).Reset(ctx, exp)
}

// Cleanup removes the visitor's keys of experiments that were deleted, have
// a winner, or have not started.
func (m *Manager) Cleanup(ctx context.Context, vc *VisitorContext) error {
	if vc == nil {
		return ErrVisitorContextRequired
	}

	return m.record(vc).CleanupOldExperiments(ctx)
}

// ActiveExperiments returns the visitor's assignments in running
// experiments, keyed by experiment name.
func (m *Manager) ActiveExperiments(ctx context.Context, vc *VisitorContext) (map[string]string, error) {
	if vc == nil {
		return nil, ErrVisitorContextRequired
	}

	return m.record(vc).ActiveExperiments(ctx)
}

// record builds the visitor record for vc, allocating the session or the
// visitor ID on first use.
func (m *Manager) record(vc *VisitorContext) *visitor.Record {
	var vs VisitorStore
	switch m.cfg.Persistence {
	case PersistenceStore:
		if vc.ID == "" {
			vc.ID = uuid.NewString()
		}
		vs = visitor.NewStoreAdapter(m.store, m.cfg.VisitorKeyPrefix, vc.ID)
	default:
		if vc.Session == nil {
			vc.Session = make(map[string]string)
		}
		vs = visitor.NewSessionAdapter(vc.Session)
	}

	return visitor.NewRecord(vc.ID, vs, m.catalog,
		visitor.WithMetrics(m.metrics),
		visitor.WithLogger(m.logger),
	)
}

func (m *Manager) selectorFor(exp *Experiment) AlternativeSelector {
	if exp.Algorithm == "" {
		return m.selector
	}

	sel, ok := m.selectors[exp.Algorithm]
	if !ok {
		m.logger.Warn("unknown algorithm, using default selector", "experiment", exp.Name, "algorithm", exp.Algorithm)
		return m.selector
	}

	return sel
}

func (m *Manager) request(vc *VisitorContext) *Request {
	if m.customRequest != nil {
		return m.customRequest(vc)
	}

	return vc.Request
}

func (m *Manager) excluded(vc *VisitorContext) bool {
	return m.excluder.excluded(vc, m.request(vc))
}

// override returns the alternative forced for experiment name, if any.
func (m *Manager) override(vc *VisitorContext, name string) (string, bool) {
	if m.customOverride != nil {
		v, ok := m.customOverride(vc, name)
		return v, ok && v != ""
	}

	return vc.Param(name)
}

func (m *Manager) genericallyDisabled(vc *VisitorContext) bool {
	_, ok := m.override(vc, m.cfg.DisableParam)

	return ok
}

func (m *Manager) failover(ctx context.Context, operation string, cause error) {
	m.metrics.RecordFailover(operation)
	m.logger.Warn("store failure absorbed by failover", "operation", operation, "error", cause)

	if err := m.hooks.OnFailover(ctx, cause); err != nil {
		m.logger.Error("failover handler failed", "operation", operation, "error", err, "cause", cause)
	}
}

func (m *Manager) recordAssignment(asg Assignment) {
	reason := ""
	if asg.Fallback != nil {
		reason = asg.Fallback.Reason
	}
	m.metrics.RecordAssignment(asg.Experiment, asg.Name(), reason)
}
