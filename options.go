package split

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/imlitech/split/internal/logging"
	"github.com/imlitech/split/internal/metrics"
)

// Option configures a Manager with optional dependencies.
type Option func(*managerOptions)

// managerOptions holds optional Manager configuration.
type managerOptions struct {
	hooks           *Hooks
	metrics         MetricsCollector
	logger          Logger
	selector        AlternativeSelector
	definitions     DefinitionSource
	failoverHandler func(ctx context.Context, err error) error
	ignoreFilter    func(vc *VisitorContext) bool
	customRequest   func(vc *VisitorContext) *Request
	customOverride  func(vc *VisitorContext, name string) (string, bool)
}

// WithHooks sets trial lifecycle hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewManager
//
// Example:
//
//	hooks := &split.Hooks{
//	    OnTrialChoose: func(ctx context.Context, ev split.TrialEvent) error {
//	        return analytics.Track(ctx, ev.VisitorID, ev.Experiment.Name, ev.Alternative)
//	    },
//	}
//	mgr, err := split.NewManager(cfg, store, split.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *managerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewManager
//
// Example:
//
//	mgr, err := split.NewManager(cfg, store, split.WithMetrics(split.NewPrometheusMetrics(reg, "")))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *managerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewManager
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	mgr, err := split.NewManager(cfg, store, split.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// WithSelector replaces the selector used by experiments that do not name an
// algorithm.
func WithSelector(selector AlternativeSelector) Option {
	return func(o *managerOptions) {
		o.selector = selector
	}
}

// WithDefinitionSource replaces the static definitions taken from
// Config.Experiments.
func WithDefinitionSource(src DefinitionSource) Option {
	return func(o *managerOptions) {
		o.definitions = src
	}
}

// WithFailoverHandler sets the callback invoked with the cause whenever a
// store failure is absorbed by the failover policy. It takes precedence over
// Hooks.OnFailover.
//
// Example:
//
//	split.WithFailoverHandler(func(ctx context.Context, err error) error {
//	    errorTracker.Report(err)
//	    return nil
//	})
func WithFailoverHandler(handler func(ctx context.Context, err error) error) Option {
	return func(o *managerOptions) {
		o.failoverHandler = handler
	}
}

// WithIgnoreFilter sets a predicate that excludes visitors, in addition to
// ignored IPs and robots.
func WithIgnoreFilter(filter func(vc *VisitorContext) bool) Option {
	return func(o *managerOptions) {
		o.ignoreFilter = filter
	}
}

// WithCustomRequest supplies the request metadata used for exclusion in
// place of VisitorContext.Request.
func WithCustomRequest(fn func(vc *VisitorContext) *Request) Option {
	return func(o *managerOptions) {
		o.customRequest = fn
	}
}

// WithCustomOverride supplies forced alternatives (and the disable switch,
// under Config.DisableParam) in place of request parameters.
//
// Example:
//
//	split.WithCustomOverride(func(vc *split.VisitorContext, name string) (string, bool) {
//	    v, ok := vc.Session["force:"+name]
//	    return v, ok
//	})
func WithCustomOverride(fn func(vc *VisitorContext, name string) (string, bool)) Option {
	return func(o *managerOptions) {
		o.customOverride = fn
	}
}

// NewPrometheusMetrics creates a Prometheus-backed MetricsCollector.
//
// Parameters:
//   - reg: Registerer (prometheus.DefaultRegisterer when nil)
//   - namespace: Metric namespace ("split" when empty)
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

// NewSlogLogger adapts a slog.Logger (slog.Default() when nil) to Logger.
func NewSlogLogger(logger *slog.Logger) Logger {
	return logging.NewSlog(logger)
}

// NewZapLogger adapts a zap.Logger to Logger. A nil logger discards output.
func NewZapLogger(logger *zap.Logger) Logger {
	return logging.NewZap(logger)
}
