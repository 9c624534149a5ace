// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/imlitech/split/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. It is the Manager's default collector.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	mgr, err := split.NewManager(cfg, store, split.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordAssignment discards the assignment metric.
func (n *NopMetrics) RecordAssignment(_ /* experiment */, _ /* alternative */, _ /* fallback */ string) {
}

// RecordParticipation discards the participation metric.
func (n *NopMetrics) RecordParticipation(_ /* experiment */, _ /* alternative */ string) {}

// RecordConversion discards the conversion metric.
func (n *NopMetrics) RecordConversion(_ /* experiment */, _ /* alternative */, _ /* goal */ string) {
}

// RecordFailover discards the failover metric.
func (n *NopMetrics) RecordFailover(_ /* operation */ string) {}

// RecordStoreOperation discards the store operation metric.
func (n *NopMetrics) RecordStoreOperation(_ /* operation */ string, _ /* duration */ float64, _ /* success */ bool) {
}

// RecordCleanup discards the cleanup metric.
func (n *NopMetrics) RecordCleanup(_ /* reason */ string, _ /* removed */ int) {}
