package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Methods are called on the request path and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	TrialMetrics
	StoreMetrics
	VisitorMetrics
}

// TrialMetrics defines metrics for assignment and completion.
type TrialMetrics interface {
	// RecordAssignment records an assignment returned to the caller.
	//
	// Parameters:
	//   - experiment: Experiment name
	//   - alternative: Returned alternative name
	//   - fallback: Fallback reason ("" when the trial chose normally)
	RecordAssignment(experiment, alternative, fallback string)

	// RecordParticipation records a visitor newly enrolled into an alternative.
	RecordParticipation(experiment, alternative string)

	// RecordConversion records a completion.
	//
	// Parameters:
	//   - experiment: Experiment name
	//   - alternative: Alternative credited with the conversion
	//   - goal: Goal name ("" for a bare completion)
	RecordConversion(experiment, alternative, goal string)

	// RecordFailover records a store failure absorbed by the failover policy.
	//
	// Parameters:
	//   - operation: "assign" or "finish"
	RecordFailover(operation string)
}

// StoreMetrics defines metrics for store adapters.
type StoreMetrics interface {
	// RecordStoreOperation records store operation latency and outcome.
	//
	// Parameters:
	//   - operation: Operation type ("get", "set", "delete", "incr", "lpush", "lrange", "keys")
	//   - duration: Time taken in seconds
	//   - success: false if the operation returned an error
	RecordStoreOperation(operation string, duration float64, success bool)
}

// VisitorMetrics defines metrics for visitor record maintenance.
type VisitorMetrics interface {
	// RecordCleanup records visitor keys removed by a lazy cleanup sweep.
	//
	// Parameters:
	//   - reason: "old_version", "missing", "winner", "not_started"
	//   - removed: Number of keys removed
	RecordCleanup(reason string, removed int)
}
