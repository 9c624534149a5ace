// Package testing provides test utilities for the split library.
//
// Key utilities:
//   - StartEmbeddedNATS: In-process NATS server with JetStream
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewTestLogger: types.Logger writing through testing.T
//   - CountingStore / FailingStore: Store wrappers for asserting writes and simulating outages
//
// Example usage:
//
//	import (
//	    "testing"
//	    splittest "github.com/imlitech/split/testing"
//	)
//
//	func TestNATSBackedTrials(t *testing.T) {
//	    _, nc := splittest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
