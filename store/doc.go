// Package store provides types.Store implementations.
//
// Available stores:
//   - Memory: In-process store on an xsync.Map, for tests and single-node deployments
//   - NATS: JetStream KeyValue bucket shared by every application instance
//
// Both stores keep strings, integer counters (decimal strings) and string
// lists under the same key space and reject list operations on string keys
// and vice versa with types.ErrWrongType.
package store
