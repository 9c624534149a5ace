// Package strategy provides built-in alternative selection algorithms.
//
// A selector decides which alternative a visitor is enrolled into the first
// time they enter an experiment. Persisting that choice is the trial's job;
// selectors are pure and safe for concurrent use.
//
//   - WeightedRandom: Independent weighted draw per enrollment (default)
//   - WeightedHash: Deterministic weighted bucketing by visitor ID (xxh3)
//   - RoundRobin: Cycles through alternatives per experiment, ignoring weights
//
// # Selector Selection Guide
//
// WeightedRandom:
//   - Use for classic A/B tests where every enrollment is independent
//   - Honors alternative weights
//
// WeightedHash:
//   - Use when the same visitor must land in the same alternative even if
//     their stored assignment is lost (new device, cleared session)
//   - Changing the experiment version reshuffles visitors
//
// RoundRobin:
//   - Use for small experiments that need near-equal group sizes
//   - Balance is per process, not global
//
// Custom selectors can be implemented by satisfying the types.AlternativeSelector interface.
package strategy
