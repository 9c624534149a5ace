// Package split provides store-backed A/B testing: visitors are assigned to
// weighted alternatives of named experiments, keep their assignment across
// requests, and record conversions against goals.
//
// All durable state lives in a Store (in-process memory or a NATS JetStream
// KeyValue bucket). Per-visitor assignments live either in a session map
// owned by the host application or in the store itself.
//
// # Quick Start
//
//	mgr, err := split.NewManager(split.DefaultConfig(), store.NewMemory())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vc := &split.VisitorContext{Session: session, Request: &split.Request{IP: ip, UserAgent: ua}}
//	asg, err := mgr.ABTest(ctx, vc, "link_color", "blue", "red")
//	render(asg.Name())
//
//	// later, on conversion
//	err = mgr.ABFinished(ctx, vc, "link_color")
//
// # Key Features
//
//   - Sticky assignments: a visitor keeps an alternative until the experiment is reset
//   - Versioning: changing alternatives or goals bumps the version and re-enrolls everyone
//   - Goals and metrics: conversions per goal, and several experiments finished by one metric
//   - Exclusion: ignored IPs, robots and a custom filter always see the control
//   - Overrides: request parameters force an alternative or disable experiments per request
//   - Failover: store outages degrade to the control instead of failing the request
//
// # Static Definitions
//
// Experiments can be declared in configuration and referred to by name:
//
//	experiments:
//	  link_color:
//	    alternatives: [blue, red]
//	    goals: [purchase, signup]
//	    metric: conversion
//
//	asg, err := mgr.ABTest(ctx, vc, "link_color", nil)
//	err = mgr.ABFinished(ctx, vc, map[string]any{"conversion": "purchase"})
//
// See the examples/ directory for complete working examples.
package split
