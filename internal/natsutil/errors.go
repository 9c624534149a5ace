// Package natsutil classifies NATS client errors.
package natsutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/imlitech/split/types"
)

// IsConnectivityError checks if an error is caused by connectivity issues.
//
// This includes NATS timeouts, expired operation deadlines, missing servers
// and closed or draining connections. Store adapters wrap such errors with
// types.ErrStoreUnavailable so the failover policy applies.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true if error indicates connectivity issue
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return types.IsStoreUnavailable(err) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "i/o timeout")
}

// WrapUnavailable marks connectivity errors with types.ErrStoreUnavailable.
//
// Other errors are returned unchanged.
//
// Parameters:
//   - op: Operation name included in the message
//   - err: Error returned by the NATS client
//
// Returns:
//   - error: nil if err is nil, a wrapped error for connectivity failures, err otherwise
func WrapUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectivityError(err) {
		return fmt.Errorf("%w: %s: %w", types.ErrStoreUnavailable, op, err)
	}

	return err
}
