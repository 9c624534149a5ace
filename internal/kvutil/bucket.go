// Package kvutil provides utilities for working with NATS JetStream KeyValue stores.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go/jetstream"
)

// EnsureKVBucketWithRetry creates or opens a KV bucket with retry logic.
//
// Several processes may race to create the same bucket on startup; losing the
// race (ErrBucketExists) falls back to opening it. Transient failures are
// retried with exponential backoff starting at 10ms.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: KV bucket configuration
//   - maxRetries: Maximum number of attempts (default: 3)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket instance
//   - error: The last error after all attempts
//
// Example:
//
//	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
//	    Bucket:  "split",
//	    History: 1,
//	}, 3)
func EnsureKVBucketWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	maxRetries int,
) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	kv, err := retry.DoWithData(
		func() (jetstream.KeyValue, error) {
			kv, err := js.CreateKeyValue(ctx, config)
			if err == nil {
				return kv, nil
			}
			if !errors.Is(err, jetstream.ErrBucketExists) {
				return nil, err
			}

			kv, err = js.KeyValue(ctx, config.Bucket)
			if err != nil {
				return nil, fmt.Errorf("bucket exists but failed to open: %w", err)
			}

			return kv, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries)), //nolint:gosec // maxRetries is positive
		retry.Delay(10*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w",
			config.Bucket, maxRetries, err)
	}

	return kv, nil
}

// CompareAndSwap applies mutate to the current value of key until the write
// wins against concurrent writers.
//
// A missing key is passed to mutate as (nil, false) and created with Create;
// an existing key is written with Update at the revision that was read. A
// lost race (ErrKeyExists or a wrong-last-sequence API error) re-reads and
// retries, up to maxRetries attempts. Errors returned by mutate stop the loop
// immediately.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - kv: KV bucket
//   - key: Encoded KV key
//   - maxRetries: Maximum number of attempts (default: 10)
//   - mutate: Computes the new value from the current one
//
// Returns:
//   - []byte: The value that was written
//   - error: mutate's error, the last conflict, or a transport error
func CompareAndSwap(
	ctx context.Context,
	kv jetstream.KeyValue,
	key string,
	maxRetries int,
	mutate func(current []byte, found bool) ([]byte, error),
) ([]byte, error) {
	if maxRetries <= 0 {
		maxRetries = 10
	}

	return retry.DoWithData(
		func() ([]byte, error) {
			entry, err := kv.Get(ctx, key)
			if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
				return nil, retry.Unrecoverable(err)
			}

			if entry == nil {
				next, err := mutate(nil, false)
				if err != nil {
					return nil, retry.Unrecoverable(err)
				}
				if _, err := kv.Create(ctx, key, next); err != nil {
					return nil, classifyWrite(err)
				}

				return next, nil
			}

			next, err := mutate(entry.Value(), true)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			if _, err := kv.Update(ctx, key, next, entry.Revision()); err != nil {
				return nil, classifyWrite(err)
			}

			return next, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries)), //nolint:gosec // maxRetries is positive
		retry.Delay(time.Millisecond),
		retry.MaxDelay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// IsRevisionConflict reports whether a KV write lost an optimistic concurrency race.
func IsRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}

	return false
}

func classifyWrite(err error) error {
	if IsRevisionConflict(err) {
		return err
	}

	return retry.Unrecoverable(err)
}
