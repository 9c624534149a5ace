package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/imlitech/split/internal/kvutil"
	"github.com/imlitech/split/internal/logging"
	"github.com/imlitech/split/internal/metrics"
	"github.com/imlitech/split/internal/natsutil"
	"github.com/imlitech/split/types"
)

// Value tags. Every KV entry starts with one tag byte so list operations on
// string keys (and the reverse) are detected.
const (
	tagString byte = 's'
	tagList   byte = 'l'
)

// NATSConfig configures the JetStream KeyValue store.
type NATSConfig struct {
	// Bucket is the KV bucket name (default: "split").
	Bucket string `yaml:"bucket"`

	// Replicas is the bucket replica count used when the bucket is created (default: 1).
	Replicas int `yaml:"replicas"`

	// History is the number of revisions kept per key when the bucket is created (default: 1).
	History int `yaml:"history"`

	// OperationTimeout bounds every single store call (default: 2s).
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// MaxRetries bounds bucket creation attempts and compare-and-swap loops (default: 10).
	MaxRetries int `yaml:"maxRetries"`
}

// SetDefaults fills zero fields with defaults.
func (c *NATSConfig) SetDefaults() {
	if c.Bucket == "" {
		c.Bucket = "split"
	}
	if c.Replicas <= 0 {
		c.Replicas = 1
	}
	if c.History <= 0 {
		c.History = 1
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 2 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
}

// NATSOption configures optional NATS store dependencies.
type NATSOption func(*NATS)

// WithNATSMetrics sets the collector receiving store operation latency.
func WithNATSMetrics(m types.MetricsCollector) NATSOption {
	return func(s *NATS) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithNATSLogger sets the logger.
func WithNATSLogger(l types.Logger) NATSOption {
	return func(s *NATS) {
		if l != nil {
			s.logger = l
		}
	}
}

// NATS is a types.Store backed by a JetStream KeyValue bucket.
//
// Keys are mapped onto KV subjects by splitting on ':' and base64url-encoding
// each segment, so arbitrary experiment and visitor names stay valid KV keys
// and ':'-prefix scans become subject-filtered listings. Counters and lists
// are updated with revision-checked compare-and-swap.
//
// Transport failures are returned wrapped with types.ErrStoreUnavailable.
type NATS struct {
	kv      jetstream.KeyValue
	cfg     NATSConfig
	metrics types.MetricsCollector
	logger  types.Logger
}

var _ types.Store = (*NATS)(nil)

// NewNATS opens (creating if needed) the configured KV bucket.
//
// Parameters:
//   - ctx: Context for bucket creation
//   - nc: Connected NATS client (owned by the caller)
//   - cfg: Store configuration; zero fields take defaults
//   - opts: Optional metrics and logger
//
// Returns:
//   - *NATS: Store ready for use
//   - error: types.ErrStoreUnavailable-wrapped error if the server cannot be reached
//
// Example:
//
//	nc, _ := nats.Connect(nats.DefaultURL)
//	s, err := store.NewNATS(ctx, nc, store.NATSConfig{Bucket: "split"})
//	mgr, err := split.NewManager(cfg, s)
func NewNATS(ctx context.Context, nc *nats.Conn, cfg NATSConfig, opts ...NATSOption) (*NATS, error) {
	if nc == nil {
		return nil, fmt.Errorf("%w: nats connection is nil", types.ErrStoreRequired)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, natsutil.WrapUnavailable("jetstream", err)
	}

	return NewNATSFromJetStream(ctx, js, cfg, opts...)
}

// NewNATSFromJetStream is NewNATS for callers that already hold a JetStream context.
func NewNATSFromJetStream(ctx context.Context, js jetstream.JetStream, cfg NATSConfig, opts ...NATSOption) (*NATS, error) {
	cfg.SetDefaults()

	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "split experiments, goals, counters and visitor records",
		History:     uint8(min(cfg.History, 64)), //nolint:gosec // bounded above
		Replicas:    cfg.Replicas,
	}, cfg.MaxRetries)
	if err != nil {
		return nil, natsutil.WrapUnavailable("open bucket", err)
	}

	return NewNATSFromKV(kv, cfg, opts...), nil
}

// NewNATSFromKV wraps an already opened bucket.
func NewNATSFromKV(kv jetstream.KeyValue, cfg NATSConfig, opts ...NATSOption) *NATS {
	cfg.SetDefaults()

	s := &NATS{
		kv:      kv,
		cfg:     cfg,
		metrics: metrics.NewNop(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get implements types.Store.
func (s *NATS) Get(ctx context.Context, key string) (value string, found bool, err error) {
	defer s.observe("get", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	entry, err := s.kv.Get(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, natsutil.WrapUnavailable("get "+key, err)
	}

	tag, payload := splitTag(entry.Value())
	if tag != tagString {
		return "", false, fmt.Errorf("%w: get %s", types.ErrWrongType, key)
	}

	return string(payload), true, nil
}

// Set implements types.Store.
func (s *NATS) Set(ctx context.Context, key, value string) (err error) {
	defer s.observe("set", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.kv.Put(ctx, encodeKey(key), tagged(tagString, []byte(value))); err != nil {
		return natsutil.WrapUnavailable("set "+key, err)
	}

	return nil
}

// Delete implements types.Store.
func (s *NATS) Delete(ctx context.Context, key string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err = s.kv.Delete(ctx, encodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return natsutil.WrapUnavailable("delete "+key, err)
	}

	return nil
}

// IncrBy implements types.Store.
func (s *NATS) IncrBy(ctx context.Context, key string, delta int64) (result int64, err error) {
	defer s.observe("incr", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err = kvutil.CompareAndSwap(ctx, s.kv, encodeKey(key), s.cfg.MaxRetries, func(cur []byte, found bool) ([]byte, error) {
		var n int64
		if found {
			tag, payload := splitTag(cur)
			if tag != tagString {
				return nil, fmt.Errorf("%w: incr %s", types.ErrWrongType, key)
			}

			var perr error
			if n, perr = strconv.ParseInt(string(payload), 10, 64); perr != nil {
				return nil, fmt.Errorf("%w: incr %s: %q", types.ErrNotInteger, key, payload)
			}
		}
		result = n + delta

		return tagged(tagString, []byte(strconv.FormatInt(result, 10))), nil
	})
	if err != nil {
		return 0, natsutil.WrapUnavailable("incr "+key, err)
	}

	return result, nil
}

// LPush implements types.Store.
func (s *NATS) LPush(ctx context.Context, key string, values ...string) (err error) {
	defer s.observe("lpush", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err = kvutil.CompareAndSwap(ctx, s.kv, encodeKey(key), s.cfg.MaxRetries, func(cur []byte, found bool) ([]byte, error) {
		var list []string
		if found {
			var derr error
			if list, derr = decodeList(key, cur); derr != nil {
				return nil, derr
			}
		}

		payload, merr := json.Marshal(prepend(list, values))
		if merr != nil {
			return nil, merr
		}

		return tagged(tagList, payload), nil
	})
	if err != nil {
		return natsutil.WrapUnavailable("lpush "+key, err)
	}

	return nil
}

// LRange implements types.Store.
func (s *NATS) LRange(ctx context.Context, key string) (list []string, err error) {
	defer s.observe("lrange", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	entry, err := s.kv.Get(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, natsutil.WrapUnavailable("lrange "+key, err)
	}

	return decodeList(key, entry.Value())
}

// Keys implements types.Store. Keys are returned sorted.
func (s *NATS) Keys(ctx context.Context, prefix string) (keys []string, err error) {
	defer s.observe("keys", time.Now(), &err)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	lister, err := s.kv.ListKeysFiltered(ctx, keyFilter(prefix))
	if err != nil {
		return nil, natsutil.WrapUnavailable("keys "+prefix, err)
	}
	defer func() { _ = lister.Stop() }()

	keys = make([]string, 0)
	for encoded := range lister.Keys() {
		key, derr := decodeKey(encoded)
		if derr != nil {
			s.logger.Debug("skipping foreign KV key", "key", encoded, "error", derr)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, natsutil.WrapUnavailable("keys "+prefix, err)
	}
	slices.Sort(keys)

	return keys, nil
}

func (s *NATS) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

func (s *NATS) observe(op string, start time.Time, err *error) {
	s.metrics.RecordStoreOperation(op, time.Since(start).Seconds(), *err == nil)
}

// encodeKey maps a ':'-separated store key onto a KV key.
func encodeKey(key string) string {
	segments := strings.Split(key, ":")
	for i, seg := range segments {
		segments[i] = encodeSegment(seg)
	}

	return strings.Join(segments, ".")
}

func encodeSegment(seg string) string {
	if seg == "" {
		return "="
	}

	return base64.RawURLEncoding.EncodeToString([]byte(seg))
}

func decodeKey(encoded string) (string, error) {
	segments := strings.Split(encoded, ".")
	for i, seg := range segments {
		if seg == "=" {
			segments[i] = ""
			continue
		}

		raw, err := base64.RawURLEncoding.DecodeString(seg)
		if err != nil {
			return "", fmt.Errorf("%w: %s", types.ErrInvalidKey, encoded)
		}
		segments[i] = string(raw)
	}

	return strings.Join(segments, ":"), nil
}

// keyFilter narrows a listing to the complete segments of prefix; the
// trailing partial segment is matched after decoding.
func keyFilter(prefix string) string {
	segments := strings.Split(prefix, ":")
	full := segments[:len(segments)-1]
	if len(full) == 0 {
		return ">"
	}

	encoded := make([]string, len(full))
	for i, seg := range full {
		encoded[i] = encodeSegment(seg)
	}

	return strings.Join(encoded, ".") + ".>"
}

func tagged(tag byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, tag)

	return append(out, payload...)
}

func splitTag(value []byte) (byte, []byte) {
	if len(value) == 0 {
		return 0, nil
	}

	return value[0], value[1:]
}

func decodeList(key string, value []byte) ([]string, error) {
	tag, payload := splitTag(value)
	if tag != tagList {
		return nil, fmt.Errorf("%w: %s is not a list", types.ErrWrongType, key)
	}

	list := []string{}
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("decode list %s: %w", key, err)
	}

	return list, nil
}
