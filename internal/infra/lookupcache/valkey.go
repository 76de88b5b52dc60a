package lookupcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Valkey shares lookup results between service instances. Values are stored
// as JSON under "<prefix>:<namespace>:<key>".
type Valkey[V any] struct {
	client    valkey.Client
	prefix    string
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewValkey constructs a Valkey-backed cache for one lookup namespace.
func NewValkey[V any](client valkey.Client, prefix, namespace string, ttl time.Duration, logger *slog.Logger) *Valkey[V] {
	if prefix == "" {
		prefix = "envreport"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Valkey[V]{
		client:    client,
		prefix:    prefix,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger.With("component", "lookupcache.valkey", "namespace", namespace),
	}
}

// Get implements Cache.
func (c *Valkey[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build()).ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			c.logger.Warn("valkey get failed", "key", key, "error", err)
		}
		return zero, false
	}
	var value V
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		c.logger.Warn("valkey payload undecodable", "key", key, "error", err)
		return zero, false
	}
	return value, true
}

// Put implements Cache.
func (c *Valkey[V]) Put(ctx context.Context, key string, value V) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("valkey payload unencodable", "key", key, "error", err)
		return
	}
	builder := c.client.B().Set().Key(c.key(key)).Value(string(payload))
	var cmd valkey.Completed
	if c.ttl > 0 {
		ttl := c.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("valkey set failed", "key", key, "error", err)
	}
}

func (c *Valkey[V]) key(key string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, c.namespace, key)
}

var _ Cache[int] = (*Valkey[int])(nil)
