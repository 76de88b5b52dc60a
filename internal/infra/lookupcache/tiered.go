package lookupcache

import "context"

// Tiered consults a fast local cache before a shared one and back-fills the
// local tier on shared hits.
type Tiered[V any] struct {
	local  Cache[V]
	shared Cache[V]
}

// NewTiered layers local in front of shared.
func NewTiered[V any](local, shared Cache[V]) *Tiered[V] {
	return &Tiered[V]{local: local, shared: shared}
}

// Get implements Cache.
func (t *Tiered[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		return v, true
	}
	v, ok := t.shared.Get(ctx, key)
	if ok {
		t.local.Put(ctx, key, v)
	}
	return v, ok
}

// Put implements Cache.
func (t *Tiered[V]) Put(ctx context.Context, key string, value V) {
	t.local.Put(ctx, key, value)
	t.shared.Put(ctx, key, value)
}

var _ Cache[int] = (*Tiered[int])(nil)
