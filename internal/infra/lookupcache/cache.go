// Package lookupcache provides the read-through caches that sit in front of
// the geocoder and the environmental collectors.
package lookupcache

import "context"

// Cache stores lookup results by key. Implementations must be safe for
// concurrent use. A failing backend behaves as a miss.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Put(ctx context.Context, key string, value V)
}
