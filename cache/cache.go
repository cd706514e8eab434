// Package cache memoizes store reads for a bounded time. Entries are grouped
// by collection so a write can drop exactly the collections it changed.
package cache

import (
	"context"

	"github.com/bytedance/sonic"
)

// Cache stores encoded values under (collection, key).
type Cache interface {
	// Get decodes the entry into dst. ok is false on a miss or an expired entry.
	Get(ctx context.Context, collection, key string, dst interface{}) (ok bool, err error)
	Set(ctx context.Context, collection, key string, v interface{}) error
	// InvalidateCollection drops every entry of the given collections.
	InvalidateCollection(ctx context.Context, collections ...string) error
}

func encode(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

func decode(b []byte, dst interface{}) error {
	return sonic.Unmarshal(b, dst)
}
