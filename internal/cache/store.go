// Package cache holds the byte-oriented TTL stores behind the news caches.
package cache

import (
	"context"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
