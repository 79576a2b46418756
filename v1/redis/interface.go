package redis

import (
	"context"
	"time"
)

// Client is the subset of Redis used for shared cache storage.
//
// This interface is implemented by the concrete *RedisClient type.
type Client interface {
	Ping(ctx context.Context) error
	Close() error

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)

	// ScanKeys returns every key matching pattern using SCAN.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// DeleteMatching removes every key matching pattern and returns the count.
	DeleteMatching(ctx context.Context, pattern string) (int64, error)

	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
}

var _ Client = (*RedisClient)(nil)
