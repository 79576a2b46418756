package cache

import "time"

// Config selects and tunes the cache store.
type Config struct {
	// Store is "memory" (default) or "redis". The redis store needs a
	// *redis.RedisClient in the fx graph.
	Store StoreType `yaml:"store" mapstructure:"store"`

	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}
