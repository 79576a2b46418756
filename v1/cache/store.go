package cache

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Aleph-Alpha/vectorinspector/v1/redis"
)

// Store persists cache entries. Implementations must be safe for concurrent
// use. A missing key is reported with ok == false, never with an error.
type Store interface {
	Get(ctx context.Context, key Key) (entry *Entry, ok bool, err error)
	Put(ctx context.Context, key Key, entry *Entry) error
	Delete(ctx context.Context, key Key) error
	DeleteDatabase(ctx context.Context, database string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]Key, error)
	Close() error
}

// StoreType selects a Store implementation.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// DefaultKeyPrefix namespaces redis keys.
const DefaultKeyPrefix = "vectorinspector:cache:"

// StoreOption is a functional option for configuring a store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient redis.Client
	keyPrefix   string
}

// WithRedisClient sets the client used by the redis store.
func WithRedisClient(client redis.Client) StoreOption {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithKeyPrefix overrides DefaultKeyPrefix for the redis store.
func WithKeyPrefix(prefix string) StoreOption {
	return func(c *storeConfig) { c.keyPrefix = prefix }
}

// NewStore creates a Store of the given type. An empty type selects memory.
// The redis store requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{keyPrefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory, "":
		return newMemoryStore(), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, fmt.Errorf("%w: redis store requires a client", ErrInvalidConfig)
		}
		return &redisStore{client: cfg.redisClient, prefix: cfg.keyPrefix}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoreType, storeType)
	}
}

// memoryStore keeps private copies of entries in a map.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[Key]*Entry)}
}

func (s *memoryStore) Get(_ context.Context, key Key) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return e.Clone(), true, nil
}

func (s *memoryStore) Put(_ context.Context, key Key, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry.Clone()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *memoryStore) DeleteDatabase(_ context.Context, database string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.entries {
		if k.Database == database {
			delete(s.entries, k)
		}
	}
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[Key]*Entry)
	return nil
}

func (s *memoryStore) Keys(context.Context) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys, nil
}

func (s *memoryStore) Close() error { return nil }

// redisStore keeps JSON encoded entries under prefix + enc(database) + ":" +
// enc(collection). Components are base64url encoded so names containing ':'
// or glob characters cannot collide or leak into SCAN patterns. Entries
// never expire. The client is shared and left open on Close.
type redisStore struct {
	client redis.Client
	prefix string
}

var keyEncoding = base64.RawURLEncoding

func (s *redisStore) redisKey(key Key) string {
	return s.prefix + keyEncoding.EncodeToString([]byte(key.Database)) + ":" + keyEncoding.EncodeToString([]byte(key.Collection))
}

func (s *redisStore) parseKey(redisKey string) (Key, bool) {
	db, coll, ok := strings.Cut(strings.TrimPrefix(redisKey, s.prefix), ":")
	if !ok {
		return Key{}, false
	}
	d, err1 := keyEncoding.DecodeString(db)
	c, err2 := keyEncoding.DecodeString(coll)
	if err1 != nil || err2 != nil {
		return Key{}, false
	}
	return Key{Database: string(d), Collection: string(c)}, true
}

func (s *redisStore) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key))
	if err != nil {
		if redis.IsNilError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	e, err := decodeEntry([]byte(raw))
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (s *redisStore) Put(ctx context.Context, key Key, entry *Entry) error {
	return s.client.SetJSON(ctx, s.redisKey(key), entry, 0)
}

func (s *redisStore) Delete(ctx context.Context, key Key) error {
	_, err := s.client.Delete(ctx, s.redisKey(key))
	return err
}

func (s *redisStore) DeleteDatabase(ctx context.Context, database string) error {
	_, err := s.client.DeleteMatching(ctx, s.prefix+keyEncoding.EncodeToString([]byte(database))+":*")
	return err
}

func (s *redisStore) Clear(ctx context.Context) error {
	_, err := s.client.DeleteMatching(ctx, s.prefix+"*")
	return err
}

func (s *redisStore) Keys(ctx context.Context) ([]Key, error) {
	raw, err := s.client.ScanKeys(ctx, s.prefix+"*")
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, len(raw))
	for _, r := range raw {
		if k, ok := s.parseKey(r); ok {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys, nil
}

func (s *redisStore) Close() error { return nil }

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Database != keys[j].Database {
			return keys[i].Database < keys[j].Database
		}
		return keys[i].Collection < keys[j].Collection
	})
}
