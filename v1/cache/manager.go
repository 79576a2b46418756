package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
)

// Logger is the logging interface used by the cache.
//
//go:generate mockgen -source=manager.go -destination=mock_logger.go -package=cache
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// SettingsReader exposes the persisted cache toggle.
type SettingsReader interface {
	CacheEnabled() bool
}

// DefaultTimeout bounds each store call.
const DefaultTimeout = 2 * time.Second

// Manager holds at most one Entry per (database, collection). It never
// returns errors: store failures are logged and read as misses.
//
// When disabled, Get misses and writes are dropped. Disabling also drops
// every stored entry.
type Manager struct {
	store    Store
	logger   Logger
	observer observability.Observer
	timeout  time.Duration
	now      func() time.Time

	// mu serializes writes so Update and SetIfGeneration see a stable slot.
	mu         sync.Mutex
	enabled    atomic.Bool
	generation atomic.Uint64
}

// Option customizes a Manager.
type Option func(*Manager)

// WithObserver reports store operations to o.
func WithObserver(o observability.Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns an enabled Manager over store. A nil store selects the
// memory store.
func NewManager(store Store, log Logger, opts ...Option) *Manager {
	if store == nil {
		store = newMemoryStore()
	}
	if log == nil {
		log = logger.NewNop()
	}
	m := &Manager{
		store:   store,
		logger:  log,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.enabled.Store(true)
	return m
}

// Get returns a copy of the entry at (database, collection).
func (m *Manager) Get(database, collection string) (*Entry, bool) {
	if !m.enabled.Load() {
		return nil, false
	}
	ctx, cancel := m.context()
	defer cancel()

	start := time.Now()
	key := Key{Database: database, Collection: collection}
	e, ok, err := m.store.Get(ctx, key)
	m.observe("get", key, start, err, map[string]interface{}{"hit": ok})
	if err != nil {
		m.warn("Cache read failed", err, key)
		return nil, false
	}
	return e, ok
}

// Set replaces the entry at (database, collection) and stamps it with the
// current time.
func (m *Manager) Set(database, collection string, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(Key{Database: database, Collection: collection}, entry)
}

// SetIfGeneration is Set that is dropped when a global invalidation happened
// after gen was read. It reports whether the entry was written.
func (m *Manager) SetIfGeneration(gen uint64, database, collection string, entry Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation.Load() != gen {
		m.logger.Debug("Dropped cache write from a previous generation", nil, map[string]interface{}{
			"database":   database,
			"collection": collection,
			"generation": gen,
		})
		return false
	}
	return m.put(Key{Database: database, Collection: collection}, entry)
}

// Update applies f to the entry at (database, collection), creating an empty
// entry first when none exists.
func (m *Manager) Update(database, collection string, f Fields) {
	if !m.enabled.Load() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLocked(database, collection, f)
}

// UpdateIfGeneration is Update that is dropped when a global invalidation
// happened after gen was read. It reports whether the entry was written.
func (m *Manager) UpdateIfGeneration(gen uint64, database, collection string, f Fields) bool {
	if !m.enabled.Load() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation.Load() != gen {
		m.logger.Debug("Dropped cache update from a previous generation", nil, map[string]interface{}{
			"database":   database,
			"collection": collection,
			"generation": gen,
		})
		return false
	}
	m.updateLocked(database, collection, f)
	return true
}

func (m *Manager) updateLocked(database, collection string, f Fields) {
	ctx, cancel := m.context()
	defer cancel()

	key := Key{Database: database, Collection: collection}
	e, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.warn("Cache read failed", err, key)
	}
	if !ok || e == nil {
		e = &Entry{}
	}
	f.apply(e)
	m.put(key, *e)
}

// Invalidate drops cached state. With both arguments it drops one slot,
// with only database every slot of that database, and with neither
// everything. A collection without a database is ignored.
func (m *Manager) Invalidate(database, collection string) {
	switch {
	case database == "" && collection == "":
		m.Clear()
	case collection == "":
		m.mu.Lock()
		defer m.mu.Unlock()
		m.run("invalidate_database", Key{Database: database}, func(ctx context.Context) error {
			return m.store.DeleteDatabase(ctx, database)
		})
	case database != "":
		m.mu.Lock()
		defer m.mu.Unlock()
		key := Key{Database: database, Collection: collection}
		m.run("invalidate", key, func(ctx context.Context) error {
			return m.store.Delete(ctx, key)
		})
	}
}

// Clear drops every entry and starts a new generation.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

func (m *Manager) clearLocked() {
	m.generation.Add(1)
	m.run("clear", Key{}, m.store.Clear)
}

// Generation identifies the current cache epoch. Loads started before a
// global invalidation carry an older value and are refused by SetIfGeneration.
func (m *Manager) Generation() uint64 {
	return m.generation.Load()
}

// Enable turns caching on.
func (m *Manager) Enable() {
	m.enabled.Store(true)
}

// Disable turns caching off and drops every entry.
func (m *Manager) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled.Store(false)
	m.clearLocked()
}

// IsEnabled reports whether caching is on.
func (m *Manager) IsEnabled() bool {
	return m.enabled.Load()
}

// ApplySettings follows the persisted cache toggle. Any settings change
// invalidates everything.
func (m *Manager) ApplySettings(s SettingsReader) {
	if s == nil {
		return
	}
	if s.CacheEnabled() {
		m.Enable()
		m.Clear()
		return
	}
	m.Disable()
}

// Info lists the cached slots.
func (m *Manager) Info() Info {
	info := Info{Enabled: m.enabled.Load(), Entries: []EntryInfo{}}

	ctx, cancel := m.context()
	defer cancel()

	keys, err := m.store.Keys(ctx)
	if err != nil {
		m.warn("Cache listing failed", err, Key{})
		return info
	}
	for _, k := range keys {
		e, ok, err := m.store.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		info.Entries = append(info.Entries, EntryInfo{
			Database:         k.Database,
			Collection:       k.Collection,
			Timestamp:        e.Timestamp,
			HasData:          e.Data != nil,
			HasSearchResults: e.SearchResults != nil,
		})
	}
	info.EntryCount = len(info.Entries)
	return info
}

// Close releases the store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// put writes entry with a fresh timestamp. Callers hold mu.
func (m *Manager) put(key Key, entry Entry) bool {
	if !m.enabled.Load() {
		return false
	}
	entry.Timestamp = m.now()
	return m.run("set", key, func(ctx context.Context) error {
		return m.store.Put(ctx, key, &entry)
	})
}

func (m *Manager) run(op string, key Key, fn func(context.Context) error) bool {
	ctx, cancel := m.context()
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	m.observe(op, key, start, err, nil)
	if err != nil {
		m.warn("Cache "+op+" failed", err, key)
		return false
	}
	return true
}

func (m *Manager) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m *Manager) warn(msg string, err error, key Key) {
	m.logger.Warn(msg, err, map[string]interface{}{
		"database":   key.Database,
		"collection": key.Collection,
	})
}
