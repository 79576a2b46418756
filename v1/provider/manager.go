package provider

import (
	"context"
	"sync/atomic"

	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Invalidator drops cached state for a (database, collection) pair. An empty
// collection drops the whole database.
type Invalidator interface {
	Invalidate(database, collection string)
}

// Manager fronts the active connection for provider-agnostic callers. Read
// facades never fail: adapter errors are logged and reported as empty
// results. Write facades return a success flag and a message suitable for a
// status bar.
type Manager struct {
	logger Logger
	cache  Invalidator
	active atomic.Pointer[activeConnection]
}

type activeConnection struct {
	id   string
	conn vectordb.Connection
}

// NewManager returns a Manager without an active connection. cache may be nil.
func NewManager(log Logger, cache Invalidator) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{logger: log, cache: cache}
}

// SetConnection makes conn the active connection. id is the database key used
// for cache invalidation. A nil conn clears the active connection.
func (m *Manager) SetConnection(id string, conn vectordb.Connection) {
	if conn == nil {
		m.active.Store(nil)
		return
	}
	m.active.Store(&activeConnection{id: id, conn: conn})
}

// Connection returns the active connection and its id.
func (m *Manager) Connection() (string, vectordb.Connection) {
	a := m.active.Load()
	if a == nil {
		return "", nil
	}
	return a.id, a.conn
}

// ProviderType reports the provider of the active connection.
func (m *Manager) ProviderType() (vectordb.ProviderTag, bool) {
	_, conn := m.Connection()
	return ProviderType(conn)
}

// Databases lists the databases of the active connection.
func (m *Manager) Databases(ctx context.Context) []string {
	_, conn := m.Connection()
	if conn == nil {
		return []string{}
	}
	dbs, err := conn.ListDatabases(ctx)
	if err != nil {
		m.logger.Error("Failed to list databases", err, m.fields(conn, ""))
		return []string{}
	}
	if dbs == nil {
		return []string{}
	}
	return dbs
}

// Collections lists the collections of the active connection.
func (m *Manager) Collections(ctx context.Context) []string {
	_, conn := m.Connection()
	if conn == nil {
		return []string{}
	}
	names, err := conn.ListCollections(ctx)
	if err != nil {
		m.logger.Error("Failed to list collections", err, m.fields(conn, ""))
		return []string{}
	}
	if names == nil {
		return []string{}
	}
	return names
}

// CollectionInfo describes a collection, or returns nil.
func (m *Manager) CollectionInfo(ctx context.Context, collection string) *vectordb.CollectionInfo {
	_, conn := m.Connection()
	if conn == nil {
		return nil
	}
	info, err := conn.GetCollectionInfo(ctx, collection)
	if err != nil {
		m.logger.Error("Failed to get collection info", err, m.fields(conn, collection))
		return nil
	}
	return info
}

// CreateCollection creates an empty collection on the active connection.
func (m *Manager) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) (bool, string) {
	return m.mutate(ctx, "create collection", name, func(ctx context.Context, conn vectordb.Connection) error {
		return conn.CreateCollection(ctx, name, vectorSize, distance)
	})
}

// DeleteCollection removes a collection and its cached state.
func (m *Manager) DeleteCollection(ctx context.Context, name string) (bool, string) {
	return m.mutate(ctx, "delete collection", name, func(ctx context.Context, conn vectordb.Connection) error {
		return conn.DeleteCollection(ctx, name)
	})
}

// AddItems inserts items into collection.
func (m *Manager) AddItems(ctx context.Context, collection string, in vectordb.AddRequest) (bool, string) {
	return m.mutate(ctx, "add items", collection, func(ctx context.Context, conn vectordb.Connection) error {
		return conn.AddItems(ctx, collection, in)
	})
}

// UpdateItems partially updates items in collection.
func (m *Manager) UpdateItems(ctx context.Context, collection string, in vectordb.UpdateRequest) (bool, string) {
	return m.mutate(ctx, "update items", collection, func(ctx context.Context, conn vectordb.Connection) error {
		return conn.UpdateItems(ctx, collection, in)
	})
}

// DeleteItems removes items from collection by id.
func (m *Manager) DeleteItems(ctx context.Context, collection string, ids []string) (bool, string) {
	return m.mutate(ctx, "delete items", collection, func(ctx context.Context, conn vectordb.Connection) error {
		return conn.DeleteItems(ctx, collection, ids)
	})
}

func (m *Manager) mutate(ctx context.Context, action, collection string, fn func(context.Context, vectordb.Connection) error) (bool, string) {
	id, conn := m.Connection()
	if conn == nil {
		return false, "No active connection"
	}
	if err := fn(ctx, conn); err != nil {
		m.logger.Error("Failed to "+action, err, m.fields(conn, collection))
		return false, "Failed to " + action + ": " + err.Error()
	}
	if m.cache != nil {
		m.cache.Invalidate(id, collection)
	}
	m.logger.Info("Completed "+action, nil, m.fields(conn, collection))
	return true, "Completed " + action
}

func (m *Manager) fields(conn vectordb.Connection, collection string) map[string]interface{} {
	f := map[string]interface{}{"provider": string(conn.ProviderTag())}
	if collection != "" {
		f["collection"] = collection
	}
	return f
}
