package connection

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/provider"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the connection manager.
//
//go:generate mockgen -source=manager.go -destination=mock_logger.go -package=connection
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Creator builds an unconnected adapter from a profile. *provider.Factory
// implements it.
type Creator interface {
	Create(p provider.Profile) (vectordb.Connection, error)
}

// Invalidator drops cached browse state. Invalidate("", "") must clear
// everything and start a new cache generation.
type Invalidator interface {
	Invalidate(database, collection string)
}

// ActiveSink receives the active connection whenever it changes.
// *provider.Manager implements it.
type ActiveSink interface {
	SetConnection(id string, conn vectordb.Connection)
}

// Manager owns every open connection and tracks which one is active.
// Listing and mutation are serialized by a mutex; the active connection is
// also published through an atomic pointer so background workers can read
// it without locking.
type Manager struct {
	creator Creator
	cache   Invalidator
	sink    ActiveSink
	logger  Logger

	mu        sync.RWMutex
	instances map[string]*Instance
	order     []string
	activeID  string

	// publishMu orders publications; each one re-reads activeID so the last
	// publication always matches it.
	publishMu sync.Mutex
	active    atomic.Pointer[activeRef]
}

type activeRef struct {
	id   string
	conn vectordb.Connection
}

// Option customizes a Manager.
type Option func(*Manager)

// WithCache sets the cache that is cleared whenever the active connection changes.
func WithCache(c Invalidator) Option {
	return func(m *Manager) { m.cache = c }
}

// WithActiveSink sets the receiver notified of active connection changes.
func WithActiveSink(s ActiveSink) Option {
	return func(m *Manager) { m.sink = s }
}

// NewManager returns an empty Manager. A nil logger is replaced by a no-op logger.
func NewManager(creator Creator, log Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	m := &Manager{
		creator:   creator,
		logger:    log,
		instances: make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open creates an adapter for the profile, registers it and connects it.
// The profile id becomes the connection id; an empty id gets a fresh uuid.
// The first open connection becomes active.
//
// When the backend cannot be reached the instance stays registered in
// StateError, its id is returned together with ErrConnectFailed and
// Reconnect may be used to retry.
func (m *Manager) Open(ctx context.Context, p provider.Profile) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	m.mu.RLock()
	_, exists := m.instances[p.ID]
	full := len(m.instances) >= MaxConnections
	m.mu.RUnlock()
	if exists {
		return "", fmt.Errorf("%w: %s", ErrAlreadyOpen, p.ID)
	}
	if full {
		return "", fmt.Errorf("%w (%d)", ErrTooManyConnections, MaxConnections)
	}

	conn, err := m.creator.Create(p)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if _, exists := m.instances[p.ID]; exists {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrAlreadyOpen, p.ID)
	}
	if len(m.instances) >= MaxConnections {
		m.mu.Unlock()
		return "", fmt.Errorf("%w (%d)", ErrTooManyConnections, MaxConnections)
	}
	m.instances[p.ID] = &Instance{
		ID:      p.ID,
		Name:    p.Name,
		Profile: p,
		Conn:    conn,
		State:   StateConnecting,
	}
	m.order = append(m.order, p.ID)
	becameActive := m.activeID == ""
	if becameActive {
		m.activeID = p.ID
	}
	m.mu.Unlock()

	if becameActive {
		m.publish()
	}

	return p.ID, m.connect(ctx, p.ID, conn)
}

// Reconnect retries Connect on a registered instance.
func (m *Manager) Reconnect(ctx context.Context, id string) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	inst.State = StateConnecting
	inst.Error = ""
	conn := inst.Conn
	m.mu.Unlock()

	return m.connect(ctx, id, conn)
}

func (m *Manager) connect(ctx context.Context, id string, conn vectordb.Connection) error {
	if !conn.Connect(ctx) {
		err := fmt.Errorf("%w: %s", ErrConnectFailed, conn.ProviderTag())
		m.SetState(id, StateError, err.Error())
		m.logger.Warn("Connection failed", err, map[string]interface{}{"connection_id": id})
		return err
	}
	m.SetState(id, StateConnected, "")
	m.logger.Info("Connected", nil, map[string]interface{}{
		"connection_id": id,
		"provider":      string(conn.ProviderTag()),
	})

	if _, err := m.RefreshCollections(ctx, id); err != nil {
		m.logger.Warn("Failed to list collections after connect", err, map[string]interface{}{"connection_id": id})
	}
	return nil
}

// Close disconnects and removes a connection. When it was active, the first
// remaining connection (in open order) becomes active, or none.
func (m *Manager) Close(ctx context.Context, id string) bool {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.instances, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })

	wasActive := m.activeID == id
	if wasActive {
		m.activeID = ""
		if len(m.order) > 0 {
			m.activeID = m.order[0]
		}
	}
	m.mu.Unlock()

	if err := inst.Conn.Disconnect(ctx); err != nil {
		m.logger.Warn("Disconnect failed", err, map[string]interface{}{"connection_id": id})
	}
	if wasActive {
		m.publish()
	}
	m.logger.Info("Connection closed", nil, map[string]interface{}{"connection_id": id})
	return true
}

// CloseAll disconnects every connection and leaves none active.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	insts := make([]*Instance, 0, len(m.order))
	for _, id := range m.order {
		insts = append(insts, m.instances[id])
	}
	m.instances = make(map[string]*Instance)
	m.order = nil
	hadActive := m.activeID != ""
	m.activeID = ""
	m.mu.Unlock()

	for _, inst := range insts {
		if err := inst.Conn.Disconnect(ctx); err != nil {
			m.logger.Warn("Disconnect failed", err, map[string]interface{}{"connection_id": inst.ID})
		}
	}
	if hadActive {
		m.publish()
	}
}

// SetActive switches the active connection. Switching clears the browse
// cache before the new connection becomes visible to readers.
func (m *Manager) SetActive(id string) bool {
	m.mu.Lock()
	_, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if m.activeID == id {
		m.mu.Unlock()
		return true
	}
	m.activeID = id
	m.mu.Unlock()

	m.publish()
	return true
}

// publish clears the cache and exposes the current active connection to
// lock-free readers and the sink. It runs outside the manager lock.
func (m *Manager) publish() {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	if m.cache != nil {
		m.cache.Invalidate("", "")
	}

	m.mu.RLock()
	id := m.activeID
	var conn vectordb.Connection
	if inst, ok := m.instances[id]; ok {
		conn = inst.Conn
	}
	m.mu.RUnlock()

	if conn == nil {
		m.active.Store(nil)
	} else {
		m.active.Store(&activeRef{id: id, conn: conn})
	}
	if m.sink != nil {
		m.sink.SetConnection(id, conn)
	}
	m.logger.Debug("Active connection changed", nil, map[string]interface{}{"connection_id": id})
}

// ActiveConnection returns the active adapter and its id without taking the
// manager lock.
func (m *Manager) ActiveConnection() (string, vectordb.Connection) {
	a := m.active.Load()
	if a == nil {
		return "", nil
	}
	return a.id, a.conn
}

// Active returns a snapshot of the active connection.
func (m *Manager) Active() (Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[m.activeID]
	if !ok {
		return Instance{}, false
	}
	return inst.snapshot(), true
}

// ActiveID returns the id of the active connection, or "".
func (m *Manager) ActiveID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// Get returns a snapshot of one connection.
func (m *Manager) Get(id string) (Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return Instance{}, false
	}
	return inst.snapshot(), true
}

// List returns snapshots of all connections in open order.
func (m *Manager) List() []Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Instance, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.instances[id].snapshot())
	}
	return out
}

// Count returns the number of open connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// Rename changes the display name of a connection.
func (m *Manager) Rename(id, name string) bool {
	return m.update(id, func(inst *Instance) { inst.Name = name })
}

// SetState records a state transition. The error message is kept only for
// StateError.
func (m *Manager) SetState(id string, state State, message string) bool {
	return m.update(id, func(inst *Instance) {
		inst.State = state
		if state == StateError {
			inst.Error = message
		} else {
			inst.Error = ""
		}
	})
}

// SetActiveCollection records the collection being browsed on a connection.
func (m *Manager) SetActiveCollection(id, collection string) bool {
	return m.update(id, func(inst *Instance) { inst.ActiveCollection = collection })
}

// ActiveCollection returns the browsed collection of the active connection.
func (m *Manager) ActiveCollection() string {
	inst, ok := m.Active()
	if !ok {
		return ""
	}
	return inst.ActiveCollection
}

// UpdateCollections replaces the known collection names of a connection.
func (m *Manager) UpdateCollections(id string, collections []string) bool {
	c := slices.Clone(collections)
	return m.update(id, func(inst *Instance) { inst.Collections = c })
}

// RefreshCollections lists collections from the backend and stores them.
// On failure the previously known names are returned alongside the error.
func (m *Manager) RefreshCollections(ctx context.Context, id string) ([]string, error) {
	inst, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	names, err := inst.Conn.ListCollections(ctx)
	if err != nil {
		return inst.Collections, err
	}
	m.UpdateCollections(id, names)
	return slices.Clone(names), nil
}

func (m *Manager) update(id string, fn func(*Instance)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return false
	}
	fn(inst)
	return true
}
