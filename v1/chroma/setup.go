package chroma

import (
	"context"
	"sync"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/localstore"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the adapter.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=chroma
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Connection is the remote Chroma adapter built on the chroma-go v2 client.
// All collection calls are scoped to the configured tenant and database.
type Connection struct {
	*vectordb.Base

	cfg      Config
	logger   Logger
	observer observability.Observer

	dial func(Config) (api, error)

	mu   sync.RWMutex
	conn api

	// collections caches name → collection, since data calls go through a
	// collection handle.
	collections sync.Map
}

var _ vectordb.Connection = (*Connection)(nil)

// New constructs an unconnected remote adapter.
func New(cfg Config, logger Logger, observer observability.Observer, opts ...vectordb.BaseOption) *Connection {
	return &Connection{
		Base:     vectordb.NewBase(vectordb.ProviderChroma, "http", opts...),
		cfg:      cfg.withDefaults(),
		logger:   logger,
		observer: observer,
		dial:     dialSDK,
	}
}

// NewLocal returns a file-based Chroma connection for the persistent and
// ephemeral modes.
func NewLocal(cfg localstore.Config, logger localstore.Logger, observer observability.Observer, opts ...vectordb.BaseOption) *localstore.Connection {
	return localstore.NewConnection(vectordb.ProviderChroma, cfg, logger, observer, opts...)
}

// Connect checks the heartbeat endpoint.
func (c *Connection) Connect(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && c.IsConnected() {
		return true
	}

	c.logger.Info("Connecting to Chroma", nil, map[string]interface{}{
		"url":      c.cfg.BaseURL(),
		"tenant":   c.cfg.Tenant,
		"database": c.cfg.Database,
	})

	conn, err := c.dial(c.cfg)
	if err != nil {
		c.logger.Error("Failed to create Chroma client", err, map[string]interface{}{"url": c.cfg.BaseURL()})
		return false
	}

	start := time.Now()
	hctx, cancel := context.WithTimeout(ctx, min(c.cfg.Timeout, 5*time.Second))
	err = conn.Heartbeat(hctx)
	cancel()
	c.observeOperation("connect", c.cfg.Host, time.Since(start), err, 0, nil)
	if err != nil {
		_ = conn.Close()
		c.logger.Error("Chroma heartbeat failed", err, map[string]interface{}{"url": c.cfg.BaseURL()})
		return false
	}

	c.conn = conn
	c.MarkConnected()
	c.logger.Info("Chroma client connected successfully", nil, nil)
	return true
}

// Disconnect closes the client. Chroma holds no server-side session.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MarkDisconnected()
	c.collections.Clear()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Connection) ConnectionInfo() vectordb.ConnectionInfo {
	return c.Info(map[string]any{
		"host":     c.cfg.Host,
		"port":     c.cfg.Port,
		"ssl":      c.cfg.SSL,
		"tenant":   c.cfg.Tenant,
		"database": c.cfg.Database,
		"api_key":  c.cfg.APIKey != "",
	})
}

func (c *Connection) client() (api, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil, vectordb.ErrNotConnected
	}
	return c.conn, nil
}

func (c *Connection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
