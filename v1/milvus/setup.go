package milvus

import (
	"context"
	"sync"
	"time"

	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the adapter.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=milvus
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Connection is the Milvus adapter built on the v2 Go client.
type Connection struct {
	*vectordb.Base

	cfg      Config
	logger   Logger
	observer observability.Observer

	mu     sync.RWMutex
	client *milvusclient.Client

	// loaded remembers collections already loaded into memory.
	loaded sync.Map
}

var _ vectordb.Connection = (*Connection)(nil)

// New constructs an unconnected adapter.
func New(cfg Config, logger Logger, observer observability.Observer, opts ...vectordb.BaseOption) *Connection {
	return &Connection{
		Base:     vectordb.NewBase(vectordb.ProviderMilvus, "http", opts...),
		cfg:      cfg.withDefaults(),
		logger:   logger,
		observer: observer,
	}
}

// Connect dials the server and selects the configured database.
func (c *Connection) Connect(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.IsConnected() {
		return true
	}

	c.logger.Info("Connecting to Milvus", nil, map[string]interface{}{
		"address":  c.cfg.Address(),
		"database": c.cfg.Database,
		"tls":      c.cfg.TLS(),
	})

	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	client, err := milvusclient.New(cctx, &milvusclient.ClientConfig{
		Address:       c.cfg.Address(),
		Username:      c.cfg.User,
		Password:      c.cfg.Password,
		APIKey:        c.cfg.Token,
		DBName:        c.cfg.Database,
		EnableTLSAuth: c.cfg.TLS(),
	})
	if err == nil {
		// Dialing is lazy for some transports; a cheap call proves the link.
		_, err = client.ListCollections(cctx, milvusclient.NewListCollectionOption())
		if err != nil {
			_ = client.Close(ctx)
		}
	}
	c.observeOperation("connect", c.cfg.Address(), time.Since(start), err, 0, nil)
	if err != nil {
		c.logger.Error("Failed to connect to Milvus", err, map[string]interface{}{
			"address": c.cfg.Address(),
		})
		return false
	}

	c.client = client
	c.MarkConnected()
	c.logger.Info("Milvus client connected successfully", nil, nil)
	return true
}

// Disconnect closes the client.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MarkDisconnected()
	c.loaded.Clear()
	if c.client == nil {
		return nil
	}
	err := c.client.Close(ctx)
	c.client = nil
	if err != nil {
		c.logger.Warn("Error closing Milvus client", err, nil)
	}
	return err
}

func (c *Connection) ConnectionInfo() vectordb.ConnectionInfo {
	return c.Info(map[string]any{
		"address":  c.cfg.Address(),
		"database": c.cfg.Database,
		"user":     c.cfg.User,
		"token":    c.cfg.Token != "",
	})
}

func (c *Connection) cli() (*milvusclient.Client, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, ErrClientNotInitialized
	}
	return c.client, nil
}

func (c *Connection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
