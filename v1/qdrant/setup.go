package qdrant

import (
	"context"
	"fmt"
	"sync"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/Aleph-Alpha/vectorinspector/v1/localstore"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the adapter.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=qdrant
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Connection is the remote Qdrant adapter. It talks gRPC through the
// official Go client.
type Connection struct {
	*vectordb.Base

	cfg      *Config
	logger   Logger
	observer observability.Observer

	mu  sync.RWMutex
	api *qdrant.Client
}

var _ vectordb.Connection = (*Connection)(nil)

// New constructs an unconnected remote adapter. A REST port (6333) is
// replaced by the gRPC port.
//
// Example:
//
//	conn := qdrant.New(qdrant.FromEndpoint("localhost"), log, obs)
//	if !conn.Connect(ctx) { ... }
func New(cfg *Config, logger Logger, observer observability.Observer, opts ...vectordb.BaseOption) *Connection {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	normalized := *cfg
	if normalized.Port == 0 {
		normalized.Port = DefaultGRPCPort
	}
	if normalized.Port == restPort {
		logger.Warn("Qdrant REST port configured, using gRPC port instead", nil, map[string]interface{}{
			"configured_port": restPort,
			"grpc_port":       DefaultGRPCPort,
		})
		normalized.Port = DefaultGRPCPort
	}
	if normalized.Timeout <= 0 {
		normalized.Timeout = DefaultConfig().Timeout
	}
	if normalized.BatchSize <= 0 {
		normalized.BatchSize = DefaultConfig().BatchSize
	}
	return &Connection{
		Base:     vectordb.NewBase(vectordb.ProviderQdrant, "http", opts...),
		cfg:      &normalized,
		logger:   logger,
		observer: observer,
	}
}

// NewLocal returns a file-based Qdrant connection for the persistent and
// ephemeral modes.
func NewLocal(cfg localstore.Config, logger localstore.Logger, observer observability.Observer, opts ...vectordb.BaseOption) *localstore.Connection {
	return localstore.NewConnection(vectordb.ProviderQdrant, cfg, logger, observer, opts...)
}

// Connect creates the gRPC client and verifies the server with a health check.
func (c *Connection) Connect(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil && c.IsConnected() {
		return true
	}

	c.logger.Info("Connecting to Qdrant", nil, map[string]interface{}{
		"endpoint": c.cfg.Endpoint,
		"port":     c.cfg.Port,
	})

	start := time.Now()
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   c.cfg.Endpoint,
		Port:                   c.cfg.Port,
		APIKey:                 c.cfg.ApiKey,
		UseTLS:                 c.cfg.UseTLS,
		SkipCompatibilityCheck: !c.cfg.CheckCompatibility,
	})
	if err != nil {
		err = fmt.Errorf("[Qdrant] failed to initialize client: %w", err)
		c.observeOperation("connect", c.cfg.Endpoint, time.Since(start), err, 0, nil)
		c.logger.Error("Failed to connect to Qdrant", err, nil)
		return false
	}

	if err := healthCheck(ctx, client, c.cfg.Timeout); err != nil {
		c.observeOperation("connect", c.cfg.Endpoint, time.Since(start), err, 0, nil)
		c.logger.Error("Qdrant health check failed", err, map[string]interface{}{
			"endpoint": c.cfg.Endpoint,
		})
		_ = client.Close()
		return false
	}

	c.api = client
	c.MarkConnected()
	c.observeOperation("connect", c.cfg.Endpoint, time.Since(start), nil, 0, nil)
	c.logger.Info("Qdrant client connected successfully", nil, nil)
	return true
}

// healthCheck calls the health endpoint through the SDK.
func healthCheck(ctx context.Context, client *qdrant.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, min(timeout, 5*time.Second))
	defer cancel()

	if _, err := client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("[Qdrant] health check failed: %w", err)
	}
	return nil
}

// Disconnect closes the gRPC connection.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MarkDisconnected()
	if c.api == nil {
		return nil
	}
	err := c.api.Close()
	c.api = nil
	c.logger.Info("Qdrant client closed", nil, nil)
	return err
}

// ConnectionInfo reports the endpoint.
func (c *Connection) ConnectionInfo() vectordb.ConnectionInfo {
	return c.Info(map[string]any{
		"host":    c.cfg.Endpoint,
		"port":    c.cfg.Port,
		"tls":     c.cfg.UseTLS,
		"api_key": c.cfg.ApiKey != "",
	})
}

// SupportedFilterOperators reports substring matching as server side.
func (c *Connection) SupportedFilterOperators() []vectordb.FilterOperator {
	ops := vectordb.DefaultFilterOperators()
	for i := range ops {
		ops[i].ServerSide = true
	}
	return ops
}

// client returns the gRPC client after the state check.
func (c *Connection) client() (*qdrant.Client, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return nil, ErrClientNotInitialized
	}
	return c.api, nil
}

func (c *Connection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
