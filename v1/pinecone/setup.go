package pinecone

import (
	"context"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the adapter.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=pinecone
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Connection maps Pinecone indexes onto collections.
type Connection struct {
	*vectordb.Base

	cfg      Config
	logger   Logger
	observer observability.Observer

	dial func(Config) (controlPlane, error)

	mu      sync.RWMutex
	control controlPlane
	// planes holds one data plane connection per index host.
	planes map[string]dataPlane

	// indexes caches index descriptions, which carry the data plane host.
	indexes sync.Map
}

var _ vectordb.Connection = (*Connection)(nil)

// New constructs an unconnected adapter. The API key is checked by Connect
// and, earlier, by the provider factory.
func New(cfg Config, logger Logger, observer observability.Observer, opts ...vectordb.BaseOption) *Connection {
	return &Connection{
		Base:     vectordb.NewBase(vectordb.ProviderPinecone, "cloud", opts...),
		cfg:      cfg.withDefaults(),
		logger:   logger,
		observer: observer,
		dial:     dialSDK,
	}
}

// Connect lists indexes to validate the API key.
func (c *Connection) Connect(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.control != nil && c.IsConnected() {
		return true
	}
	if c.cfg.APIKey == "" {
		c.logger.Error("Cannot connect to Pinecone", ErrMissingAPIKey, nil)
		return false
	}

	control, err := c.dial(c.cfg)
	if err != nil {
		c.logger.Error("Failed to create Pinecone client", err, nil)
		return false
	}

	start := time.Now()
	lctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	list, err := control.ListIndexes(lctx)
	cancel()
	c.observeOperation("connect", c.cfg.ControllerURL, time.Since(start), err, int64(len(list)), nil)
	if err != nil {
		c.logger.Error("Failed to connect to Pinecone", err, map[string]interface{}{
			"controller": c.cfg.ControllerURL,
		})
		return false
	}
	for _, idx := range list {
		c.indexes.Store(idx.Name, idx)
	}

	c.control = control
	c.planes = map[string]dataPlane{}
	c.MarkConnected()
	c.logger.Info("Pinecone client connected successfully", nil, map[string]interface{}{
		"indexes":   len(list),
		"namespace": c.cfg.Namespace,
	})
	return true
}

// Disconnect closes every data plane connection opened since Connect.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MarkDisconnected()
	for host, plane := range c.planes {
		if err := plane.Close(); err != nil {
			c.logger.Warn("Failed to close Pinecone index connection", err, map[string]interface{}{"host": host})
		}
	}
	c.planes = nil
	c.control = nil
	c.indexes.Clear()
	return nil
}

func (c *Connection) ConnectionInfo() vectordb.ConnectionInfo {
	return c.Info(map[string]any{
		"controller": c.cfg.ControllerURL,
		"namespace":  c.cfg.Namespace,
		"api_key":    c.cfg.APIKey != "",
	})
}

func (c *Connection) client() (controlPlane, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.control == nil {
		return nil, vectordb.ErrNotConnected
	}
	return c.control, nil
}

// index resolves the data plane of a collection, dialing it on first use.
func (c *Connection) index(ctx context.Context, control controlPlane, name string) (dataPlane, *pinecone.Index, error) {
	idx, err := c.describe(ctx, control, name, false)
	if err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.planes == nil {
		return nil, nil, vectordb.ErrNotConnected
	}
	if plane, ok := c.planes[idx.Host]; ok {
		return plane, idx, nil
	}
	plane, err := control.openIndex(idx.Host)
	if err != nil {
		return nil, nil, err
	}
	c.planes[idx.Host] = plane
	return plane, idx, nil
}

// forget drops the cached description and data plane of a deleted index.
func (c *Connection) forget(name string) {
	v, ok := c.indexes.LoadAndDelete(name)
	if !ok {
		return
	}
	host := v.(*pinecone.Index).Host
	c.mu.Lock()
	defer c.mu.Unlock()
	if plane, ok := c.planes[host]; ok {
		_ = plane.Close()
		delete(c.planes, host)
	}
}

func (c *Connection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
