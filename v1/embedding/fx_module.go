package embedding

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// FXModule wires the embedding client and the model registry into Fx.
//
// It provides:
//   - *Config           (NewConfig, unless the app supplies its own)
//   - *Client           (nil when no endpoint is configured)
//   - vectordb.Embedder (the client, or nil)
//   - *Registry         (DefaultRegistry)
var FXModule = fx.Module(
	"embedding",

	fx.Provide(
		NewClientWithDI,
		NewEmbedder,
		DefaultRegistry,
	),

	fx.Invoke(RegisterEmbeddingLifecycle),
)

// ClientParams groups the dependencies of the Client.
type ClientParams struct {
	fx.In

	Config   *Config                `optional:"true"`
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI builds the client. Embedding is optional for browsing, so
// a missing endpoint yields a nil client instead of an error.
func NewClientWithDI(params ClientParams) (*Client, error) {
	cfg := params.Config
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.Endpoint == "" {
		if params.Logger != nil {
			params.Logger.Info("Embedding endpoint not configured; text search and auto-embedding are disabled", nil)
		}
		return nil, nil
	}
	return NewClient(cfg, params.Logger, params.Observer)
}

// NewEmbedder exposes the client as a vectordb.Embedder, or nil.
func NewEmbedder(c *Client) vectordb.Embedder {
	if c == nil {
		return nil
	}
	return c
}

// RegisterEmbeddingLifecycle closes the client on shutdown.
func RegisterEmbeddingLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if client == nil {
				return nil
			}
			return client.Close()
		},
	})
}
