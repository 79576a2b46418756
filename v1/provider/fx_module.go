package provider

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// FXModule provides the Factory and the Manager.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    provider.FXModule,
//	)
var FXModule = fx.Module("provider",
	fx.Provide(
		NewFactoryWithDI,
		NewManagerWithDI,
	),
	fx.Invoke(RegisterManagerLifecycle),
)

// FactoryParams groups the optional collaborators handed to every adapter.
type FactoryParams struct {
	fx.In

	Logger      Logger                 `optional:"true"`
	Observer    observability.Observer `optional:"true"`
	Embedder    vectordb.Embedder      `optional:"true"`
	ModelLookup vectordb.ModelLookup   `optional:"true"`
}

// NewFactoryWithDI builds a Factory from injected collaborators.
func NewFactoryWithDI(params FactoryParams) *Factory {
	var opts []FactoryOption
	if params.Embedder != nil {
		opts = append(opts, WithEmbedder(params.Embedder))
	}
	if params.ModelLookup != nil {
		opts = append(opts, WithModelLookup(params.ModelLookup))
	}
	return NewFactory(params.Logger, params.Observer, opts...)
}

// ManagerParams groups the dependencies of the Manager.
type ManagerParams struct {
	fx.In

	Logger Logger      `optional:"true"`
	Cache  Invalidator `optional:"true"`
}

// NewManagerWithDI builds a Manager from injected collaborators.
func NewManagerWithDI(params ManagerParams) *Manager {
	return NewManager(params.Logger, params.Cache)
}

// ManagerLifecycleParams groups the dependencies for lifecycle management.
type ManagerLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Manager   *Manager
}

// RegisterManagerLifecycle disconnects the active connection on shutdown.
func RegisterManagerLifecycle(params ManagerLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_, conn := params.Manager.Connection()
			if conn == nil {
				return nil
			}
			params.Manager.SetConnection("", nil)
			return conn.Disconnect(ctx)
		},
	})
}
