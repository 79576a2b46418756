package connection

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vectorinspector/v1/cache"
	"github.com/Aleph-Alpha/vectorinspector/v1/provider"
)

// FXModule provides the connection *Manager. It expects a *provider.Factory
// and picks up the cache and provider manager when they are present.
var FXModule = fx.Module("connection",
	fx.Provide(
		NewManagerWithDI,
	),
	fx.Invoke(RegisterManagerLifecycle),
)

// ManagerParams groups the dependencies of the Manager.
type ManagerParams struct {
	fx.In

	Factory  *provider.Factory
	Provider *provider.Manager `optional:"true"`
	Cache    *cache.Manager    `optional:"true"`
	Logger   Logger            `optional:"true"`
}

// NewManagerWithDI builds a Manager from injected dependencies.
func NewManagerWithDI(params ManagerParams) *Manager {
	var opts []Option
	if params.Cache != nil {
		opts = append(opts, WithCache(params.Cache))
	}
	if params.Provider != nil {
		opts = append(opts, WithActiveSink(params.Provider))
	}
	return NewManager(params.Factory, params.Logger, opts...)
}

// RegisterManagerLifecycle closes every connection on shutdown.
func RegisterManagerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			m.CloseAll(ctx)
			return nil
		},
	})
}
