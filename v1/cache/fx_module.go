package cache

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/redis"
)

// FXModule provides the process-wide *Manager.
//
// Usage:
//
//	app := fx.New(
//	    cache.FXModule,
//	    fx.Supply(cache.Config{Store: cache.StoreTypeMemory}),
//	)
var FXModule = fx.Module("cache",
	fx.Provide(
		NewManagerWithDI,
	),
	fx.Invoke(RegisterCacheLifecycle),
)

// CacheParams groups the dependencies of the Manager.
type CacheParams struct {
	fx.In

	Config   Config                 `optional:"true"`
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Redis    *redis.RedisClient     `optional:"true"`
	Settings SettingsReader         `optional:"true"`
}

// NewManagerWithDI builds the store named in the config and wraps it in a
// Manager. The settings toggle, when present, decides the initial state.
func NewManagerWithDI(params CacheParams) (*Manager, error) {
	opts := []StoreOption{}
	if params.Redis != nil {
		opts = append(opts, WithRedisClient(params.Redis))
	}
	if params.Config.KeyPrefix != "" {
		opts = append(opts, WithKeyPrefix(params.Config.KeyPrefix))
	}
	store, err := NewStore(params.Config.Store, opts...)
	if err != nil {
		return nil, err
	}

	m := NewManager(store, params.Logger,
		WithObserver(params.Observer),
		WithTimeout(params.Config.Timeout),
	)
	if params.Settings != nil && !params.Settings.CacheEnabled() {
		m.Disable()
	}
	return m, nil
}

// CacheLifecycleParams groups the dependencies for lifecycle management.
type CacheLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Manager   *Manager
}

// RegisterCacheLifecycle closes the store on shutdown.
func RegisterCacheLifecycle(params CacheLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return params.Manager.Close()
		},
	})
}
