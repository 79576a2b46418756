package settings

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vectorinspector/v1/cache"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// FXModule provides the *Service together with the views other packages
// depend on: vectordb.ModelLookup for the adapters and cache.SettingsReader
// for the cache manager. It also keeps the cache in sync with settings
// changes.
var FXModule = fx.Module("settings",
	fx.Provide(
		NewServiceWithDI,
		func(s *Service) vectordb.ModelLookup { return s },
		func(s *Service) cache.SettingsReader { return s },
	),
	fx.Invoke(RegisterCacheSync),
)

// ServiceParams groups the dependencies of the Service.
type ServiceParams struct {
	fx.In

	Config Config `optional:"true"`
	Logger Logger `optional:"true"`
}

// NewServiceWithDI loads the settings from injected configuration.
func NewServiceWithDI(params ServiceParams) (*Service, error) {
	return New(params.Config, params.Logger)
}

// CacheSyncParams groups the dependencies of RegisterCacheSync.
type CacheSyncParams struct {
	fx.In

	Service *Service
	Cache   *cache.Manager `optional:"true"`
}

// RegisterCacheSync applies cache_enabled to the cache manager and drops all
// cached state whenever another setting changes.
func RegisterCacheSync(params CacheSyncParams) {
	if params.Cache == nil {
		return
	}
	c, s := params.Cache, params.Service
	s.OnChange(func(key string, _ any) {
		if key == KeyCacheEnabled {
			c.ApplySettings(s)
			return
		}
		c.Invalidate("", "")
	})
}
