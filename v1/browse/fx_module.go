package browse

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vectorinspector/v1/cache"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
)

// FXModule provides a *Loader and a *Searcher sharing the cache manager.
var FXModule = fx.Module("browse",
	fx.Provide(
		NewLoaderWithDI,
		NewSearcherWithDI,
	),
)

// Params groups the dependencies of the loader and the searcher.
type Params struct {
	fx.In

	Cache    *cache.Manager         `optional:"true"`
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

func (p Params) cache() Cache {
	if p.Cache == nil {
		return nil
	}
	return p.Cache
}

// NewLoaderWithDI builds a Loader from injected dependencies.
func NewLoaderWithDI(params Params) *Loader {
	return NewLoader(params.cache(), params.Logger, WithObserver(params.Observer))
}

// NewSearcherWithDI builds a Searcher from injected dependencies.
func NewSearcherWithDI(params Params) *Searcher {
	return NewSearcher(params.cache(), params.Logger, WithObserver(params.Observer))
}
