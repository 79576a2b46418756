package taskrunner

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides the shared *Runner and stops it on shutdown.
var FXModule = fx.Module("taskrunner",
	fx.Provide(
		NewRunnerWithDI,
	),
	fx.Invoke(RegisterRunnerLifecycle),
)

// RunnerParams groups the dependencies of the Runner.
type RunnerParams struct {
	fx.In

	Config Config `optional:"true"`
	Logger Logger `optional:"true"`
	Gauge  Gauge  `optional:"true"`
}

// NewRunnerWithDI builds a Runner from injected dependencies.
func NewRunnerWithDI(params RunnerParams) *Runner {
	r := New(params.Config, params.Logger)
	if params.Gauge != nil {
		r.SetGauge(params.Gauge)
	}
	return r
}

// RegisterRunnerLifecycle cancels all tasks on stop and waits for them
// within the stop deadline.
func RegisterRunnerLifecycle(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.Stop(ctx)
		},
	})
}
