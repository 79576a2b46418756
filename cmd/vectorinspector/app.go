package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vectorinspector/v1/browse"
	"github.com/Aleph-Alpha/vectorinspector/v1/cache"
	"github.com/Aleph-Alpha/vectorinspector/v1/connection"
	"github.com/Aleph-Alpha/vectorinspector/v1/embedding"
	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/metrics"
	"github.com/Aleph-Alpha/vectorinspector/v1/provider"
	"github.com/Aleph-Alpha/vectorinspector/v1/redis"
	"github.com/Aleph-Alpha/vectorinspector/v1/settings"
	"github.com/Aleph-Alpha/vectorinspector/v1/taskrunner"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

const (
	startTimeout = 15 * time.Second
	stopTimeout  = 10 * time.Second
)

// services is what the commands work with once the app has started.
type services struct {
	fx.In

	Logger      *logger.LoggerClient
	Connections *connection.Manager
	Providers   *provider.Manager
	Loader      *browse.Loader
	Searcher    *browse.Searcher
	Runner      *taskrunner.Runner
	Settings    *settings.Service
	Registry    *embedding.Registry
	Cache       *cache.Manager
}

// loggers hands every package a named child of the shared zap client under
// its own Logger interface.
var loggers = fx.Provide(
	func(l *logger.LoggerClient) cache.Logger { return l.Named("cache") },
	func(l *logger.LoggerClient) redis.Logger { return l.Named("redis") },
	func(l *logger.LoggerClient) taskrunner.Logger { return l.Named("taskrunner") },
	func(l *logger.LoggerClient) provider.Logger { return l.Named("provider") },
	func(l *logger.LoggerClient) connection.Logger { return l.Named("connection") },
	func(l *logger.LoggerClient) browse.Logger { return l.Named("browse") },
	func(l *logger.LoggerClient) embedding.Logger { return l.Named("embedding") },
	func(l *logger.LoggerClient) settings.Logger { return l.Named("settings") },
)

// appOptions assembles the fx graph for cfg. The redis module is only part
// of the graph when the cache is configured to use it.
func appOptions(cfg Config) []fx.Option {
	opts := []fx.Option{
		fx.Supply(
			cfg.Log,
			cfg.Metrics,
			cfg.Cache,
			cfg.Runner,
			cfg.Settings,
			cfg.embeddingConfig(),
		),
		logger.FXModule,
		loggers,
		metrics.FXModule,
		settings.FXModule,
		embedding.FXModule,
		cache.FXModule,
		fx.Provide(
			func(m *cache.Manager) provider.Invalidator { return m },
			func(m *metrics.Metrics) taskrunner.Gauge { return m },
		),
		provider.FXModule,
		connection.FXModule,
		browse.FXModule,
		taskrunner.FXModule,
		fx.NopLogger,
	}
	if cfg.Cache.Store == cache.StoreTypeRedis {
		opts = append(opts, fx.Supply(cfg.Redis), redis.FXModule)
	}
	return opts
}

// run starts the app, hands the services to fn and stops the app again.
func run(ctx context.Context, cfg Config, fn func(context.Context, services) error) error {
	var svc services
	app := fx.New(append(appOptions(cfg), fx.Populate(&svc))...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("assemble application: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	runErr := fn(ctx, svc)

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop application: %w", err)
	}
	return runErr
}

// withProfile loads the config, opens the selected profile and runs fn with
// its connection active.
func withProfile(ctx context.Context, flags *globalFlags, fn func(context.Context, services, string, vectordb.Connection) error) error {
	cfg, err := flags.config()
	if err != nil {
		return err
	}
	profile, err := cfg.profile(flags.profile)
	if err != nil {
		return err
	}
	return run(ctx, cfg, func(ctx context.Context, svc services) error {
		id, err := svc.Connections.Open(ctx, profile)
		if err != nil {
			return err
		}
		inst, ok := svc.Connections.Get(id)
		if !ok {
			return connection.ErrNotFound
		}
		svc.Logger.Debug("Profile opened", nil, map[string]interface{}{
			"profile":  inst.DisplayName(),
			"provider": string(inst.Profile.Provider),
		})
		return fn(ctx, svc, id, inst.Conn)
	})
}

func (f *globalFlags) config() (Config, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return Config{}, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}
