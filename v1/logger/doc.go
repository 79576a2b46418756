// Package logger provides the structured logger shared by every vector inspector package.
//
// The logger wraps Uber's zap and exposes a deliberately small surface: one method per
// level, each taking a message, an optional error and optional field maps. Packages that
// log depend on their own narrow Logger interface with the same method set, so tests can
// substitute gomock mocks and production code receives *LoggerClient through fx.
//
// # Direct Usage (Without FX)
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:       logger.Info,
//		ServiceName: "vector-inspector",
//	})
//
//	log.Info("Connected to provider", nil, map[string]interface{}{
//		"provider":   "qdrant",
//		"collection": "docs",
//	})
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule,
//		fx.Provide(func() logger.Config {
//			return logger.Config{Level: logger.Debug, ServiceName: "vector-inspector"}
//		}),
//	)
//
// # Configuration
//
//	VECTOR_INSPECTOR_LOG_LEVEL=debug   # debug, info, warning, error
//
// # Thread Safety
//
// All methods are safe for concurrent use by multiple goroutines.
package logger
