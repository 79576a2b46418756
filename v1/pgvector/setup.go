package pgvector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the adapter.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=pgvector
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Connection is the pgvector adapter. Every collection is a table in the
// public schema with the columns id, document, metadata and embedding.
//
// Concurrency: the active *gorm.DB is kept in an atomic pointer so
// Disconnect does not block readers.
type Connection struct {
	*vectordb.Base

	cfg      Config
	logger   Logger
	observer observability.Observer

	client atomic.Pointer[gorm.DB]
}

var _ vectordb.Connection = (*Connection)(nil)

// New constructs an unconnected adapter.
func New(cfg Config, logger Logger, observer observability.Observer, opts ...vectordb.BaseOption) *Connection {
	return &Connection{
		Base:     vectordb.NewBase(vectordb.ProviderPgVector, "http", opts...),
		cfg:      cfg.withDefaults(),
		logger:   logger,
		observer: observer,
	}
}

// connectToPostgres opens the gorm handle and applies pool settings.
func connectToPostgres(cfg Config) (*gorm.DB, error) {
	database, err := gorm.Open(
		postgres.Open(cfg.Connection.DSN()),
		&gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Discard,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgresSQL database: %w", err)
	}

	databaseInstance, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgresSQL database instance: %w", err)
	}

	databaseInstance.SetMaxOpenConns(cfg.ConnectionDetails.MaxOpenConns)
	databaseInstance.SetMaxIdleConns(cfg.ConnectionDetails.MaxIdleConns)
	databaseInstance.SetConnMaxLifetime(cfg.ConnectionDetails.ConnMaxLifetime)

	return database, nil
}

// Connect opens the pool, pings the server and makes sure the vector
// extension is installed.
func (c *Connection) Connect(ctx context.Context) bool {
	if c.client.Load() != nil && c.IsConnected() {
		return true
	}

	c.logger.Info("Connecting to PostgreSQL", nil, map[string]interface{}{
		"host":     c.cfg.Connection.Host,
		"port":     c.cfg.Connection.Port,
		"database": c.cfg.Connection.DbName,
	})

	start := time.Now()
	db, err := connectToPostgres(c.cfg)
	if err == nil {
		err = healthCheck(ctx, db)
	}
	if err == nil {
		ectx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		err = db.WithContext(ectx).Exec(sqlCreateExtension).Error
		cancel()
		if err != nil && IsPermissionError(err) {
			c.logger.Warn("Cannot create vector extension, assuming it is installed", err, nil)
			err = nil
		}
	}
	c.observeOperation("connect", c.cfg.Connection.DbName, time.Since(start), err, 0, nil)
	if err != nil {
		c.logger.Error("Failed to connect to PostgreSQL", err, map[string]interface{}{
			"host": c.cfg.Connection.Host,
		})
		if db != nil {
			closeDB(db)
		}
		return false
	}

	c.client.Store(db)
	c.MarkConnected()
	c.logger.Info("Successfully connected to PostgreSQL", nil, nil)
	return true
}

// healthCheck pings the database with a timeout of 5 seconds.
func healthCheck(ctx context.Context, dbConn *gorm.DB) error {
	db, err := dbConn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance during health check: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed during health check: %w", err)
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Disconnect closes the pool.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.MarkDisconnected()
	db := c.client.Swap(nil)
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	c.logger.Info("PostgreSQL connection closed", nil, nil)
	return nil
}

// ConnectionInfo reports the server and database, never the password.
func (c *Connection) ConnectionInfo() vectordb.ConnectionInfo {
	return c.Info(map[string]any{
		"host":     c.cfg.Connection.Host,
		"port":     c.cfg.Connection.Port,
		"database": c.cfg.Connection.DbName,
		"user":     c.cfg.Connection.User,
	})
}

// db returns a context-bound handle after the state check. The returned
// cancel func must be called when the statement is done.
func (c *Connection) db(ctx context.Context) (*gorm.DB, context.CancelFunc, error) {
	if err := c.Guard(); err != nil {
		return nil, nil, err
	}
	db := c.client.Load()
	if db == nil {
		return nil, nil, ErrClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	return db.WithContext(ctx), cancel, nil
}
