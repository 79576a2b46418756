// Package lancedb provides the LanceDB provider: a directory of tables,
// each table a collection, served by the embedded local store.
package lancedb

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Aleph-Alpha/vectorinspector/v1/localstore"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// DefaultPath is used when no directory is configured.
const DefaultPath = "./lancedb"

// Config selects the database directory.
type Config struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// tableName matches the names LanceDB accepts for tables.
var tableName = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// Connection is a LanceDB directory. Table names are validated before they
// reach the store, everything else is delegated.
type Connection struct {
	*localstore.Connection
	path string
}

var _ vectordb.Connection = (*Connection)(nil)

// New returns an unconnected connection to the directory in cfg.
func New(cfg Config, logger localstore.Logger, observer observability.Observer, opts ...vectordb.BaseOption) *Connection {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	return &Connection{
		Connection: localstore.NewConnection(vectordb.ProviderLanceDB, localstore.Config{
			Path: path,
			Mode: "persistent",
		}, logger, observer, opts...),
		path: path,
	}
}

// CreateCollection creates a table.
func (c *Connection) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	if name != "" && !tableName.MatchString(name) {
		return fmt.Errorf("%w: invalid table name %q", vectordb.ErrInvalidArgument, name)
	}
	return c.Connection.CreateCollection(ctx, name, vectorSize, distance)
}

func (c *Connection) ConnectionInfo() vectordb.ConnectionInfo {
	info := c.Connection.ConnectionInfo()
	if info.Details == nil {
		info.Details = map[string]any{}
	}
	info.Details["uri"] = c.path
	return info
}
