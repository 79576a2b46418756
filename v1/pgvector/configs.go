package pgvector

import (
	"strconv"
	"strings"
	"time"
)

// Config holds the connection settings for a pgvector-enabled Postgres server.
type Config struct {
	Connection        ConnectionParams  `yaml:"connection" mapstructure:"connection"`
	ConnectionDetails ConnectionDetails `yaml:"connection_details" mapstructure:"connection_details"`

	// Timeout bounds every statement issued by the adapter.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// BatchSize is the number of rows written per INSERT statement.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`

	// IndexLists is the ivfflat "lists" parameter for new collections.
	IndexLists int `yaml:"index_lists" mapstructure:"index_lists"`
}

// ConnectionParams addresses the Postgres server.
type ConnectionParams struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DbName   string `yaml:"db_name" mapstructure:"db_name"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// DSN renders the parameters as a libpq keyword/value string. Every value is
// quoted so passwords may contain spaces, quotes and backslashes.
func (p ConnectionParams) DSN() string {
	pairs := []struct{ key, value string }{
		{"host", p.Host},
		{"port", strconv.Itoa(p.Port)},
		{"user", p.User},
		{"password", p.Password},
		{"dbname", p.DbName},
		{"sslmode", p.SSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		if kv.value == "" {
			continue
		}
		parts = append(parts, kv.key+"="+quoteDSNValue(kv.value))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

type ConnectionDetails struct {
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// DefaultPort is the standard Postgres port.
const DefaultPort = 5432

// DefaultConfig returns a Config for a local server.
func DefaultConfig() Config {
	return Config{
		Connection: ConnectionParams{
			Host:    "localhost",
			Port:    DefaultPort,
			SSLMode: "disable",
		},
		ConnectionDetails: ConnectionDetails{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Minute,
		},
		Timeout:    30 * time.Second,
		BatchSize:  500,
		IndexLists: 100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Connection.Host == "" {
		c.Connection.Host = def.Connection.Host
	}
	if c.Connection.Port == 0 {
		c.Connection.Port = def.Connection.Port
	}
	if c.Connection.SSLMode == "" {
		c.Connection.SSLMode = def.Connection.SSLMode
	}
	if c.ConnectionDetails.MaxOpenConns == 0 {
		c.ConnectionDetails.MaxOpenConns = def.ConnectionDetails.MaxOpenConns
	}
	if c.ConnectionDetails.MaxIdleConns == 0 {
		c.ConnectionDetails.MaxIdleConns = def.ConnectionDetails.MaxIdleConns
	}
	if c.ConnectionDetails.ConnMaxLifetime == 0 {
		c.ConnectionDetails.ConnMaxLifetime = def.ConnectionDetails.ConnMaxLifetime
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.IndexLists <= 0 {
		c.IndexLists = def.IndexLists
	}
	return c
}
