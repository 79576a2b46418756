package chroma

import (
	"fmt"
	"time"
)

// Config describes a remote Chroma server.
type Config struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	// SSL switches the base URL to https.
	SSL bool `yaml:"ssl" mapstructure:"ssl"`

	Tenant   string `yaml:"tenant" mapstructure:"tenant"`
	Database string `yaml:"database" mapstructure:"database"`

	// APIKey is sent in the x-chroma-token header when set.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

const (
	DefaultPort     = 8000
	DefaultTenant   = "default_tenant"
	DefaultDatabase = "default_database"
)

// DefaultConfig returns a Config for a local server on the default port.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     DefaultPort,
		Tenant:   DefaultTenant,
		Database: DefaultDatabase,
		Timeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.Tenant == "" {
		c.Tenant = def.Tenant
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// BaseURL returns the server root, e.g. http://localhost:8000.
func (c Config) BaseURL() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}
