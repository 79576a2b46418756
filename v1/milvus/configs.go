package milvus

import (
	"fmt"
	"strings"
	"time"
)

// Config describes a Milvus deployment.
type Config struct {
	// URI takes precedence over Host and Port, e.g. "http://milvus:19530".
	URI  string `yaml:"uri" mapstructure:"uri"`
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`

	// Token authenticates against Zilliz Cloud and token-enabled servers.
	Token string `yaml:"token" mapstructure:"token"`

	Database string `yaml:"database" mapstructure:"database"`

	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`

	// NList is the IVF_FLAT cluster count used for new collections.
	NList int `yaml:"nlist" mapstructure:"nlist"`
}

const (
	DefaultPort  = 19530
	DefaultNList = 128

	// maxVarChar is the longest id and document the schema accepts.
	maxVarChar = 65535
)

// DefaultConfig returns a Config for a local standalone server.
func DefaultConfig() Config {
	return Config{
		Host:      "localhost",
		Port:      DefaultPort,
		Timeout:   30 * time.Second,
		BatchSize: 500,
		NList:     DefaultNList,
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
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.NList <= 0 {
		c.NList = def.NList
	}
	return c
}

// Address returns what the client dials: the URI without its scheme, or
// host:port.
func (c Config) Address() string {
	if c.URI != "" {
		addr := strings.TrimPrefix(strings.TrimPrefix(c.URI, "http://"), "https://")
		return strings.TrimRight(addr, "/")
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TLS reports whether the URI asks for a secure channel.
func (c Config) TLS() bool {
	return strings.HasPrefix(c.URI, "https://")
}
