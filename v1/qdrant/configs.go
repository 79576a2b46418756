package qdrant

import (
	"time"
)

// DefaultGRPCPort is the gRPC port the Go client talks to. The REST port
// 6333 is translated to it.
const (
	DefaultGRPCPort = 6334
	restPort        = 6333
)

// Config holds connection and behavior settings for a remote Qdrant server.
//
// Example (builder style):
//
//	cfg := qdrant.FromEndpoint("localhost").
//	    WithApiKey(os.Getenv("QDRANT_API_KEY")).
//	    WithTimeout(10 * time.Second)
type Config struct {
	// Hostname of the Qdrant server, e.g. "localhost".
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// gRPC port of the Qdrant server. Defaults to 6334.
	Port int `yaml:"port" mapstructure:"port"`

	// Optional authentication token for secured deployments.
	ApiKey string `yaml:"api_key" mapstructure:"api_key"`

	// Use TLS for the gRPC connection.
	UseTLS bool `yaml:"use_tls" mapstructure:"use_tls"`

	// Maximum duration of a single request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Whether to perform version compatibility checks between client and server.
	CheckCompatibility bool `yaml:"check_compatibility" mapstructure:"check_compatibility"`

	// Number of points sent per upsert request.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// DefaultConfig provides sensible defaults for most use cases.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:           "localhost",
		Port:               DefaultGRPCPort,
		Timeout:            30 * time.Second,
		CheckCompatibility: false,
		BatchSize:          200,
	}
}

// FromEndpoint returns a default config pre-filled with a specific endpoint.
func FromEndpoint(host string) *Config {
	cfg := DefaultConfig()
	cfg.Endpoint = host
	return cfg
}

func (c *Config) WithPort(port int) *Config {
	c.Port = port
	return c
}

func (c *Config) WithApiKey(key string) *Config {
	c.ApiKey = key
	return c
}

func (c *Config) WithTimeout(d time.Duration) *Config {
	c.Timeout = d
	return c
}

func (c *Config) WithTLS(enabled bool) *Config {
	c.UseTLS = enabled
	return c
}

func (c *Config) WithCompatibilityCheck(enabled bool) *Config {
	c.CheckCompatibility = enabled
	return c
}

func (c *Config) WithBatchSize(n int) *Config {
	c.BatchSize = n
	return c
}
