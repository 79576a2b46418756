package embedding

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultHTTPTimeoutS bounds one embeddings request.
	DefaultHTTPTimeoutS = 30

	// DefaultBatchSize is the number of texts sent per request.
	DefaultBatchSize = 32
)

// Config points the client at an OpenAI-compatible inference service.
//
// Endpoint is the API root, e.g. "https://api.openai.com/v1" or
// "http://localhost:8080/v1"; the client appends "/embeddings".
type Config struct {
	Endpoint     string `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	APIKey       string `yaml:"api_key" json:"-" mapstructure:"api_key"`
	HTTPTimeoutS int    `yaml:"http_timeout_seconds" json:"http_timeout_seconds" mapstructure:"http_timeout_seconds"`

	// DefaultModel is used when no model is resolved for a collection.
	DefaultModel string `yaml:"default_model" json:"default_model" mapstructure:"default_model"`
	BatchSize    int    `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
}

// NewConfig reads EMBEDDING_ENDPOINT, EMBEDDING_API_KEY,
// EMBEDDING_HTTP_TIMEOUT_SECONDS and EMBEDDING_MODEL.
func NewConfig() *Config {
	timeout := DefaultHTTPTimeoutS
	if v := os.Getenv("EMBEDDING_HTTP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = n
		}
	}

	return &Config{
		Endpoint:     os.Getenv("EMBEDDING_ENDPOINT"),
		APIKey:       os.Getenv("EMBEDDING_API_KEY"),
		HTTPTimeoutS: timeout,
		DefaultModel: os.Getenv("EMBEDDING_MODEL"),
		BatchSize:    DefaultBatchSize,
	}
}

// Validate ensures required fields are present. The API key is optional
// since local inference servers usually run without one.
func (c *Config) Validate() error {
	if c == nil || c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.HTTPTimeoutS < 0 || c.BatchSize < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	if c.HTTPTimeoutS <= 0 {
		return DefaultHTTPTimeoutS * time.Second
	}
	return time.Duration(c.HTTPTimeoutS) * time.Second
}

func (c *Config) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}
