package redis

import "time"

// Config describes a standalone Redis server used as a shared cache backend.
type Config struct {
	// Host is the Redis server hostname or IP address
	// Default: "localhost"
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the Redis server port
	// Default: 6379
	Port int `yaml:"port" mapstructure:"port"`

	// Username is the Redis username for ACL authentication (Redis 6.0+)
	Username string `yaml:"username" mapstructure:"username"`

	// Password is the Redis password for authentication
	Password string `yaml:"password" mapstructure:"password"`

	// DB is the Redis database number to use
	DB int `yaml:"db" mapstructure:"db"`

	// PoolSize is the maximum number of socket connections
	// Default: 10 per CPU
	PoolSize int `yaml:"pool_size" mapstructure:"pool_size"`

	// MaxRetries is the maximum number of retries before giving up.
	// Set to -1 to disable retries.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`

	// ScanCount is the COUNT hint passed to SCAN when matching key patterns.
	ScanCount int64 `yaml:"scan_count" mapstructure:"scan_count"`

	// TLS contains TLS/SSL configuration
	TLS TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Logger is optional. When nil the client logs nothing.
	Logger Logger `yaml:"-" mapstructure:"-"`
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// CACertPath is the file path to the CA certificate for verifying the server
	CACertPath string `yaml:"ca_cert_path" mapstructure:"ca_cert_path"`

	ClientCertPath string `yaml:"client_cert_path" mapstructure:"client_cert_path"`
	ClientKeyPath  string `yaml:"client_key_path" mapstructure:"client_key_path"`

	// InsecureSkipVerify should only be used in testing
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`

	// ServerName defaults to Host.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`
}

// Logger is the logging interface used by the client.
type Logger interface {
	Error(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Default values for configuration
const (
	DefaultHost        = "localhost"
	DefaultPort        = 6379
	DefaultMaxRetries  = 3
	DefaultDialTimeout = 5 * time.Second
	DefaultReadTimeout = 3 * time.Second
	DefaultScanCount   = 100
)

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.ScanCount <= 0 {
		c.ScanCount = DefaultScanCount
	}
	return c
}
