package logger

const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config selects the log level and the service name stamped on every entry.
type Config struct {
	// 1. production -> INFO
	// 2. development -> DEBUG
	// else -> INFO
	Level string `yaml:"level" mapstructure:"level" envconfig:"VECTOR_INSPECTOR_LOG_LEVEL"`

	// ServiceName is added to every entry as the "service" field.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`

	// Development switches to a console encoder for interactive CLI use.
	Development bool `yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns an info-level JSON logger config.
func DefaultConfig() Config {
	return Config{
		Level:       Info,
		ServiceName: "vector-inspector",
	}
}
