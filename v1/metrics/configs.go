package metrics

// Config holds the metrics server settings.
type Config struct {
	// Address is the listen address of the /metrics endpoint, e.g. ":9090".
	// An empty address disables the HTTP server; metrics are still recorded.
	Address string `yaml:"address" mapstructure:"address"`

	// ServiceName is attached to every metric as the constant "service" label.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`

	// EnableDefaultCollectors registers the Go, process and build info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" mapstructure:"enable_default_collectors"`
}

// DefaultConfig returns a config that records metrics without serving them.
func DefaultConfig() Config {
	return Config{
		ServiceName:             "vector-inspector",
		EnableDefaultCollectors: true,
	}
}
