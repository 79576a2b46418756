package pinecone

import "time"

// Config describes a Pinecone project.
type Config struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// ControllerURL overrides the control plane root. Index data planes
	// are resolved from the index description and reached over gRPC.
	ControllerURL string `yaml:"controller_url" mapstructure:"controller_url"`

	// Namespace scopes every data operation. The empty string is the
	// default namespace.
	Namespace string `yaml:"namespace" mapstructure:"namespace"`

	// Cloud and Region place indexes created through CreateCollection.
	Cloud  string `yaml:"cloud" mapstructure:"cloud"`
	Region string `yaml:"region" mapstructure:"region"`

	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
}

const DefaultControllerURL = "https://api.pinecone.io"

// DefaultConfig returns the settings used for empty fields.
func DefaultConfig() Config {
	return Config{
		ControllerURL: DefaultControllerURL,
		Cloud:         "aws",
		Region:        "us-east-1",
		Timeout:       30 * time.Second,
		BatchSize:     100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ControllerURL == "" {
		c.ControllerURL = def.ControllerURL
	}
	if c.Cloud == "" {
		c.Cloud = def.Cloud
	}
	if c.Region == "" {
		c.Region = def.Region
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	return c
}
