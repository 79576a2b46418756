package provider

import "github.com/Aleph-Alpha/vectorinspector/v1/vectordb"

// Connection types understood by the factory. An empty type selects the
// ephemeral mode for providers that have one.
const (
	TypeEphemeral  = "ephemeral"
	TypePersistent = "persistent"
	TypeHTTP       = "http"
)

// Default values applied by the factory.
const (
	DefaultChromaPort   = 8000
	DefaultQdrantPort   = 6333
	DefaultPostgresPort = 5432
	DefaultPostgresHost = "localhost"
	DefaultMilvusHost   = "localhost"
	DefaultMilvusPort   = 19530
)

// ConnectionConfig is the provider-specific part of a profile. Which fields
// matter depends on the provider and Type.
type ConnectionConfig struct {
	Type      string `yaml:"type" json:"type" mapstructure:"type"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`
	Host      string `yaml:"host,omitempty" json:"host,omitempty" mapstructure:"host"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty" mapstructure:"port"`
	Database  string `yaml:"database,omitempty" json:"database,omitempty" mapstructure:"database"`
	User      string `yaml:"user,omitempty" json:"user,omitempty" mapstructure:"user"`
	URI       string `yaml:"uri,omitempty" json:"uri,omitempty" mapstructure:"uri"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty" mapstructure:"namespace"`
	Tenant    string `yaml:"tenant,omitempty" json:"tenant,omitempty" mapstructure:"tenant"`
}

// Credentials holds secrets kept apart from the connection config.
type Credentials struct {
	APIKey   string `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" mapstructure:"password"`
	Token    string `yaml:"token,omitempty" json:"token,omitempty" mapstructure:"token"`
}

// Profile is a saved connection: which provider, how to reach it and with
// which credentials.
type Profile struct {
	ID          string               `yaml:"id" json:"id" mapstructure:"id"`
	Name        string               `yaml:"name" json:"name" mapstructure:"name"`
	Provider    vectordb.ProviderTag `yaml:"provider" json:"provider" mapstructure:"provider"`
	Config      ConnectionConfig     `yaml:"config" json:"config" mapstructure:"config"`
	Credentials Credentials          `yaml:"credentials" json:"-" mapstructure:"credentials"`
}
