package localstore

const (
	// DatabaseFile is the veclite file inside the store directory.
	DatabaseFile = "vectors.veclite"

	// CatalogFile records collection settings next to the database file.
	CatalogFile = "catalog.yaml"

	// DefaultHNSWM and DefaultHNSWEfConstruction tune the HNSW index.
	DefaultHNSWM              = 16
	DefaultHNSWEfConstruction = 200
)

// Config selects the directory of a store.
type Config struct {
	// Path is the store directory. Empty means an ephemeral temporary directory.
	Path string `yaml:"path" mapstructure:"path"`

	// Mode is reported in the connection info, e.g. "persistent" or "ephemeral".
	// It is derived from Path when empty.
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// EffectiveMode returns the configured mode or derives it from Path.
func (c Config) EffectiveMode() string {
	if c.Mode != "" {
		return c.Mode
	}
	if c.Path == "" {
		return "ephemeral"
	}
	return "persistent"
}
