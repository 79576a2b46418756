package settings

import (
	"os"
	"path/filepath"
)

// Setting keys. Dotted keys are nested objects in the settings file.
const (
	KeyCacheEnabled           = "cache_enabled"
	KeyTelemetryEnabled       = "telemetry.enabled"
	KeyDefaultNResults        = "search.default_n_results"
	KeyAutoGenerateEmbeddings = "embeddings.auto_generate"
	KeyBreadcrumbEnabled      = "breadcrumb.enabled"
	KeyBreadcrumbElideMode    = "breadcrumb.elide_mode"

	keyEmbeddingModels = "collection_embedding_models"
	keyCustomModels    = "custom_embedding_models"
)

const (
	// EnvPrefix prefixes environment overrides, e.g.
	// VECTOR_INSPECTOR_SEARCH_DEFAULT_N_RESULTS=25.
	EnvPrefix = "VECTOR_INSPECTOR"

	// ModelTypeUserConfigured marks a binding chosen by the user.
	ModelTypeUserConfigured = "user-configured"
)

// Config locates the settings file.
type Config struct {
	// Path is the JSON settings file. Empty means DefaultPath().
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// DefaultPath returns ~/.vector-inspector/settings.json, or a path in the
// working directory when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".vector-inspector", "settings.json")
	}
	return filepath.Join(home, ".vector-inspector", "settings.json")
}

func defaults() map[string]any {
	return map[string]any{
		KeyCacheEnabled:           true,
		KeyTelemetryEnabled:       true,
		KeyDefaultNResults:        10,
		KeyAutoGenerateEmbeddings: true,
		KeyBreadcrumbEnabled:      true,
		KeyBreadcrumbElideMode:    "left",
	}
}
