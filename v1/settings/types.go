package settings

// ModelBinding records the embedding model configured for one collection of
// one connection profile.
type ModelBinding struct {
	Profile    string `json:"profile" mapstructure:"profile"`
	Collection string `json:"collection" mapstructure:"collection"`
	Model      string `json:"model" mapstructure:"model"`
	Type       string `json:"type" mapstructure:"type"`
	Timestamp  string `json:"timestamp" mapstructure:"timestamp"`
}

// CustomModel is a user-added embedding model, identified by name and dimension.
type CustomModel struct {
	Name        string `json:"name" mapstructure:"name"`
	Dimension   int    `json:"dimension" mapstructure:"dimension"`
	Type        string `json:"type" mapstructure:"type"`
	Description string `json:"description" mapstructure:"description"`
	Added       string `json:"added" mapstructure:"added"`
	LastUsed    string `json:"last_used" mapstructure:"last_used"`
}
