// Package settings stores user preferences in ~/.vector-inspector/settings.json.
//
// Scalar preferences are read through viper, so every key can be overridden
// from the environment with the VECTOR_INSPECTOR_ prefix and dots replaced
// by underscores:
//
//	VECTOR_INSPECTOR_CACHE_ENABLED=false
//	VECTOR_INSPECTOR_SEARCH_DEFAULT_N_RESULTS=25
//
// The service also remembers which embedding model belongs to which
// collection of which connection profile and implements vectordb.ModelLookup,
// the last step of the adapters' model resolution chain. Custom models added
// by the user extend the bundled embedding registry.
package settings
