package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vectorinspector/v1/cache"
	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/provider"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

const sampleConfig = `
log:
  level: debug
cache:
  store: memory
  timeout: 2s
runner:
  max_workers: 2
profiles:
  - id: local
    name: Local Chroma
    provider: chromadb
    config:
      type: persistent
      path: /tmp/chroma
  - id: prod
    name: Production
    provider: qdrant
    config:
      type: http
      host: qdrant.internal
      port: 6334
    credentials:
      api_key: secret
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectorinspector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, logger.Debug, cfg.Log.Level)
	assert.Equal(t, cache.StoreTypeMemory, cfg.Cache.Store)
	assert.Equal(t, 2*time.Second, cfg.Cache.Timeout)
	assert.Equal(t, 2, cfg.Runner.MaxWorkers)
	require.Len(t, cfg.Profiles, 2)

	prod := cfg.Profiles[1]
	assert.Equal(t, vectordb.ProviderQdrant, prod.Provider)
	assert.Equal(t, provider.TypeHTTP, prod.Config.Type)
	assert.Equal(t, 6334, prod.Config.Port)
	assert.Equal(t, "secret", prod.Credentials.APIKey)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "profiles: []\n"))
	require.NoError(t, err)

	assert.Equal(t, logger.Warning, cfg.Log.Level)
	assert.Equal(t, cache.StoreTypeMemory, cfg.Cache.Store)
	assert.Equal(t, "vector-inspector", cfg.Metrics.ServiceName)
	assert.Empty(t, cfg.Metrics.Address)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("VECTOR_INSPECTOR_LOG_LEVEL", "error")
	t.Setenv("VECTOR_INSPECTOR_REDIS_HOST", "cache.internal")

	cfg, err := loadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, logger.Error, cfg.Log.Level)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Profile(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	p, err := cfg.profile("prod")
	require.NoError(t, err)
	assert.Equal(t, "Production", p.Name)

	p, err = cfg.profile("local chroma")
	require.NoError(t, err)
	assert.Equal(t, "local", p.ID)

	_, err = cfg.profile("")
	assert.ErrorIs(t, err, errNoProfile)

	_, err = cfg.profile("staging")
	assert.ErrorIs(t, err, errNoProfile)

	single := Config{Profiles: cfg.Profiles[:1]}
	p, err = single.profile("")
	require.NoError(t, err)
	assert.Equal(t, "local", p.ID)
}

func TestConfig_EmbeddingFallsBackToEnv(t *testing.T) {
	t.Setenv("EMBEDDING_ENDPOINT", "http://inference.local/v1")

	assert.Equal(t, "http://inference.local/v1", Config{}.embeddingConfig().Endpoint)

	cfg := Config{}
	cfg.Embedding.Endpoint = "http://configured/v1"
	assert.Equal(t, "http://configured/v1", cfg.embeddingConfig().Endpoint)
}
