package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Aleph-Alpha/vectorinspector/v1/cache"
	"github.com/Aleph-Alpha/vectorinspector/v1/embedding"
	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/metrics"
	"github.com/Aleph-Alpha/vectorinspector/v1/provider"
	"github.com/Aleph-Alpha/vectorinspector/v1/redis"
	"github.com/Aleph-Alpha/vectorinspector/v1/settings"
	"github.com/Aleph-Alpha/vectorinspector/v1/taskrunner"
)

// envPrefix prefixes environment overrides of the CLI config, e.g.
// VECTOR_INSPECTOR_LOG_LEVEL=debug or VECTOR_INSPECTOR_CACHE_STORE=redis.
const envPrefix = settings.EnvPrefix

var errNoProfile = errors.New("no connection profile selected")

// Config is the CLI configuration file.
type Config struct {
	Log       logger.Config      `yaml:"log" mapstructure:"log"`
	Metrics   metrics.Config     `yaml:"metrics" mapstructure:"metrics"`
	Cache     cache.Config       `yaml:"cache" mapstructure:"cache"`
	Redis     redis.Config       `yaml:"redis" mapstructure:"redis"`
	Runner    taskrunner.Config  `yaml:"runner" mapstructure:"runner"`
	Embedding embedding.Config   `yaml:"embedding" mapstructure:"embedding"`
	Settings  settings.Config    `yaml:"settings" mapstructure:"settings"`
	Profiles  []provider.Profile `yaml:"profiles" mapstructure:"profiles"`
}

func setDefaults(v *viper.Viper) {
	log := logger.DefaultConfig()
	v.SetDefault("log.level", logger.Warning)
	v.SetDefault("log.service_name", log.ServiceName)
	v.SetDefault("log.development", true)

	m := metrics.DefaultConfig()
	v.SetDefault("metrics.address", m.Address)
	v.SetDefault("metrics.service_name", m.ServiceName)
	v.SetDefault("metrics.enable_default_collectors", m.EnableDefaultCollectors)

	v.SetDefault("cache.store", string(cache.StoreTypeMemory))
	v.SetDefault("cache.key_prefix", "vector-inspector:")
	v.SetDefault("redis.host", redis.DefaultHost)
	v.SetDefault("redis.port", redis.DefaultPort)
	v.SetDefault("runner.max_workers", taskrunner.DefaultMaxWorkers)
	v.SetDefault("embedding.endpoint", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.default_model", "")
	v.SetDefault("settings.path", "")
}

// loadConfig reads path, or the first of ./vectorinspector.yaml and
// ~/.vector-inspector/config.yaml that exists. Without any file the
// defaults and environment apply.
func loadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfig()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func findConfig() string {
	candidates := []string{"vectorinspector.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".vector-inspector", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// embeddingConfig falls back to the EMBEDDING_* environment when the config
// file names no endpoint.
func (c Config) embeddingConfig() *embedding.Config {
	if c.Embedding.Endpoint == "" {
		return embedding.NewConfig()
	}
	e := c.Embedding
	return &e
}

// profile selects a connection profile by id or name. Without a selector
// the only configured profile is used.
func (c Config) profile(selector string) (provider.Profile, error) {
	if selector == "" {
		if len(c.Profiles) == 1 {
			return c.Profiles[0], nil
		}
		return provider.Profile{}, fmt.Errorf("%w: %d profiles configured, pass --profile", errNoProfile, len(c.Profiles))
	}
	for _, p := range c.Profiles {
		if p.ID == selector || strings.EqualFold(p.Name, selector) {
			return p, nil
		}
	}
	return provider.Profile{}, fmt.Errorf("%w: unknown profile %q", errNoProfile, selector)
}
