package provider

import (
	"fmt"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/chroma"
	"github.com/Aleph-Alpha/vectorinspector/v1/lancedb"
	"github.com/Aleph-Alpha/vectorinspector/v1/localstore"
	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/milvus"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/pgvector"
	"github.com/Aleph-Alpha/vectorinspector/v1/pinecone"
	_ "github.com/Aleph-Alpha/vectorinspector/v1/protoreg"
	"github.com/Aleph-Alpha/vectorinspector/v1/qdrant"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface shared with the adapters.
//
//go:generate mockgen -source=factory.go -destination=mock_logger.go -package=provider
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Factory builds unconnected adapters from profiles.
type Factory struct {
	logger   Logger
	observer observability.Observer
	embedder vectordb.Embedder
	models   vectordb.ModelLookup
	timeout  time.Duration
}

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithEmbedder sets the embedder handed to every adapter.
func WithEmbedder(e vectordb.Embedder) FactoryOption {
	return func(f *Factory) { f.embedder = e }
}

// WithModelLookup sets the per-collection model overrides handed to every adapter.
func WithModelLookup(l vectordb.ModelLookup) FactoryOption {
	return func(f *Factory) { f.models = l }
}

// WithTimeout bounds each remote call. Zero keeps the adapter default.
func WithTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) { f.timeout = d }
}

// NewFactory returns a Factory. A nil logger is replaced by a no-op logger.
func NewFactory(log Logger, observer observability.Observer, opts ...FactoryOption) *Factory {
	if log == nil {
		log = logger.NewNop()
	}
	f := &Factory{logger: log, observer: observer}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create maps a profile to an unconnected adapter. Every returned error
// wraps ErrConfiguration.
//
// Example:
//
//	conn, err := f.Create(provider.Profile{
//	    ID:       "local",
//	    Provider: vectordb.ProviderQdrant,
//	    Config:   provider.ConnectionConfig{Type: provider.TypeHTTP, Host: "localhost"},
//	})
func (f *Factory) Create(p Profile) (vectordb.Connection, error) {
	opts := f.baseOptions(p)

	var (
		conn vectordb.Connection
		err  error
	)
	switch p.Provider {
	case vectordb.ProviderChroma:
		conn, err = f.chroma(p, opts)
	case vectordb.ProviderQdrant:
		conn, err = f.qdrant(p, opts)
	case vectordb.ProviderPinecone:
		conn, err = f.pinecone(p, opts)
	case vectordb.ProviderPgVector:
		conn, err = f.pgvector(p, opts)
	case vectordb.ProviderLanceDB:
		conn, err = f.lancedb(p, opts)
	case vectordb.ProviderMilvus:
		conn, err = f.milvus(p, opts)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedProvider, p.Provider)
	}
	if err != nil {
		f.logger.Error("Cannot create connection from profile", err, map[string]interface{}{
			"profile":  p.ID,
			"provider": string(p.Provider),
			"type":     p.Config.Type,
		})
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	f.logger.Debug("Created connection", nil, map[string]interface{}{
		"profile":  p.ID,
		"provider": string(p.Provider),
		"mode":     conn.ConnectionInfo().Mode,
	})
	return conn, nil
}

func (f *Factory) baseOptions(p Profile) []vectordb.BaseOption {
	opts := []vectordb.BaseOption{vectordb.WithProfileID(p.ID)}
	if f.embedder != nil {
		opts = append(opts, vectordb.WithEmbedder(f.embedder))
	}
	if f.models != nil {
		opts = append(opts, vectordb.WithModelLookup(f.models))
	}
	return opts
}

// localConfig maps the persistent and ephemeral connection types to a
// local store configuration.
func localConfig(c ConnectionConfig) (localstore.Config, error) {
	switch c.Type {
	case TypePersistent:
		if c.Path == "" {
			return localstore.Config{}, fmt.Errorf("%w: path", ErrMissingField)
		}
		return localstore.Config{Path: c.Path, Mode: TypePersistent}, nil
	case TypeEphemeral, "":
		return localstore.Config{Mode: TypeEphemeral}, nil
	default:
		return localstore.Config{}, fmt.Errorf("%w: %q", ErrUnsupportedConnectionType, c.Type)
	}
}

func (f *Factory) chroma(p Profile, opts []vectordb.BaseOption) (vectordb.Connection, error) {
	c := p.Config
	if c.Type != TypeHTTP {
		cfg, err := localConfig(c)
		if err != nil {
			return nil, err
		}
		return chroma.NewLocal(cfg, f.logger, f.observer, opts...), nil
	}

	apiKey := p.Credentials.APIKey
	if apiKey == "" {
		apiKey = p.Credentials.Token
	}
	return chroma.New(chroma.Config{
		Host:     valueOr(c.Host, "localhost"),
		Port:     valueOr(c.Port, DefaultChromaPort),
		Tenant:   c.Tenant,
		Database: c.Database,
		APIKey:   apiKey,
		Timeout:  f.timeout,
	}, f.logger, f.observer, opts...), nil
}

func (f *Factory) qdrant(p Profile, opts []vectordb.BaseOption) (vectordb.Connection, error) {
	c := p.Config
	if c.Type != TypeHTTP {
		cfg, err := localConfig(c)
		if err != nil {
			return nil, err
		}
		return qdrant.NewLocal(cfg, f.logger, f.observer, opts...), nil
	}

	cfg := qdrant.FromEndpoint(valueOr(c.Host, "localhost")).
		WithPort(valueOr(c.Port, DefaultQdrantPort)).
		WithApiKey(p.Credentials.APIKey)
	if f.timeout > 0 {
		cfg = cfg.WithTimeout(f.timeout)
	}
	return qdrant.New(cfg, f.logger, f.observer, opts...), nil
}

func (f *Factory) pinecone(p Profile, opts []vectordb.BaseOption) (vectordb.Connection, error) {
	if p.Credentials.APIKey == "" {
		return nil, pinecone.ErrMissingAPIKey
	}
	return pinecone.New(pinecone.Config{
		APIKey:    p.Credentials.APIKey,
		Namespace: p.Config.Namespace,
		Timeout:   f.timeout,
	}, f.logger, f.observer, opts...), nil
}

func (f *Factory) pgvector(p Profile, opts []vectordb.BaseOption) (vectordb.Connection, error) {
	c := p.Config
	if c.Type != TypeHTTP {
		return nil, fmt.Errorf("%w: %q, pgvector requires %q", ErrUnsupportedConnectionType, c.Type, TypeHTTP)
	}
	if c.Database == "" {
		return nil, fmt.Errorf("%w: database", ErrMissingField)
	}
	if c.User == "" {
		return nil, fmt.Errorf("%w: user", ErrMissingField)
	}
	return pgvector.New(pgvector.Config{
		Connection: pgvector.ConnectionParams{
			Host:     valueOr(c.Host, DefaultPostgresHost),
			Port:     valueOr(c.Port, DefaultPostgresPort),
			User:     c.User,
			Password: p.Credentials.Password,
			DbName:   c.Database,
			SSLMode:  "disable",
		},
		Timeout: f.timeout,
	}, f.logger, f.observer, opts...), nil
}

func (f *Factory) lancedb(p Profile, opts []vectordb.BaseOption) (vectordb.Connection, error) {
	return lancedb.New(lancedb.Config{Path: valueOr(p.Config.Path, lancedb.DefaultPath)}, f.logger, f.observer, opts...), nil
}

func (f *Factory) milvus(p Profile, opts []vectordb.BaseOption) (vectordb.Connection, error) {
	c := p.Config
	if c.Type != "" && c.Type != TypeHTTP {
		return nil, fmt.Errorf("%w: %q, milvus requires %q", ErrUnsupportedConnectionType, c.Type, TypeHTTP)
	}
	cfg := milvus.Config{
		URI:      c.URI,
		Host:     valueOr(c.Host, DefaultMilvusHost),
		Port:     valueOr(c.Port, DefaultMilvusPort),
		User:     c.User,
		Password: p.Credentials.Password,
		Token:    p.Credentials.Token,
		Database: c.Database,
		Timeout:  f.timeout,
	}
	if cfg.Token == "" {
		cfg.Token = p.Credentials.APIKey
	}
	return milvus.New(cfg, f.logger, f.observer, opts...), nil
}

func valueOr[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
