package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the embedding client.
//
//go:generate mockgen -source=client.go -destination=mock_logger.go -package=embedding
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Client computes text embeddings through an OpenAI-compatible
// /embeddings endpoint. It implements vectordb.Embedder.
type Client struct {
	api      *openai.Client
	cfg      Config
	logger   Logger
	observer observability.Observer
}

var _ vectordb.Embedder = (*Client)(nil)

// NewClient validates cfg and builds a Client. A nil logger is replaced by a
// no-op logger.
func NewClient(cfg *Config, log Logger, observer observability.Observer) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("embedding: invalid config: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.Endpoint
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout()}

	return &Client{
		api:      openai.NewClientWithConfig(apiCfg),
		cfg:      *cfg,
		logger:   log,
		observer: observer,
	}, nil
}

// DefaultModel returns the configured fallback model.
func (c *Client) DefaultModel() string {
	return c.cfg.DefaultModel
}

// Embed returns one vector per text, in input order. Texts are sent in
// batches of Config.BatchSize. An empty model selects DefaultModel.
func (c *Client) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if model == "" {
		model = c.cfg.DefaultModel
	}
	if model == "" {
		return nil, ErrNoModel
	}

	out := make([][]float32, 0, len(texts))
	size := c.cfg.batchSize()
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := c.embedBatch(ctx, model, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: texts,
	})
	if err == nil && len(resp.Data) != len(texts) {
		err = fmt.Errorf("%w: sent %d texts, got %d vectors", ErrCountMismatch, len(texts), len(resp.Data))
	}
	c.observe(model, start, err, len(texts))
	if err != nil {
		c.logger.Error("Embedding request failed", err, map[string]interface{}{
			"model": model,
			"texts": len(texts),
		})
		return nil, fmt.Errorf("embedding: %w", err)
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	vecs := make([][]float32, len(data))
	for i, d := range data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// Close is a no-op; it exists for lifecycle symmetry. It is safe on a nil Client.
func (c *Client) Close() error {
	return nil
}

func (c *Client) observe(model string, start time.Time, err error, size int) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveOperation(observability.OperationContext{
		Component: "embedding",
		Operation: "embed",
		Resource:  model,
		Duration:  time.Since(start),
		Error:     err,
		Size:      int64(size),
	})
}
