package localstore

import (
	"context"
	"sync"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Catalog metadata keys understood by GetCollectionInfo.
const (
	MetadataEmbeddingModel     = "embedding_model"
	MetadataEmbeddingModelType = "embedding_model_type"
)

// metadataSampleSize bounds how many items GetCollectionInfo inspects to list
// metadata fields.
const metadataSampleSize = 100

// Connection exposes a Store as a vectordb.Connection.
type Connection struct {
	*vectordb.Base

	cfg      Config
	logger   Logger
	observer observability.Observer

	mu    sync.RWMutex
	store *Store
}

var _ vectordb.Connection = (*Connection)(nil)

// NewConnection creates an unconnected local connection reporting tag as its provider.
func NewConnection(tag vectordb.ProviderTag, cfg Config, logger Logger, observer observability.Observer, opts ...vectordb.BaseOption) *Connection {
	return &Connection{
		Base:     vectordb.NewBase(tag, cfg.EffectiveMode(), opts...),
		cfg:      cfg,
		logger:   logger,
		observer: observer,
	}
}

// Connect opens the store directory.
func (c *Connection) Connect(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil && c.IsConnected() {
		return true
	}

	start := time.Now()
	store, err := Open(c.cfg.Path)
	c.observeOperation("connect", c.cfg.Path, time.Since(start), err, 0)
	if err != nil {
		c.logger.Error("Failed to open local vector store", err, map[string]interface{}{
			"provider": string(c.ProviderTag()),
			"path":     c.cfg.Path,
		})
		return false
	}
	c.store = store
	c.MarkConnected()
	c.logger.Info("Opened local vector store", nil, map[string]interface{}{
		"provider":  string(c.ProviderTag()),
		"path":      store.Dir(),
		"ephemeral": store.Ephemeral(),
	})
	return true
}

// Disconnect closes the store. Ephemeral stores are deleted.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MarkDisconnected()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	if err != nil {
		c.logger.Warn("Error closing local vector store", err, nil)
	}
	return err
}

// ConnectionInfo reports the store path.
func (c *Connection) ConnectionInfo() vectordb.ConnectionInfo {
	details := map[string]any{"path": c.cfg.Path}
	c.mu.RLock()
	if c.store != nil {
		details["path"] = c.store.Dir()
		details["ephemeral"] = c.store.Ephemeral()
	}
	c.mu.RUnlock()
	return c.Info(details)
}

func (c *Connection) current() (*Store, error) {
	if err := c.Guard(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return nil, vectordb.ErrNotConnected
	}
	return c.store, nil
}

func (c *Connection) ListCollections(ctx context.Context) ([]string, error) {
	store, err := c.current()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	names, err := store.Collections()
	c.observeOperation("list_collections", "", time.Since(start), err, int64(len(names)))
	return names, err
}

func (c *Connection) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	store, err := c.current()
	if err != nil {
		return err
	}
	metric, err := vectordb.ValidateCollectionSpec(name, vectorSize, distance)
	if err != nil {
		return err
	}
	start := time.Now()
	err = store.Create(name, vectorSize, metric)
	c.observeOperation("create_collection", name, time.Since(start), err, 0)
	return err
}

func (c *Connection) DeleteCollection(ctx context.Context, name string) error {
	store, err := c.current()
	if err != nil {
		return err
	}
	start := time.Now()
	err = store.Drop(name)
	c.observeOperation("delete_collection", name, time.Since(start), err, 0)
	return err
}

func (c *Connection) AddItems(ctx context.Context, collection string, in vectordb.AddRequest) error {
	store, err := c.current()
	if err != nil {
		return err
	}
	in, err = c.PrepareAdd(ctx, c, collection, in)
	if err != nil {
		return err
	}
	items := make([]vectordb.Item, len(in.Documents))
	for i := range in.Documents {
		doc := in.Documents[i]
		items[i] = vectordb.Item{ID: in.IDs[i], Document: &doc, Metadata: in.Metadatas[i], Embedding: in.Embeddings[i]}
	}

	start := time.Now()
	err = store.Upsert(collection, items)
	c.observeOperation("add_items", collection, time.Since(start), err, int64(len(items)))
	return err
}

func (c *Connection) UpdateItems(ctx context.Context, collection string, in vectordb.UpdateRequest) error {
	store, err := c.current()
	if err != nil {
		return err
	}
	if err := vectordb.ValidateUpdate(in); err != nil {
		return err
	}
	in = c.ReembedUpdated(ctx, c, collection, in)

	start := time.Now()
	err = store.Update(collection, in.IDs, func(existing *vectordb.ItemBatch) []vectordb.Item {
		return vectordb.MergeUpdate(existing, in)
	})
	c.observeOperation("update_items", collection, time.Since(start), err, int64(len(in.IDs)))
	return err
}

func (c *Connection) DeleteItems(ctx context.Context, collection string, ids []string) error {
	store, err := c.current()
	if err != nil {
		return err
	}
	start := time.Now()
	err = store.Delete(collection, ids)
	c.observeOperation("delete_items", collection, time.Since(start), err, int64(len(ids)))
	return err
}

func (c *Connection) GetItems(ctx context.Context, collection string, ids []string) (*vectordb.ItemBatch, error) {
	store, err := c.current()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	batch, err := store.Get(collection, ids)
	c.observeOperation("get_items", collection, time.Since(start), err, int64(batch.Len()))
	return batch, err
}

func (c *Connection) GetAllItems(ctx context.Context, collection string, opts vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	store, err := c.current()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	batch, err := store.Scan(collection, opts.Filter, opts.Offset, opts.EffectiveLimit())
	c.observeOperation("get_all_items", collection, time.Since(start), err, int64(batch.Len()))
	return batch, err
}

func (c *Connection) Query(ctx context.Context, collection string, q vectordb.QueryRequest) (*vectordb.SearchResult, error) {
	store, err := c.current()
	if err != nil {
		return nil, err
	}
	vector, err := c.QueryVector(ctx, c, collection, q)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := store.Search(collection, vector, q.Limit(), q.Filter)
	size := 0
	if res != nil {
		size = res.Len()
	}
	c.observeOperation("query", collection, time.Since(start), err, int64(size))
	return res, err
}

func (c *Connection) Count(ctx context.Context, collection string) (int64, error) {
	store, err := c.current()
	if err != nil {
		return 0, err
	}
	start := time.Now()
	n, err := store.Count(collection)
	c.observeOperation("count", collection, time.Since(start), err, 0)
	return n, err
}

func (c *Connection) GetCollectionInfo(ctx context.Context, collection string) (*vectordb.CollectionInfo, error) {
	store, err := c.current()
	if err != nil {
		return nil, err
	}
	spec, err := store.Spec(collection)
	if err != nil {
		return nil, err
	}
	count, err := store.Count(collection)
	if err != nil {
		return nil, err
	}
	sample, err := store.Scan(collection, nil, 0, metadataSampleSize)
	if err != nil {
		return nil, err
	}
	return &vectordb.CollectionInfo{
		Name:               collection,
		Count:              count,
		VectorDimension:    spec.Dimension,
		Distance:           string(spec.Distance),
		MetadataFields:     vectordb.MetadataFields(sample),
		EmbeddingModel:     spec.Metadata[MetadataEmbeddingModel],
		EmbeddingModelType: spec.Metadata[MetadataEmbeddingModelType],
		Extra: map[string]any{
			"created_at": spec.CreatedAt,
		},
	}, nil
}

// SetEmbeddingModel records the model that produced a collection's vectors.
func (c *Connection) SetEmbeddingModel(ctx context.Context, collection, model, modelType string) error {
	store, err := c.current()
	if err != nil {
		return err
	}
	return store.SetMetadata(collection, map[string]string{
		MetadataEmbeddingModel:     model,
		MetadataEmbeddingModelType: modelType,
	})
}
