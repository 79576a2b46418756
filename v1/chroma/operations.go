package chroma

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/localstore"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

const (
	// metadataSampleSize bounds how many records GetCollectionInfo reads to
	// discover metadata fields.
	metadataSampleSize = 100

	// clientFilterFactor widens a query when part of the filter is applied
	// after the server returns its neighbours.
	clientFilterFactor = 5
	maxQueryResults    = 1000
)

// ListDatabases lists the databases of the configured tenant.
func (c *Connection) ListDatabases(ctx context.Context) ([]string, error) {
	conn, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	names, err := conn.ListDatabases(ctx, c.cfg.Tenant)
	c.observeOperation("list_databases", c.cfg.Tenant, time.Since(start), err, int64(len(names)), nil)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// ListCollections lists collection names in the configured database.
func (c *Connection) ListCollections(ctx context.Context) ([]string, error) {
	conn, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	colls, err := conn.ListCollections(ctx)
	c.observeOperation("list_collections", c.cfg.Database, time.Since(start), err, int64(len(colls)), nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(colls))
	for _, coll := range colls {
		c.collections.Store(coll.Name, coll)
		names = append(names, coll.Name)
	}
	sort.Strings(names)
	return names, nil
}

// CreateCollection creates a collection whose hnsw:space metadata records
// the metric. Chroma infers the dimension from the first write.
func (c *Connection) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	conn, err := c.client()
	if err != nil {
		return err
	}
	metric, err := vectordb.ValidateCollectionSpec(name, vectorSize, distance)
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	created, err := conn.CreateCollection(ctx, name, map[string]any{SpaceKey: spaceFor(metric)})
	c.observeOperation("create_collection", name, time.Since(start), err, 0, map[string]interface{}{
		"distance": string(metric),
	})
	if err != nil {
		return err
	}
	c.collections.Store(name, created)
	c.logger.Info("Created Chroma collection", nil, map[string]interface{}{
		"collection": name,
		"distance":   string(metric),
	})
	return nil
}

// DeleteCollection removes a collection by name.
func (c *Connection) DeleteCollection(ctx context.Context, name string) error {
	conn, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err = conn.DeleteCollection(ctx, name)
	c.observeOperation("delete_collection", name, time.Since(start), err, 0, nil)
	c.collections.Delete(name)
	if err != nil {
		return err
	}
	c.logger.Info("Deleted Chroma collection", nil, map[string]interface{}{"collection": name})
	return nil
}

// resolve returns the collection for name, fetching it on a cache miss.
func (c *Connection) resolve(ctx context.Context, conn api, name string) (remoteCollection, error) {
	if v, ok := c.collections.Load(name); ok {
		return v.(remoteCollection), nil
	}
	coll, err := conn.GetCollection(ctx, name)
	if err != nil {
		return remoteCollection{}, err
	}
	c.collections.Store(name, coll)
	return coll, nil
}

// call runs fn against the collection. A stale cache entry (collection
// recreated elsewhere) is refreshed once on not-found.
func (c *Connection) call(ctx context.Context, conn api, name string, fn func(remoteCollection) error) error {
	coll, err := c.resolve(ctx, conn, name)
	if err != nil {
		return err
	}
	err = fn(coll)
	if errors.Is(err, vectordb.ErrCollectionNotFound) {
		c.collections.Delete(name)
		if coll, err2 := c.resolve(ctx, conn, name); err2 == nil {
			return fn(coll)
		}
	}
	return err
}

// AddItems embeds missing vectors and adds the records.
func (c *Connection) AddItems(ctx context.Context, collection string, in vectordb.AddRequest) error {
	conn, err := c.client()
	if err != nil {
		return err
	}
	in, err = c.PrepareAdd(ctx, c, collection, in)
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	docs := make([]*string, len(in.Documents))
	for i := range in.Documents {
		docs[i] = &in.Documents[i]
	}

	start := time.Now()
	err = c.call(ctx, conn, collection, func(coll remoteCollection) error {
		return conn.Add(ctx, coll, records{
			IDs:        in.IDs,
			Embeddings: in.Embeddings,
			Documents:  docs,
			Metadatas:  nullableMetadatas(in.Metadatas),
		})
	})
	c.observeOperation("add_items", collection, time.Since(start), err, int64(len(in.IDs)), nil)
	return err
}

// UpdateItems merges the changes into the current records and upserts
// them, so items keep fields the request leaves out.
func (c *Connection) UpdateItems(ctx context.Context, collection string, in vectordb.UpdateRequest) error {
	conn, err := c.client()
	if err != nil {
		return err
	}
	if err := vectordb.ValidateUpdate(in); err != nil {
		return err
	}
	in = c.ReembedUpdated(ctx, c, collection, in)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err = c.call(ctx, conn, collection, func(coll remoteCollection) error {
		current, err := conn.Get(ctx, coll, getRequest{IDs: in.IDs, Include: includeAll})
		if err != nil {
			return err
		}
		merged := vectordb.BatchFromItems(vectordb.MergeUpdate(current.batch(), in), true)
		if merged.Len() == 0 {
			return nil
		}
		return conn.Upsert(ctx, coll, records{
			IDs:        merged.IDs,
			Embeddings: merged.Embeddings,
			Documents:  merged.Documents,
			Metadatas:  nullableMetadatas(merged.Metadatas),
		})
	})
	c.observeOperation("update_items", collection, time.Since(start), err, int64(len(in.IDs)), nil)
	return err
}

// DeleteItems deletes records by id.
func (c *Connection) DeleteItems(ctx context.Context, collection string, ids []string) error {
	conn, err := c.client()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err = c.call(ctx, conn, collection, func(coll remoteCollection) error {
		return conn.Delete(ctx, coll, ids)
	})
	c.observeOperation("delete_items", collection, time.Since(start), err, int64(len(ids)), nil)
	return err
}

// GetItems fetches records by id.
func (c *Connection) GetItems(ctx context.Context, collection string, ids []string) (*vectordb.ItemBatch, error) {
	conn, err := c.client()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return vectordb.NewItemBatch(0, true), nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var resp getResponse
	err = c.call(ctx, conn, collection, func(coll remoteCollection) (err error) {
		resp, err = conn.Get(ctx, coll, getRequest{IDs: ids, Include: includeAll})
		return err
	})
	c.observeOperation("get_items", collection, time.Since(start), err, int64(len(resp.IDs)), nil)
	if err != nil {
		return nil, err
	}
	return resp.batch(), nil
}

// GetAllItems pages through a collection. Filters Chroma cannot express
// are applied after fetching up to DefaultScanCap records.
func (c *Connection) GetAllItems(ctx context.Context, collection string, opts vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	conn, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	where, serverSide := compileWhere(opts.Filter)
	req := getRequest{Where: where, Include: includeAll}
	if serverSide {
		limit, offset := opts.EffectiveLimit(), max(opts.Offset, 0)
		req.Limit, req.Offset = &limit, &offset
	} else {
		limit := vectordb.DefaultScanCap
		req.Limit = &limit
	}

	start := time.Now()
	var resp getResponse
	err = c.call(ctx, conn, collection, func(coll remoteCollection) (err error) {
		resp, err = conn.Get(ctx, coll, req)
		return err
	})
	c.observeOperation("get_all_items", collection, time.Since(start), err, int64(len(resp.IDs)), map[string]interface{}{
		"server_side_filter": serverSide,
	})
	if err != nil {
		return nil, err
	}
	batch := resp.batch()
	if !serverSide {
		batch = vectordb.ApplyFilter(batch, opts.Filter).Slice(opts.Offset, opts.EffectiveLimit())
	}
	return batch, nil
}

// Query runs a nearest-neighbour search.
func (c *Connection) Query(ctx context.Context, collection string, q vectordb.QueryRequest) (*vectordb.SearchResult, error) {
	conn, err := c.client()
	if err != nil {
		return nil, err
	}
	vector, err := c.QueryVector(ctx, c, collection, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	where, serverSide := compileWhere(q.Filter)
	n := q.Limit()
	if !serverSide {
		n = min(n*clientFilterFactor, maxQueryResults)
	}

	start := time.Now()
	var (
		resp  queryResponse
		space string
	)
	err = c.call(ctx, conn, collection, func(coll remoteCollection) (err error) {
		space = coll.space()
		resp, err = conn.Query(ctx, coll, queryRequest{
			QueryEmbeddings: [][]float32{vector},
			NResults:        n,
			Where:           where,
			Include:         []string{"documents", "metadatas", "embeddings", "distances"},
		})
		return err
	})
	c.observeOperation("query", collection, time.Since(start), err, 0, nil)
	if err != nil {
		return nil, err
	}

	res := resp.firstResult(space)
	if !serverSide {
		res = filterResult(res, q.Filter, q.Limit())
	}
	return res, nil
}

func filterResult(res *vectordb.SearchResult, fs *vectordb.FilterSet, limit int) *vectordb.SearchResult {
	out := &vectordb.SearchResult{ItemBatch: *vectordb.NewItemBatch(limit, true)}
	for i := 0; i < res.Len() && out.Len() < limit; i++ {
		if fs.Matches(res.Metadatas[i]) {
			out.Append(res.Item(i))
			out.Distances = append(out.Distances, res.Distances[i])
		}
	}
	return out
}

// Count returns the number of records.
func (c *Connection) Count(ctx context.Context, collection string) (int64, error) {
	conn, err := c.client()
	if err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var n int
	err = c.call(ctx, conn, collection, func(coll remoteCollection) (err error) {
		n, err = conn.Count(ctx, coll)
		return err
	})
	c.observeOperation("count", collection, time.Since(start), err, 0, nil)
	return int64(n), err
}

// GetCollectionInfo reports the count, metric, dimension and the metadata
// keys found in a sample of records.
func (c *Connection) GetCollectionInfo(ctx context.Context, collection string) (*vectordb.CollectionInfo, error) {
	conn, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	// Always refetch so metadata edits made elsewhere are visible.
	c.collections.Delete(collection)
	coll, err := c.resolve(ctx, conn, collection)
	if err != nil {
		return nil, err
	}

	count, err := conn.Count(ctx, coll)
	if err != nil {
		return nil, err
	}

	limit := metadataSampleSize
	sample, err := conn.Get(ctx, coll, getRequest{
		Limit:   &limit,
		Include: []string{"metadatas", "embeddings"},
	})
	if err != nil {
		return nil, err
	}
	batch := sample.batch()

	info := &vectordb.CollectionInfo{
		Name:           collection,
		Count:          int64(count),
		Distance:       distanceName(coll.space()),
		MetadataFields: vectordb.MetadataFields(batch),
		Extra: map[string]any{
			"id":       coll.ID,
			"metadata": coll.Metadata,
		},
	}
	if coll.Dimension != nil {
		info.VectorDimension = *coll.Dimension
	} else if len(batch.Embeddings) > 0 {
		info.VectorDimension = len(batch.Embeddings[0])
	}
	if model, ok := coll.Metadata[localstore.MetadataEmbeddingModel].(string); ok {
		info.EmbeddingModel = model
	}
	if kind, ok := coll.Metadata[localstore.MetadataEmbeddingModelType].(string); ok {
		info.EmbeddingModelType = kind
	}
	return info, nil
}
