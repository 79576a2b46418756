package milvus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

const (
	// maxQueryWindow is Milvus' limit on offset+limit for query and search.
	maxQueryWindow = 16384

	metadataSampleSize = 100
	clientFilterFactor = 5

	// allRows matches every primary key; Milvus requires an expression or a
	// limit on queries.
	allRows = FieldID + ` != ""`
)

// ListDatabases lists the databases of the server.
func (c *Connection) ListDatabases(ctx context.Context) ([]string, error) {
	cli, err := c.cli()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	names, err := cli.ListDatabase(ctx, milvusclient.NewListDatabaseOption())
	c.observeOperation("list_databases", "", time.Since(start), err, int64(len(names)), nil)
	if err != nil {
		return nil, translateError("list databases", "", err)
	}
	sort.Strings(names)
	return names, nil
}

// ListCollections lists the collections of the current database.
func (c *Connection) ListCollections(ctx context.Context) ([]string, error) {
	cli, err := c.cli()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	names, err := cli.ListCollections(ctx, milvusclient.NewListCollectionOption())
	c.observeOperation("list_collections", c.cfg.Database, time.Since(start), err, int64(len(names)), nil)
	if err != nil {
		return nil, translateError("list collections", "", err)
	}
	sort.Strings(names)
	return names, nil
}

// CreateCollection creates the collection, builds its IVF_FLAT index and
// loads it so it can be queried right away.
func (c *Connection) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	cli, err := c.cli()
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
	err = c.createCollection(ctx, cli, name, vectorSize, metricType(metric))
	c.observeOperation("create_collection", name, time.Since(start), err, 0, map[string]interface{}{
		"metric": string(metricType(metric)),
	})
	if err != nil {
		return err
	}
	c.logger.Info("Created Milvus collection", nil, map[string]interface{}{
		"collection": name,
		"dimension":  vectorSize,
		"metric":     string(metricType(metric)),
	})
	return nil
}

func (c *Connection) createCollection(ctx context.Context, cli *milvusclient.Client, name string, dim int, metric entity.MetricType) error {
	exists, err := cli.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return translateError("create collection", name, err)
	}
	if exists {
		return fmt.Errorf("milvus: %w: %s", vectordb.ErrCollectionExists, name)
	}

	if err := cli.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, newSchema(name, dim))); err != nil {
		return translateError("create collection", name, err)
	}
	task, err := cli.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, FieldEmbedding, ivfIndex(metric, c.cfg.NList)))
	if err != nil {
		return translateError("create index", name, err)
	}
	if err := task.Await(ctx); err != nil {
		return translateError("create index", name, err)
	}
	return c.ensureLoaded(ctx, cli, name)
}

// DeleteCollection drops a collection.
func (c *Connection) DeleteCollection(ctx context.Context, name string) error {
	cli, err := c.cli()
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	exists, err := cli.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err == nil && !exists {
		err = fmt.Errorf("milvus: %w: %s", vectordb.ErrCollectionNotFound, name)
	} else if err == nil {
		err = cli.DropCollection(ctx, milvusclient.NewDropCollectionOption(name))
	}
	c.observeOperation("delete_collection", name, time.Since(start), err, 0, nil)
	c.loaded.Delete(name)
	if err != nil {
		return translateError("delete collection", name, err)
	}
	c.logger.Info("Deleted Milvus collection", nil, map[string]interface{}{"collection": name})
	return nil
}

// ensureLoaded loads a collection into memory once per connection.
func (c *Connection) ensureLoaded(ctx context.Context, cli *milvusclient.Client, name string) error {
	if _, ok := c.loaded.Load(name); ok {
		return nil
	}
	task, err := cli.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return translateError("load collection", name, err)
	}
	if err := task.Await(ctx); err != nil {
		return translateError("load collection", name, err)
	}
	c.loaded.Store(name, struct{}{})
	return nil
}

// AddItems embeds missing vectors and inserts the rows in batches.
func (c *Connection) AddItems(ctx context.Context, collection string, in vectordb.AddRequest) error {
	cli, err := c.cli()
	if err != nil {
		return err
	}
	in, err = c.PrepareAdd(ctx, c, collection, in)
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	items := make([]vectordb.Item, len(in.IDs))
	for i := range in.IDs {
		items[i] = vectordb.Item{
			ID:        in.IDs[i],
			Document:  &in.Documents[i],
			Metadata:  in.Metadatas[i],
			Embedding: in.Embeddings[i],
		}
	}

	start := time.Now()
	err = c.insert(ctx, cli, collection, items)
	c.observeOperation("add_items", collection, time.Since(start), err, int64(len(items)), nil)
	return err
}

// UpdateItems merges the changes into the stored rows, deletes them and
// inserts the merged rows again.
func (c *Connection) UpdateItems(ctx context.Context, collection string, in vectordb.UpdateRequest) error {
	cli, err := c.cli()
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
	err = c.update(ctx, cli, collection, in)
	c.observeOperation("update_items", collection, time.Since(start), err, int64(len(in.IDs)), nil)
	return err
}

func (c *Connection) update(ctx context.Context, cli *milvusclient.Client, collection string, in vectordb.UpdateRequest) error {
	current, err := c.getByIDs(ctx, cli, collection, in.IDs)
	if err != nil {
		return err
	}
	merged := vectordb.MergeUpdate(current, in)
	if len(merged) == 0 {
		return nil
	}
	ids := make([]string, len(merged))
	for i, it := range merged {
		ids[i] = it.ID
	}
	if _, err := cli.Delete(ctx, milvusclient.NewDeleteOption(collection).WithStringIDs(FieldID, ids)); err != nil {
		return translateError("update items", collection, err)
	}
	return c.insert(ctx, cli, collection, merged)
}

// DeleteItems deletes rows by primary key.
func (c *Connection) DeleteItems(ctx context.Context, collection string, ids []string) error {
	cli, err := c.cli()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	_, err = cli.Delete(ctx, milvusclient.NewDeleteOption(collection).WithStringIDs(FieldID, ids))
	c.observeOperation("delete_items", collection, time.Since(start), err, int64(len(ids)), nil)
	return translateError("delete items", collection, err)
}

// GetItems fetches rows by id in request order.
func (c *Connection) GetItems(ctx context.Context, collection string, ids []string) (*vectordb.ItemBatch, error) {
	cli, err := c.cli()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	batch, err := c.getByIDs(ctx, cli, collection, ids)
	c.observeOperation("get_items", collection, time.Since(start), err, int64(batch.Len()), nil)
	return batch, err
}

// GetAllItems pages through a collection. Filters without an expression
// form are applied locally over the first DefaultScanCap rows.
func (c *Connection) GetAllItems(ctx context.Context, collection string, opts vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	cli, err := c.cli()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	expr, serverSide := compileExpr(opts.Filter)
	if expr == "" {
		expr = allRows
	}
	offset, limit := max(opts.Offset, 0), opts.EffectiveLimit()
	if !serverSide {
		offset, limit = 0, vectordb.DefaultScanCap
	}
	limit = min(limit, maxQueryWindow-offset)
	if limit <= 0 {
		return vectordb.NewItemBatch(0, true), nil
	}

	start := time.Now()
	batch, err := c.query(ctx, cli, collection, expr, offset, limit)
	c.observeOperation("get_all_items", collection, time.Since(start), err, int64(batch.Len()), map[string]interface{}{
		"server_side_filter": serverSide,
	})
	if err != nil {
		return nil, err
	}
	if !serverSide {
		batch = vectordb.ApplyFilter(batch, opts.Filter).Slice(opts.Offset, opts.EffectiveLimit())
	}
	return batch, nil
}

// Query runs an ANN search over the embedding field.
func (c *Connection) Query(ctx context.Context, collection string, q vectordb.QueryRequest) (*vectordb.SearchResult, error) {
	cli, err := c.cli()
	if err != nil {
		return nil, err
	}
	vec, err := c.QueryVector(ctx, c, collection, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.ensureLoaded(ctx, cli, collection); err != nil {
		return nil, err
	}
	metric := c.metric(ctx, cli, collection)

	expr, serverSide := compileExpr(q.Filter)
	topK := q.Limit()
	if !serverSide {
		topK = min(topK*clientFilterFactor, maxQueryWindow)
	}

	opt := milvusclient.NewSearchOption(collection, topK, []entity.Vector{entity.FloatVector(vec)}).
		WithANNSField(FieldEmbedding).
		WithOutputFields(outputFields...).
		WithConsistencyLevel(entity.ClStrong)
	if serverSide && expr != "" {
		opt = opt.WithFilter(expr)
	}

	start := time.Now()
	results, err := cli.Search(ctx, opt)
	c.observeOperation("query", collection, time.Since(start), err, 0, map[string]interface{}{
		"server_side_filter": serverSide,
	})
	if err != nil {
		return nil, translateError("query", collection, err)
	}

	res := &vectordb.SearchResult{ItemBatch: *vectordb.NewItemBatch(q.Limit(), true)}
	if len(results) == 0 {
		return res, nil
	}
	hits, err := readBatch(results[0])
	if err != nil {
		return nil, err
	}
	for i := 0; i < hits.Len() && res.Len() < q.Limit(); i++ {
		if !serverSide && !q.Filter.Matches(hits.Metadatas[i]) {
			continue
		}
		res.Append(hits.Item(i))
		var score float32
		if i < len(results[0].Scores) {
			score = results[0].Scores[i]
		}
		res.Distances = append(res.Distances, scoreToDistance(metric, score))
	}
	return res, nil
}

// Count returns the exact row count.
func (c *Connection) Count(ctx context.Context, collection string) (int64, error) {
	cli, err := c.cli()
	if err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	n, err := c.count(ctx, cli, collection)
	c.observeOperation("count", collection, time.Since(start), err, 0, nil)
	return n, err
}

// GetCollectionInfo reports the schema dimension, index metric, count and
// sampled metadata fields.
func (c *Connection) GetCollectionInfo(ctx context.Context, collection string) (*vectordb.CollectionInfo, error) {
	cli, err := c.cli()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	desc, err := cli.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(collection))
	if err != nil {
		c.observeOperation("get_collection_info", collection, time.Since(start), err, 0, nil)
		return nil, translateError("describe collection", collection, err)
	}
	count, err := c.count(ctx, cli, collection)
	if err != nil {
		return nil, err
	}
	sample, err := c.query(ctx, cli, collection, allRows, 0, metadataSampleSize)
	c.observeOperation("get_collection_info", collection, time.Since(start), err, 0, nil)
	if err != nil {
		return nil, err
	}

	extra := map[string]any{
		"id":          desc.ID,
		"loaded":      desc.Loaded,
		"shards":      desc.ShardNum,
		"consistency": desc.ConsistencyLevel,
	}
	if idx, err := cli.DescribeIndex(ctx, milvusclient.NewDescribeIndexOption(collection, FieldEmbedding)); err == nil {
		extra["index_type"] = string(idx.IndexType())
		extra["index_params"] = idx.Params()
	}

	info := &vectordb.CollectionInfo{
		Name:            collection,
		Count:           count,
		VectorDimension: dimension(desc.Schema),
		Distance:        distanceName(c.metric(ctx, cli, collection)),
		MetadataFields:  vectordb.MetadataFields(sample),
		Extra:           extra,
	}
	if model, ok := desc.Properties["embedding_model"]; ok {
		info.EmbeddingModel = model
	}
	if kind, ok := desc.Properties["embedding_model_type"]; ok {
		info.EmbeddingModelType = kind
	}
	return info, nil
}

// metric reads the index metric, falling back to COSINE.
func (c *Connection) metric(ctx context.Context, cli *milvusclient.Client, collection string) entity.MetricType {
	idx, err := cli.DescribeIndex(ctx, milvusclient.NewDescribeIndexOption(collection, FieldEmbedding))
	if err != nil {
		c.logger.Debug("No index description, assuming COSINE", err, map[string]interface{}{"collection": collection})
		return entity.COSINE
	}
	return metricFromParams(idx.Params())
}

func (c *Connection) insert(ctx context.Context, cli *milvusclient.Client, collection string, items []vectordb.Item) error {
	if len(items) == 0 {
		return nil
	}
	desc, err := cli.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(collection))
	if err != nil {
		return translateError("insert", collection, err)
	}
	dim := dimension(desc.Schema)
	for i := 0; i < len(items); i += c.cfg.BatchSize {
		cols, err := columns(items[i:min(i+c.cfg.BatchSize, len(items))], dim)
		if err != nil {
			return err
		}
		if _, err := cli.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collection, cols...)); err != nil {
			return translateError("insert", collection, err)
		}
	}
	return nil
}

func (c *Connection) query(ctx context.Context, cli *milvusclient.Client, collection, expr string, offset, limit int) (*vectordb.ItemBatch, error) {
	if err := c.ensureLoaded(ctx, cli, collection); err != nil {
		return nil, err
	}
	opt := milvusclient.NewQueryOption(collection).
		WithFilter(expr).
		WithOutputFields(outputFields...).
		WithConsistencyLevel(entity.ClStrong).
		WithLimit(limit)
	if offset > 0 {
		opt = opt.WithOffset(offset)
	}
	rs, err := cli.Query(ctx, opt)
	if err != nil {
		return nil, translateError("query", collection, err)
	}
	return readBatch(rs)
}

// getByIDs returns rows in the order of ids, skipping unknown ones.
func (c *Connection) getByIDs(ctx context.Context, cli *milvusclient.Client, collection string, ids []string) (*vectordb.ItemBatch, error) {
	out := vectordb.NewItemBatch(len(ids), true)
	if len(ids) == 0 {
		return out, nil
	}
	found, err := c.query(ctx, cli, collection, idsExpr(ids), 0, min(len(ids), maxQueryWindow))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]vectordb.Item, found.Len())
	for _, it := range found.Items() {
		byID[it.ID] = it
	}
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out.Append(it)
		}
	}
	return out, nil
}

func (c *Connection) count(ctx context.Context, cli *milvusclient.Client, collection string) (int64, error) {
	if err := c.ensureLoaded(ctx, cli, collection); err != nil {
		return 0, err
	}
	rs, err := cli.Query(ctx, milvusclient.NewQueryOption(collection).
		WithOutputFields("count(*)").
		WithConsistencyLevel(entity.ClStrong))
	if err != nil {
		return 0, translateError("count", collection, err)
	}
	n, err := countFrom(rs)
	if errors.Is(err, ErrUnexpectedColumn) {
		c.logger.Warn("Unexpected count(*) result", err, map[string]interface{}{"collection": collection})
	}
	return n, err
}
