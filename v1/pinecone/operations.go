package pinecone

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

const (
	fetchBatch = 100
	listPage   = 100

	metadataSampleSize = 100
	clientFilterFactor = 5
	maxTopK            = 10000
)

// ListCollections lists the project's indexes.
func (c *Connection) ListCollections(ctx context.Context) ([]string, error) {
	control, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	list, err := control.ListIndexes(ctx)
	c.observeOperation("list_collections", "indexes", time.Since(start), err, int64(len(list)), nil)
	if err != nil {
		return nil, translateError(err)
	}
	names := make([]string, 0, len(list))
	for _, idx := range list {
		c.indexes.Store(idx.Name, idx)
		names = append(names, idx.Name)
	}
	sort.Strings(names)
	return names, nil
}

// CreateCollection creates a serverless index in the configured cloud region.
func (c *Connection) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	control, err := c.client()
	if err != nil {
		return err
	}
	distanceKind, err := vectordb.ValidateCollectionSpec(name, vectorSize, distance)
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	metric := metricFor(distanceKind)
	start := time.Now()
	created, err := control.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      name,
		Dimension: int32(vectorSize),
		Metric:    metric,
		Cloud:     pinecone.Cloud(c.cfg.Cloud),
		Region:    c.cfg.Region,
	})
	c.observeOperation("create_collection", name, time.Since(start), err, 0, map[string]interface{}{
		"metric": string(metric),
	})
	if err != nil {
		return translateError(err)
	}
	if created != nil {
		c.indexes.Store(name, created)
	}
	c.logger.Info("Created Pinecone index", nil, map[string]interface{}{
		"index":     name,
		"dimension": vectorSize,
		"metric":    string(metric),
	})
	return nil
}

// DeleteCollection deletes an index.
func (c *Connection) DeleteCollection(ctx context.Context, name string) error {
	control, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err = control.DeleteIndex(ctx, name)
	c.observeOperation("delete_collection", name, time.Since(start), err, 0, nil)
	c.forget(name)
	if err != nil {
		return translateError(err)
	}
	c.logger.Info("Deleted Pinecone index", nil, map[string]interface{}{"index": name})
	return nil
}

// describe returns the index description, fetching it when not cached or
// when the cached one has no host yet.
func (c *Connection) describe(ctx context.Context, control controlPlane, name string, refresh bool) (*pinecone.Index, error) {
	if v, ok := c.indexes.Load(name); ok && !refresh && v.(*pinecone.Index).Host != "" {
		return v.(*pinecone.Index), nil
	}
	idx, err := control.DescribeIndex(ctx, name)
	if err != nil {
		return nil, translateError(err)
	}
	if idx == nil {
		return nil, fmt.Errorf("%w: empty description of %s", ErrUnexpectedResponse, name)
	}
	c.indexes.Store(name, idx)
	if idx.Host == "" {
		return nil, fmt.Errorf("%w: %s (%s)", ErrIndexNotReady, name, indexState(idx))
	}
	return idx, nil
}

// AddItems embeds missing vectors and upserts the records in batches.
func (c *Connection) AddItems(ctx context.Context, collection string, in vectordb.AddRequest) error {
	control, err := c.client()
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
	err = c.upsert(ctx, control, collection, items)
	c.observeOperation("add_items", collection, time.Since(start), err, int64(len(items)), nil)
	return err
}

// UpdateItems fetches the current vectors, merges the changes and upserts
// the result. Pinecone's own update call merges metadata keys instead of
// replacing them, so it is not used.
func (c *Connection) UpdateItems(ctx context.Context, collection string, in vectordb.UpdateRequest) error {
	control, err := c.client()
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
	current, err := c.fetch(ctx, control, collection, in.IDs)
	if err == nil {
		err = c.upsert(ctx, control, collection, vectordb.MergeUpdate(current, in))
	}
	c.observeOperation("update_items", collection, time.Since(start), err, int64(len(in.IDs)), nil)
	return err
}

// DeleteItems deletes vectors by id.
func (c *Connection) DeleteItems(ctx context.Context, collection string, ids []string) error {
	control, err := c.client()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	plane, _, err := c.index(ctx, control, collection)
	if err == nil {
		for i := 0; i < len(ids) && err == nil; i += c.cfg.BatchSize {
			err = translateError(plane.DeleteVectorsById(ctx, ids[i:min(i+c.cfg.BatchSize, len(ids))]))
		}
	}
	c.observeOperation("delete_items", collection, time.Since(start), err, int64(len(ids)), nil)
	return err
}

// GetItems fetches vectors by id in request order.
func (c *Connection) GetItems(ctx context.Context, collection string, ids []string) (*vectordb.ItemBatch, error) {
	control, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	batch, err := c.fetch(ctx, control, collection, ids)
	c.observeOperation("get_items", collection, time.Since(start), err, int64(batch.Len()), nil)
	return batch, err
}

// GetAllItems pages through the namespace with ListVectors. Pinecone
// cannot filter listings, so filtered scans fetch up to DefaultScanCap
// vectors and filter locally.
func (c *Connection) GetAllItems(ctx context.Context, collection string, opts vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	control, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	offset, limit := max(opts.Offset, 0), opts.EffectiveLimit()
	filtered := !opts.Filter.IsEmpty()
	want := min(offset+limit, vectordb.DefaultScanCap)
	if filtered {
		want = vectordb.DefaultScanCap
	}

	start := time.Now()
	var batch *vectordb.ItemBatch
	ids, err := c.listIDs(ctx, control, collection, want)
	if err == nil {
		if !filtered {
			ids = ids[min(offset, len(ids)):]
		}
		batch, err = c.fetch(ctx, control, collection, ids)
	}
	c.observeOperation("get_all_items", collection, time.Since(start), err, int64(batch.Len()), map[string]interface{}{
		"filtered": filtered,
	})
	if err != nil {
		return nil, err
	}
	if filtered {
		return vectordb.ApplyFilter(batch, opts.Filter).Slice(offset, limit), nil
	}
	return batch.Slice(0, limit), nil
}

// Query runs a similarity search in the configured namespace.
func (c *Connection) Query(ctx context.Context, collection string, q vectordb.QueryRequest) (*vectordb.SearchResult, error) {
	control, err := c.client()
	if err != nil {
		return nil, err
	}
	vec, err := c.QueryVector(ctx, c, collection, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	plane, idx, err := c.index(ctx, control, collection)
	if err != nil {
		return nil, err
	}

	compiled, serverSide := compileFilter(q.Filter)
	filter, err := toStruct(compiled)
	if err != nil {
		return nil, fmt.Errorf("%w: filter: %v", vectordb.ErrInvalidArgument, err)
	}
	topK := q.Limit()
	if !serverSide {
		topK = min(topK*clientFilterFactor, maxTopK)
	}

	start := time.Now()
	resp, err := plane.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vec,
		TopK:            uint32(topK),
		MetadataFilter:  filter,
		IncludeValues:   true,
		IncludeMetadata: true,
	})
	var matches []*pinecone.ScoredVector
	if resp != nil {
		matches = resp.Matches
	}
	c.observeOperation("query", collection, time.Since(start), err, int64(len(matches)), map[string]interface{}{
		"server_side_filter": serverSide,
	})
	if err != nil {
		return nil, translateError(err)
	}

	res := &vectordb.SearchResult{ItemBatch: *vectordb.NewItemBatch(len(matches), true)}
	for _, m := range matches {
		if res.Len() == q.Limit() {
			break
		}
		if m == nil || m.Vector == nil {
			continue
		}
		it := fromVector(m.Vector)
		if !serverSide && !q.Filter.Matches(it.Metadata) {
			continue
		}
		res.Append(it)
		res.Distances = append(res.Distances, scoreToDistance(idx.Metric, m.Score))
	}
	return res, nil
}

// Count returns the number of vectors in the configured namespace.
func (c *Connection) Count(ctx context.Context, collection string) (int64, error) {
	control, err := c.client()
	if err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	stats, err := c.stats(ctx, control, collection)
	c.observeOperation("count", collection, time.Since(start), err, 0, nil)
	if err != nil {
		return 0, err
	}
	return namespaceCount(stats, c.cfg.Namespace), nil
}

// GetCollectionInfo combines the index description, its stats and a sample
// of vectors for metadata field discovery.
func (c *Connection) GetCollectionInfo(ctx context.Context, collection string) (*vectordb.CollectionInfo, error) {
	control, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	idx, err := c.describe(ctx, control, collection, true)
	if err != nil {
		return nil, err
	}
	stats, err := c.stats(ctx, control, collection)
	if err != nil {
		return nil, err
	}
	ids, err := c.listIDs(ctx, control, collection, metadataSampleSize)
	if err != nil {
		return nil, err
	}
	sample, err := c.fetch(ctx, control, collection, ids)
	c.observeOperation("get_collection_info", collection, time.Since(start), err, 0, nil)
	if err != nil {
		return nil, err
	}

	namespaces := make([]string, 0, len(stats.Namespaces))
	for ns := range stats.Namespaces {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	return &vectordb.CollectionInfo{
		Name:            collection,
		Count:           namespaceCount(stats, c.cfg.Namespace),
		VectorDimension: int(idx.Dimension),
		Distance:        distanceName(idx.Metric),
		MetadataFields:  vectordb.MetadataFields(sample),
		Extra: map[string]any{
			"host":               idx.Host,
			"state":              indexState(idx),
			"namespace":          c.cfg.Namespace,
			"namespaces":         namespaces,
			"total_vector_count": int64(stats.TotalVectorCount),
			"index_fullness":     float64(stats.IndexFullness),
		},
	}, nil
}

func (c *Connection) upsert(ctx context.Context, control controlPlane, collection string, items []vectordb.Item) error {
	if len(items) == 0 {
		return nil
	}
	plane, _, err := c.index(ctx, control, collection)
	if err != nil {
		return err
	}
	for i := 0; i < len(items); i += c.cfg.BatchSize {
		chunk := items[i:min(i+c.cfg.BatchSize, len(items))]
		vectors := make([]*pinecone.Vector, len(chunk))
		for j, it := range chunk {
			if vectors[j], err = toVector(it); err != nil {
				return err
			}
		}
		if _, err := plane.UpsertVectors(ctx, vectors); err != nil {
			return translateError(err)
		}
	}
	return nil
}

// fetch returns the vectors for ids in the given order, skipping unknown ids.
func (c *Connection) fetch(ctx context.Context, control controlPlane, collection string, ids []string) (*vectordb.ItemBatch, error) {
	out := vectordb.NewItemBatch(len(ids), true)
	if len(ids) == 0 {
		return out, nil
	}
	plane, _, err := c.index(ctx, control, collection)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(ids); i += fetchBatch {
		chunk := ids[i:min(i+fetchBatch, len(ids))]
		resp, err := plane.FetchVectors(ctx, chunk)
		if err != nil {
			return nil, translateError(err)
		}
		if resp == nil {
			continue
		}
		for _, id := range chunk {
			if v, ok := resp.Vectors[id]; ok && v != nil {
				it := fromVector(v)
				it.ID = id
				out.Append(it)
			}
		}
	}
	return out, nil
}

// listIDs follows ListVectors pagination tokens until want ids are collected.
func (c *Connection) listIDs(ctx context.Context, control controlPlane, collection string, want int) ([]string, error) {
	plane, _, err := c.index(ctx, control, collection)
	if err != nil {
		return nil, err
	}
	var (
		ids   []string
		token *string
	)
	for len(ids) < want {
		limit := uint32(min(listPage, want-len(ids)))
		resp, err := plane.ListVectors(ctx, &pinecone.ListVectorsRequest{
			Limit:           &limit,
			PaginationToken: token,
		})
		if err != nil {
			return nil, translateError(err)
		}
		if resp == nil {
			break
		}
		for _, id := range resp.VectorIds {
			if id != nil {
				ids = append(ids, *id)
			}
		}
		if resp.NextPaginationToken == nil || *resp.NextPaginationToken == "" || len(resp.VectorIds) == 0 {
			break
		}
		token = resp.NextPaginationToken
	}
	return ids, nil
}

func (c *Connection) stats(ctx context.Context, control controlPlane, collection string) (*pinecone.DescribeIndexStatsResponse, error) {
	plane, _, err := c.index(ctx, control, collection)
	if err != nil {
		return nil, err
	}
	stats, err := plane.DescribeIndexStats(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	if stats == nil {
		return nil, fmt.Errorf("%w: empty index stats for %s", ErrUnexpectedResponse, collection)
	}
	return stats, nil
}

func namespaceCount(stats *pinecone.DescribeIndexStatsResponse, namespace string) int64 {
	if ns, ok := stats.Namespaces[namespace]; ok && ns != nil {
		return int64(ns.VectorCount)
	}
	return 0
}
