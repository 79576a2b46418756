package qdrant

import (
	"context"
	"fmt"
	"sort"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// metadataSampleSize bounds how many points GetCollectionInfo scrolls to
// discover metadata fields.
const metadataSampleSize = 100

// wrapError prefixes err and maps gRPC NotFound onto ErrCollectionNotFound.
func wrapError(action, collection string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("[Qdrant] %s '%s': %w: %w", action, collection, vectordb.ErrCollectionNotFound, err)
	}
	return fmt.Errorf("[Qdrant] %s '%s': %w", action, collection, err)
}

// ──────────────────────────────────────────────────────────────
// Collections
// ──────────────────────────────────────────────────────────────

// ListCollections returns the collection names sorted alphabetically.
func (c *Connection) ListCollections(ctx context.Context) ([]string, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	names, err := api.ListCollections(ctx)
	c.observeOperation("list_collections", "", time.Since(start), err, int64(len(names)), nil)
	if err != nil {
		return nil, fmt.Errorf("[Qdrant] failed to list collections: %w", err)
	}
	sort.Strings(names)
	c.logger.Debug("Listed Qdrant collections", nil, map[string]interface{}{"count": len(names)})
	return names, nil
}

// CreateCollection creates a collection with a single unnamed dense vector.
func (c *Connection) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	api, err := c.client()
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
	exists, err := api.CollectionExists(ctx, name)
	if err != nil {
		return wrapError("failed to check collection", name, err)
	}
	if exists {
		return fmt.Errorf("[Qdrant] collection '%s': %w", name, vectordb.ErrCollectionExists)
	}

	err = api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: toQdrantDistance(metric),
		}),
	})
	c.observeOperation("create_collection", name, time.Since(start), err, 0, map[string]interface{}{
		"dimension": vectorSize,
		"distance":  string(metric),
	})
	if err != nil {
		return wrapError("failed to create collection", name, err)
	}
	c.logger.Info("Created Qdrant collection", nil, map[string]interface{}{
		"collection": name,
		"dimension":  vectorSize,
		"distance":   string(metric),
	})
	return nil
}

// DeleteCollection drops a collection and all its points.
func (c *Connection) DeleteCollection(ctx context.Context, name string) error {
	api, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err = api.DeleteCollection(ctx, name)
	c.observeOperation("delete_collection", name, time.Since(start), err, 0, nil)
	if err != nil {
		return wrapError("failed to delete collection", name, err)
	}
	c.logger.Info("Deleted Qdrant collection", nil, map[string]interface{}{"collection": name})
	return nil
}

// GetCollectionInfo combines the collection config, an exact point count
// and the metadata keys seen in a sample of points.
func (c *Connection) GetCollectionInfo(ctx context.Context, collection string) (*vectordb.CollectionInfo, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	info, err := api.GetCollectionInfo(ctx, collection)
	c.observeOperation("get_collection_info", collection, time.Since(start), err, 0, nil)
	if err != nil {
		return nil, wrapError("failed to get collection", collection, err)
	}
	size, metric := extractVectorDetails(info)

	count, err := c.count(ctx, api, collection)
	if err != nil {
		return nil, err
	}
	sample, err := c.scroll(ctx, api, collection, nil, metadataSampleSize, false)
	if err != nil {
		return nil, err
	}

	return &vectordb.CollectionInfo{
		Name:            collection,
		Count:           count,
		VectorDimension: size,
		Distance:        metric,
		MetadataFields:  vectordb.MetadataFields(sample),
		Extra: map[string]any{
			"status":          info.GetStatus().String(),
			"indexed_vectors": derefUint64(info.IndexedVectorsCount),
			"segments":        info.GetSegmentsCount(),
		},
	}, nil
}

// ──────────────────────────────────────────────────────────────
// Items
// ──────────────────────────────────────────────────────────────

// AddItems embeds missing vectors and upserts points in batches of
// Config.BatchSize. Each batch waits for the write to be applied.
func (c *Connection) AddItems(ctx context.Context, collection string, in vectordb.AddRequest) error {
	api, err := c.client()
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
	err = c.upsert(ctx, api, collection, items)
	c.observeOperation("add_items", collection, time.Since(start), err, int64(len(items)), nil)
	return err
}

// UpdateItems reads the current points, applies the changes and writes
// them back. Ids that do not exist are ignored.
func (c *Connection) UpdateItems(ctx context.Context, collection string, in vectordb.UpdateRequest) error {
	api, err := c.client()
	if err != nil {
		return err
	}
	if err := vectordb.ValidateUpdate(in); err != nil {
		return err
	}
	in = c.ReembedUpdated(ctx, c, collection, in)

	start := time.Now()
	existing, err := c.get(ctx, api, collection, in.IDs)
	if err == nil {
		err = c.upsert(ctx, api, collection, vectordb.MergeUpdate(existing, in))
	}
	c.observeOperation("update_items", collection, time.Since(start), err, int64(len(in.IDs)), nil)
	return err
}

// DeleteItems removes points by id.
func (c *Connection) DeleteItems(ctx context.Context, collection string, ids []string) error {
	api, err := c.client()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pids := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pid, _ := toPointID(id)
		pids = append(pids, pid)
	}

	wait := true
	start := time.Now()
	_, err = api.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pids},
			},
		},
		Wait: &wait,
	})
	c.observeOperation("delete_items", collection, time.Since(start), err, int64(len(ids)), nil)
	if err != nil {
		return wrapError("delete failed in", collection, err)
	}
	return nil
}

// GetItems fetches points by id, including vectors.
func (c *Connection) GetItems(ctx context.Context, collection string, ids []string) (*vectordb.ItemBatch, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	batch, err := c.get(ctx, api, collection, ids)
	c.observeOperation("get_items", collection, time.Since(start), err, int64(batch.Len()), nil)
	return batch, err
}

// GetAllItems scrolls the collection. Qdrant pages by point id, so the
// offset is applied by skipping the first Offset points of the scroll.
func (c *Connection) GetAllItems(ctx context.Context, collection string, opts vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	batch, err := c.scroll(ctx, api, collection, opts.Filter, opts.Offset+opts.EffectiveLimit(), true)
	c.observeOperation("get_all_items", collection, time.Since(start), err, int64(batch.Len()), nil)
	if err != nil {
		return nil, err
	}
	return batch.Slice(opts.Offset, opts.EffectiveLimit()), nil
}

// Query runs a nearest-neighbour search and reports distances, so cosine
// scores are converted from similarity.
func (c *Connection) Query(ctx context.Context, collection string, q vectordb.QueryRequest) (*vectordb.SearchResult, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	vector, err := c.QueryVector(ctx, c, collection, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := api.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, wrapError("failed to get collection", collection, err)
	}
	_, metric := extractVectorDetails(info)

	limit := uint64(q.Limit())
	start := time.Now()
	points, err := api.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         convertFilterSet(q.Filter),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	c.observeOperation("query", collection, time.Since(start), err, int64(len(points)), nil)
	if err != nil {
		return nil, wrapError("search failed in", collection, err)
	}

	res := &vectordb.SearchResult{
		ItemBatch: *vectordb.NewItemBatch(len(points), true),
		Distances: make([]float32, 0, len(points)),
	}
	for _, p := range points {
		it, err := pointToItem(p.GetId(), p.GetPayload(), p.GetVectors())
		if err != nil {
			return nil, err
		}
		res.Append(it)
		res.Distances = append(res.Distances, scoreToDistance(metric, p.GetScore()))
	}
	return res, nil
}

// Count returns the exact number of points.
func (c *Connection) Count(ctx context.Context, collection string) (int64, error) {
	api, err := c.client()
	if err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	n, err := c.count(ctx, api, collection)
	c.observeOperation("count", collection, time.Since(start), err, 0, nil)
	return n, err
}

// ──────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────

// upsert sends items in batches of Config.BatchSize.
func (c *Connection) upsert(ctx context.Context, api *qdrant.Client, collection string, items []vectordb.Item) error {
	for start := 0; start < len(items); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(items))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for _, it := range items[start:end] {
			p, err := buildPoint(it)
			if err != nil {
				return err
			}
			points = append(points, p)
		}

		bctx, cancel := c.withTimeout(ctx)
		wait := true
		_, err := api.Upsert(bctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
			Wait:           &wait,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("[Qdrant] batch upsert failed at [%d:%d]: %w", start, end, wrapError("upsert into", collection, err))
		}
		c.logger.Debug("Upserted Qdrant batch", nil, map[string]interface{}{
			"collection": collection,
			"from":       start,
			"to":         end,
		})
	}
	return nil
}

func (c *Connection) get(ctx context.Context, api *qdrant.Client, collection string, ids []string) (*vectordb.ItemBatch, error) {
	batch := vectordb.NewItemBatch(len(ids), true)
	if len(ids) == 0 {
		return batch, nil
	}
	pids := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pid, _ := toPointID(id)
		pids = append(pids, pid)
	}
	points, err := api.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            pids,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, wrapError("get failed in", collection, err)
	}
	for _, p := range points {
		it, err := pointToItem(p.GetId(), p.GetPayload(), p.GetVectors())
		if err != nil {
			return nil, err
		}
		batch.Append(it)
	}
	return batch, nil
}

func (c *Connection) scroll(ctx context.Context, api *qdrant.Client, collection string, filter *vectordb.FilterSet, limit int, withVectors bool) (*vectordb.ItemBatch, error) {
	n := uint32(limit)
	points, err := api.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         convertFilterSet(filter),
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	})
	if err != nil {
		return nil, wrapError("scroll failed in", collection, err)
	}
	batch := vectordb.NewItemBatch(len(points), withVectors)
	for _, p := range points {
		it, err := pointToItem(p.GetId(), p.GetPayload(), p.GetVectors())
		if err != nil {
			return nil, err
		}
		batch.Append(it)
	}
	return batch, nil
}

func (c *Connection) count(ctx context.Context, api *qdrant.Client, collection string) (int64, error) {
	exact := true
	n, err := api.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, wrapError("count failed in", collection, err)
	}
	return int64(n), nil
}
