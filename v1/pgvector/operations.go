package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pgv "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// metadataSampleSize bounds how many rows GetCollectionInfo inspects for
// metadata keys.
const metadataSampleSize = 100

// row is the scan target for item queries.
type row struct {
	ID        string      `gorm:"column:id"`
	Document  *string     `gorm:"column:document"`
	Metadata  []byte      `gorm:"column:metadata"`
	Embedding *pgv.Vector `gorm:"column:embedding"`
	Distance  float64     `gorm:"column:distance"`
}

func (r row) item() (vectordb.Item, error) {
	it := vectordb.Item{ID: r.ID, Document: r.Document, Metadata: map[string]any{}}
	if len(r.Metadata) > 0 && string(r.Metadata) != "null" {
		if err := json.Unmarshal(r.Metadata, &it.Metadata); err != nil {
			return vectordb.Item{}, fmt.Errorf("pgvector: decode metadata of %s: %w", r.ID, err)
		}
	}
	if r.Embedding != nil {
		it.Embedding = r.Embedding.Slice()
	}
	return it, nil
}

func batchFromRows(rows []row) (*vectordb.ItemBatch, error) {
	batch := vectordb.NewItemBatch(len(rows), true)
	for _, r := range rows {
		it, err := r.item()
		if err != nil {
			return nil, err
		}
		batch.Append(it)
	}
	return batch, nil
}

// ListDatabases lists the non-template databases on the server.
func (c *Connection) ListDatabases(ctx context.Context) ([]string, error) {
	db, cancel, err := c.db(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	start := time.Now()
	var names []string
	err = db.Raw(sqlListDatabases).Scan(&names).Error
	c.observeOperation("list_databases", "", time.Since(start), err, int64(len(names)), nil)
	if err != nil {
		return nil, TranslateError(err)
	}
	return names, nil
}

// ListCollections lists the public tables that have a vector column.
func (c *Connection) ListCollections(ctx context.Context) ([]string, error) {
	db, cancel, err := c.db(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	start := time.Now()
	var names []string
	err = db.Raw(sqlListCollections).Scan(&names).Error
	c.observeOperation("list_collections", "", time.Since(start), err, int64(len(names)), nil)
	if err != nil {
		return nil, TranslateError(err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// CreateCollection creates the table and an ivfflat index for the metric.
func (c *Connection) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	metric, err := vectordb.ValidateCollectionSpec(name, vectorSize, distance)
	if err != nil {
		return err
	}
	table, err := quoteIdent(name)
	if err != nil {
		return fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	db, cancel, err := c.db(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	start := time.Now()
	exists, err := tableExists(db, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("pgvector: table %s: %w", name, vectordb.ErrCollectionExists)
	}

	err = db.Exec(fmt.Sprintf(sqlCreateTable, table, vectorSize)).Error
	c.observeOperation("create_collection", name, time.Since(start), err, 0, map[string]interface{}{
		"dimension": vectorSize,
		"distance":  string(metric),
	})
	if err != nil {
		return TranslateError(err)
	}

	index, _ := quoteIdent(indexName(name))
	if err := db.Exec(fmt.Sprintf(sqlCreateIndex, index, table, opClass(metric), c.cfg.IndexLists)).Error; err != nil {
		c.logger.Warn("Failed to create vector index", err, map[string]interface{}{"collection": name})
	}
	c.logger.Info("Created pgvector collection", nil, map[string]interface{}{
		"collection": name,
		"dimension":  vectorSize,
		"distance":   string(metric),
	})
	return nil
}

// indexName keeps generated index names within the identifier limit.
func indexName(table string) string {
	const suffix = "_embedding_idx"
	if len(table)+len(suffix) > 63 {
		table = table[:63-len(suffix)]
	}
	return table + suffix
}

func tableExists(db *gorm.DB, name string) (bool, error) {
	var n int64
	if err := db.Raw(sqlTableExists, name).Scan(&n).Error; err != nil {
		return false, TranslateError(err)
	}
	return n > 0, nil
}

// DeleteCollection drops the table.
func (c *Connection) DeleteCollection(ctx context.Context, name string) error {
	table, err := quoteIdent(name)
	if err != nil {
		return fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	db, cancel, err := c.db(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	start := time.Now()
	err = db.Exec("DROP TABLE " + table).Error
	c.observeOperation("delete_collection", name, time.Since(start), err, 0, nil)
	if err != nil {
		return TranslateError(err)
	}
	c.logger.Info("Dropped pgvector collection", nil, map[string]interface{}{"collection": name})
	return nil
}

// AddItems embeds missing vectors and upserts the rows in batches.
func (c *Connection) AddItems(ctx context.Context, collection string, in vectordb.AddRequest) error {
	table, err := quoteIdent(collection)
	if err != nil {
		return fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	if err := c.Guard(); err != nil {
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

	db, cancel, err := c.db(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	start := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		return c.upsert(tx, table, items)
	})
	c.observeOperation("add_items", collection, time.Since(start), err, int64(len(items)), nil)
	return TranslateError(err)
}

// UpdateItems applies the changes inside one transaction, reading the
// current rows first so omitted fields are kept.
func (c *Connection) UpdateItems(ctx context.Context, collection string, in vectordb.UpdateRequest) error {
	table, err := quoteIdent(collection)
	if err != nil {
		return fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	if err := c.Guard(); err != nil {
		return err
	}
	if err := vectordb.ValidateUpdate(in); err != nil {
		return err
	}
	in = c.ReembedUpdated(ctx, c, collection, in)

	db, cancel, err := c.db(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	start := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		existing, err := selectByIDs(tx, table, in.IDs)
		if err != nil {
			return err
		}
		return c.upsert(tx, table, vectordb.MergeUpdate(existing, in))
	})
	c.observeOperation("update_items", collection, time.Since(start), err, int64(len(in.IDs)), nil)
	return TranslateError(err)
}

func (c *Connection) upsert(tx *gorm.DB, table string, items []vectordb.Item) error {
	for start := 0; start < len(items); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(items))

		placeholders := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*4)
		for _, it := range items[start:end] {
			md, err := json.Marshal(it.Metadata)
			if err != nil {
				return fmt.Errorf("%w: metadata of %s: %v", vectordb.ErrInvalidArgument, it.ID, err)
			}
			var vec any
			if it.Embedding != nil {
				vec = pgv.NewVector(it.Embedding)
			}
			placeholders = append(placeholders, "(?, ?, ?::jsonb, ?)")
			args = append(args, it.ID, it.Document, string(md), vec)
		}

		stmt := fmt.Sprintf(sqlUpsert, table, strings.Join(placeholders, ", "))
		if err := tx.Exec(stmt, args...).Error; err != nil {
			return fmt.Errorf("pgvector: batch upsert failed at [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// DeleteItems removes rows by id.
func (c *Connection) DeleteItems(ctx context.Context, collection string, ids []string) error {
	table, err := quoteIdent(collection)
	if err != nil {
		return fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	db, cancel, err := c.db(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	err = db.Exec("DELETE FROM "+table+" WHERE id IN ?", ids).Error
	c.observeOperation("delete_items", collection, time.Since(start), err, int64(len(ids)), nil)
	return TranslateError(err)
}

// GetItems returns the rows for ids in request order. Unknown ids are skipped.
func (c *Connection) GetItems(ctx context.Context, collection string, ids []string) (*vectordb.ItemBatch, error) {
	table, err := quoteIdent(collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	db, cancel, err := c.db(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	start := time.Now()
	batch, err := selectByIDs(db, table, ids)
	c.observeOperation("get_items", collection, time.Since(start), err, int64(batch.Len()), nil)
	if err != nil {
		return nil, TranslateError(err)
	}
	return batch, nil
}

func selectByIDs(db *gorm.DB, table string, ids []string) (*vectordb.ItemBatch, error) {
	if len(ids) == 0 {
		return vectordb.NewItemBatch(0, true), nil
	}
	var rows []row
	if err := db.Raw("SELECT id, document, metadata, embedding FROM "+table+" WHERE id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]row, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	ordered := make([]row, 0, len(rows))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
			delete(byID, id)
		}
	}
	return batchFromRows(ordered)
}

// GetAllItems pages through the table ordered by id.
func (c *Connection) GetAllItems(ctx context.Context, collection string, opts vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	table, err := quoteIdent(collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	where, args, err := whereClause(opts.Filter)
	if err != nil {
		return nil, err
	}
	db, cancel, err := c.db(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	stmt := "SELECT id, document, metadata, embedding FROM " + table
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, opts.EffectiveLimit(), max(opts.Offset, 0))

	start := time.Now()
	var rows []row
	err = db.Raw(stmt, args...).Scan(&rows).Error
	c.observeOperation("get_all_items", collection, time.Since(start), err, int64(len(rows)), nil)
	if err != nil {
		return nil, TranslateError(err)
	}
	return batchFromRows(rows)
}

// Query orders rows by the operator matching the table's index metric.
// Inner products are reported as-is rather than negated.
func (c *Connection) Query(ctx context.Context, collection string, q vectordb.QueryRequest) (*vectordb.SearchResult, error) {
	table, err := quoteIdent(collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	if err := c.Guard(); err != nil {
		return nil, err
	}
	vector, err := c.QueryVector(ctx, c, collection, q)
	if err != nil {
		return nil, err
	}
	where, whereArgs, err := whereClause(q.Filter)
	if err != nil {
		return nil, err
	}
	db, cancel, err := c.db(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	metric, err := tableMetric(db, collection)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT id, document, metadata, embedding, embedding %s ? AS distance FROM %s WHERE embedding IS NOT NULL",
		distanceOperator(metric), table)
	args := []any{pgv.NewVector(vector)}
	if where != "" {
		stmt += " AND " + where
		args = append(args, whereArgs...)
	}
	stmt += " ORDER BY distance LIMIT ?"
	args = append(args, q.Limit())

	start := time.Now()
	var rows []row
	err = db.Raw(stmt, args...).Scan(&rows).Error
	c.observeOperation("query", collection, time.Since(start), err, int64(len(rows)), map[string]interface{}{
		"distance": string(metric),
	})
	if err != nil {
		return nil, TranslateError(err)
	}

	res := &vectordb.SearchResult{
		ItemBatch: *vectordb.NewItemBatch(len(rows), true),
		Distances: make([]float32, 0, len(rows)),
	}
	for _, r := range rows {
		it, err := r.item()
		if err != nil {
			return nil, err
		}
		res.Append(it)
		d := r.Distance
		if metric == vectordb.DistanceDot {
			d = -d
		}
		res.Distances = append(res.Distances, float32(d))
	}
	return res, nil
}

func tableMetric(db *gorm.DB, name string) (vectordb.Distance, error) {
	var defs []string
	if err := db.Raw(sqlIndexDefs, name).Scan(&defs).Error; err != nil {
		return "", TranslateError(err)
	}
	return metricFromIndexDefs(defs), nil
}

// Count returns the number of rows.
func (c *Connection) Count(ctx context.Context, collection string) (int64, error) {
	table, err := quoteIdent(collection)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	db, cancel, err := c.db(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	start := time.Now()
	var n int64
	err = db.Raw("SELECT COUNT(*) FROM " + table).Scan(&n).Error
	c.observeOperation("count", collection, time.Since(start), err, 0, nil)
	return n, TranslateError(err)
}

// GetCollectionInfo reads the vector dimension from the column type, the
// metric from the index and metadata keys from a sample of rows.
func (c *Connection) GetCollectionInfo(ctx context.Context, collection string) (*vectordb.CollectionInfo, error) {
	table, err := quoteIdent(collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	db, cancel, err := c.db(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	start := time.Now()
	defer func() {
		c.observeOperation("get_collection_info", collection, time.Since(start), err, 0, nil)
	}()

	exists, err := tableExists(db, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("pgvector: table %s: %w", collection, vectordb.ErrCollectionNotFound)
	}

	var count int64
	if err = db.Raw("SELECT COUNT(*) FROM " + table).Scan(&count).Error; err != nil {
		return nil, TranslateError(err)
	}

	var dimension int
	if err = db.Raw(sqlDimension, collection).Scan(&dimension).Error; err != nil {
		return nil, TranslateError(err)
	}

	var defs []string
	if err = db.Raw(sqlIndexDefs, collection).Scan(&defs).Error; err != nil {
		return nil, TranslateError(err)
	}

	var fields []string
	err = db.Raw(fmt.Sprintf(`
SELECT DISTINCT k FROM (
    SELECT jsonb_object_keys(metadata) AS k
    FROM (SELECT metadata FROM %s WHERE jsonb_typeof(metadata) = 'object' LIMIT %d) sample
) keys ORDER BY k`, table, metadataSampleSize)).Scan(&fields).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	if fields == nil {
		fields = []string{}
	}

	info := &vectordb.CollectionInfo{
		Name:           collection,
		Count:          count,
		Distance:       string(metricFromIndexDefs(defs)),
		MetadataFields: fields,
		Extra: map[string]any{
			"table":   collection,
			"indexes": defs,
		},
	}
	if dimension > 0 {
		info.VectorDimension = dimension
	}
	return info, nil
}
