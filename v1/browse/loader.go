package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/cache"
	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by loaders and searchers.
//
//go:generate mockgen -source=loader.go -destination=mock_logger.go -package=browse
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Cache is the part of *cache.Manager used for browse state.
type Cache interface {
	Get(database, collection string) (*cache.Entry, bool)
	SetIfGeneration(gen uint64, database, collection string, entry cache.Entry) bool
	Update(database, collection string, f cache.Fields)
	UpdateIfGeneration(gen uint64, database, collection string, f cache.Fields) bool
	Generation() uint64
}

// PageRequest selects one page of a collection. Page is one-based.
type PageRequest struct {
	// Database is the cache namespace, normally the connection id.
	Database   string
	Collection string
	Page       int
	PageSize   int
	Filter     *vectordb.FilterSet

	// Refresh bypasses the cache.
	Refresh bool
}

// Offset is the zero-based index of the first item on the page.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// Page is one loaded page.
type Page struct {
	Items    *vectordb.ItemBatch
	Page     int
	PageSize int

	// HasMore reports whether at least one item follows this page.
	HasMore   bool
	FromCache bool
}

// Loader loads collection data for display. A nil cache disables caching.
type Loader struct {
	cache    Cache
	logger   Logger
	observer observability.Observer
}

// Option customizes a Loader or Searcher.
type Option func(*options)

type options struct {
	observer observability.Observer
}

// WithObserver reports every load and search to o.
func WithObserver(o observability.Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// NewLoader returns a Loader. A nil logger is replaced by a no-op logger.
func NewLoader(c Cache, log Logger, opts ...Option) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader{cache: c, logger: log, observer: o.observer}
}

const (
	inputPage     = "page"
	inputPageSize = "page_size"
	inputFilter   = "filter"
)

// LoadPage returns one page of items with embeddings.
//
// A cached page is served when the cache holds the same page, page size and
// filter for (Database, Collection) and Refresh is not set. A freshly
// loaded page is written back only if no global invalidation happened while
// it was loading, so a page fetched from a previous connection never lands
// in the cache of the current one.
func (l *Loader) LoadPage(ctx context.Context, conn vectordb.Connection, req PageRequest) (*Page, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}
	if req.Page < 1 || req.PageSize < 1 {
		return nil, ErrInvalidPage
	}
	filterKey, err := filterKey(req.Filter)
	if err != nil {
		return nil, err
	}

	if l.cache != nil && !req.Refresh {
		if e, ok := l.cache.Get(req.Database, req.Collection); ok && e.Data != nil && pageMatches(e.UserInputs, req, filterKey) {
			l.logger.Debug("Serving page from cache", nil, l.fields(req))
			return &Page{
				Items:     e.Data,
				Page:      req.Page,
				PageSize:  req.PageSize,
				HasMore:   asBool(e.UserInputs["has_more"]),
				FromCache: true,
			}, nil
		}
	}

	var gen uint64
	if l.cache != nil {
		gen = l.cache.Generation()
	}

	start := time.Now()
	// one extra item tells whether a next page exists
	batch, err := conn.GetAllItems(ctx, req.Collection, vectordb.ScanOptions{
		Limit:  req.PageSize + 1,
		Offset: req.Offset(),
		Filter: req.Filter,
	})
	l.observe("load_page", req.Collection, start, err, int64(batch.Len()))
	if err != nil {
		l.logger.Error("Failed to load collection data", err, l.fields(req))
		return nil, fmt.Errorf("load page %d of %s: %w", req.Page, req.Collection, err)
	}

	hasMore := batch.Len() > req.PageSize
	if hasMore {
		batch = batch.Slice(0, req.PageSize)
	}
	page := &Page{Items: batch, Page: req.Page, PageSize: req.PageSize, HasMore: hasMore}

	if l.cache != nil {
		entry := cache.Entry{
			Data: batch,
			UserInputs: map[string]any{
				inputPage:     req.Page,
				inputPageSize: req.PageSize,
				inputFilter:   filterKey,
				"has_more":    hasMore,
			},
		}
		if prev, ok := l.cache.Get(req.Database, req.Collection); ok {
			entry.SearchQuery = prev.SearchQuery
			entry.SearchFilters = prev.SearchFilters
			entry.SearchResults = prev.SearchResults
		}
		l.cache.SetIfGeneration(gen, req.Database, req.Collection, entry)
	}
	return page, nil
}

// LoadVectors loads up to limit items and drops those without a vector.
// A limit of zero loads up to vectordb.DefaultScanCap items.
func (l *Loader) LoadVectors(ctx context.Context, conn vectordb.Connection, collection string, limit int) (*vectordb.ItemBatch, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}

	start := time.Now()
	batch, err := conn.GetAllItems(ctx, collection, vectordb.ScanOptions{Limit: limit})
	l.observe("load_vectors", collection, start, err, int64(batch.Len()))
	if err != nil {
		l.logger.Error("Failed to load vectors", err, map[string]interface{}{"collection": collection})
		return nil, fmt.Errorf("load vectors of %s: %w", collection, err)
	}

	out := WithEmbeddings(batch)
	if dropped := batch.Len() - out.Len(); dropped > 0 {
		l.logger.Info("Filtered items without embeddings", nil, map[string]interface{}{
			"collection": collection,
			"dropped":    dropped,
		})
	}
	return out, nil
}

// Count returns the number of items in a collection.
func (l *Loader) Count(ctx context.Context, conn vectordb.Connection, collection string) (int64, error) {
	if conn == nil {
		return 0, ErrNoConnection
	}
	start := time.Now()
	n, err := conn.Count(ctx, collection)
	l.observe("count", collection, start, err, n)
	if err != nil {
		l.logger.Error("Failed to get collection count", err, map[string]interface{}{"collection": collection})
		return 0, err
	}
	return n, nil
}

// MetadataFields returns the sorted unique metadata keys of a batch.
func MetadataFields(b *vectordb.ItemBatch) []string {
	return vectordb.MetadataFields(b)
}

// WithEmbeddings returns the items of b that carry a non-empty vector.
func WithEmbeddings(b *vectordb.ItemBatch) *vectordb.ItemBatch {
	out := vectordb.NewItemBatch(b.Len(), true)
	if !b.HasEmbeddings() {
		return out
	}
	for i := 0; i < b.Len(); i++ {
		it := b.Item(i)
		if len(it.Embedding) > 0 {
			out.Append(it)
		}
	}
	return out
}

func (l *Loader) fields(req PageRequest) map[string]interface{} {
	return map[string]interface{}{
		"database":   req.Database,
		"collection": req.Collection,
		"page":       req.Page,
		"page_size":  req.PageSize,
	}
}

func filterKey(fs *vectordb.FilterSet) (string, error) {
	if fs.IsEmpty() {
		return "", nil
	}
	raw, err := json.Marshal(fs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", vectordb.ErrInvalidArgument, err)
	}
	return string(raw), nil
}

func pageMatches(inputs map[string]any, req PageRequest, filter string) bool {
	page, ok1 := asInt(inputs[inputPage])
	size, ok2 := asInt(inputs[inputPageSize])
	f, _ := inputs[inputFilter].(string)
	return ok1 && ok2 && page == req.Page && size == req.PageSize && f == filter
}

// asInt accepts the float64 produced by a JSON round trip through redis.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
