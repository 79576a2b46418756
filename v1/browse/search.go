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

// SearchInput describes one similarity search. Exactly one of Text and
// Embedding must be set. Where is parsed with vectordb.ParseWhere when
// Filter is nil.
type SearchInput struct {
	// Database is the cache namespace, normally the connection id.
	Database   string
	Collection string

	Text      string
	Embedding []float32
	NResults  int

	Filter *vectordb.FilterSet
	Where  map[string]any
}

// Searcher runs similarity searches and remembers the last search per
// collection in the cache.
type Searcher struct {
	cache    Cache
	logger   Logger
	observer observability.Observer
}

// NewSearcher returns a Searcher. A nil cache disables caching.
func NewSearcher(c Cache, log Logger, opts ...Option) *Searcher {
	if log == nil {
		log = logger.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Searcher{cache: c, logger: log, observer: o.observer}
}

// Search runs the query and records it as the collection's last search.
func (s *Searcher) Search(ctx context.Context, conn vectordb.Connection, in SearchInput) (*vectordb.SearchResult, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}
	filter := in.Filter
	if filter == nil && len(in.Where) > 0 {
		var err error
		if filter, err = vectordb.ParseWhere(in.Where); err != nil {
			return nil, err
		}
	}
	n := in.NResults
	if n <= 0 {
		n = vectordb.DefaultNResults
	}

	var gen uint64
	if s.cache != nil {
		gen = s.cache.Generation()
	}

	start := time.Now()
	res, err := conn.Query(ctx, in.Collection, vectordb.QueryRequest{
		Text:      in.Text,
		Embedding: in.Embedding,
		NResults:  n,
		Filter:    filter,
	})
	size := int64(0)
	if res != nil {
		size = int64(res.Len())
	}
	s.observe("search", in.Collection, start, err, size)
	if err != nil {
		s.logger.Error("Search failed", err, map[string]interface{}{
			"database":   in.Database,
			"collection": in.Collection,
		})
		return nil, fmt.Errorf("search %s: %w", in.Collection, err)
	}

	if s.cache != nil {
		query := in.Text
		s.cache.UpdateIfGeneration(gen, in.Database, in.Collection, cache.Fields{
			SearchQuery:   &query,
			SearchFilters: searchFilters(in.Where, filter),
			SearchResults: res,
		})
	}
	return res, nil
}

// searchFilters is the filter remembered with a search: the where clause as
// given, or the JSON form of a structured filter. A search without a filter
// records an empty map so a previous filter does not linger.
func searchFilters(where map[string]any, filter *vectordb.FilterSet) map[string]any {
	if len(where) > 0 {
		return vectordb.CloneMap(where)
	}
	if filter == nil {
		return map[string]any{}
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return map[string]any{}
	}
	m, err := vectordb.DecodeMetadata(raw)
	if err != nil {
		return map[string]any{}
	}
	return m
}

// SearchByID searches with the stored vector of an existing item.
func (s *Searcher) SearchByID(ctx context.Context, conn vectordb.Connection, in SearchInput, id string) (*vectordb.SearchResult, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}
	batch, err := conn.GetItems(ctx, in.Collection, []string{id})
	if err != nil {
		s.logger.Error("Search by ID failed", err, map[string]interface{}{"collection": in.Collection, "id": id})
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	if batch.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	it := batch.Item(0)
	if len(it.Embedding) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEmbedding, id)
	}

	in.Text = ""
	in.Embedding = it.Embedding
	return s.Search(ctx, conn, in)
}

// LastSearch returns the query text and results last recorded for a
// collection.
func (s *Searcher) LastSearch(database, collection string) (string, *vectordb.SearchResult, bool) {
	if s.cache == nil {
		return "", nil, false
	}
	e, ok := s.cache.Get(database, collection)
	if !ok || e.SearchResults == nil {
		return "", nil, false
	}
	return e.SearchQuery, e.SearchResults, true
}
