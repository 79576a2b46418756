package browse

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/vectorinspector/v1/cache"
	"github.com/Aleph-Alpha/vectorinspector/v1/observability"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

var errBackend = errors.New("backend down")

// memConnection serves a fixed set of items.
type memConnection struct {
	*vectordb.Base
	items   []vectordb.Item
	scans   int
	queries []vectordb.QueryRequest
	err     error
	onQuery func()
}

func newMemConnection(n int) *memConnection {
	c := &memConnection{Base: vectordb.NewBase(vectordb.ProviderChroma, "ephemeral")}
	for i := 0; i < n; i++ {
		doc := fmt.Sprintf("doc %d", i)
		it := vectordb.Item{
			ID:       fmt.Sprintf("id-%02d", i),
			Document: &doc,
			Metadata: map[string]any{"n": i, "parity": []string{"even", "odd"}[i%2]},
		}
		if i%3 != 0 {
			it.Embedding = []float32{float32(i), 1}
		}
		c.items = append(c.items, it)
	}
	c.MarkConnected()
	return c
}

func (c *memConnection) Connect(context.Context) bool     { return true }
func (c *memConnection) Disconnect(context.Context) error { return nil }
func (c *memConnection) ListCollections(context.Context) ([]string, error) {
	return []string{"docs"}, nil
}
func (c *memConnection) CreateCollection(context.Context, string, int, string) error { return nil }
func (c *memConnection) DeleteCollection(context.Context, string) error              { return nil }
func (c *memConnection) AddItems(context.Context, string, vectordb.AddRequest) error { return nil }
func (c *memConnection) UpdateItems(context.Context, string, vectordb.UpdateRequest) error {
	return nil
}
func (c *memConnection) DeleteItems(context.Context, string, []string) error { return nil }

func (c *memConnection) GetItems(_ context.Context, _ string, ids []string) (*vectordb.ItemBatch, error) {
	out := vectordb.NewItemBatch(len(ids), true)
	for _, id := range ids {
		for _, it := range c.items {
			if it.ID == id {
				out.Append(it)
			}
		}
	}
	return out, c.err
}

func (c *memConnection) GetAllItems(_ context.Context, _ string, opts vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	c.scans++
	if c.err != nil {
		return nil, c.err
	}
	all := vectordb.BatchFromItems(c.items, true)
	return vectordb.ApplyFilter(all, opts.Filter).Slice(opts.Offset, opts.EffectiveLimit()), nil
}

func (c *memConnection) Query(_ context.Context, _ string, q vectordb.QueryRequest) (*vectordb.SearchResult, error) {
	c.queries = append(c.queries, q)
	if c.onQuery != nil {
		c.onQuery()
	}
	if c.err != nil {
		return nil, c.err
	}
	res := &vectordb.SearchResult{ItemBatch: *vectordb.NewItemBatch(1, true)}
	res.Append(c.items[1])
	res.Distances = []float32{0.25}
	return res, nil
}

func (c *memConnection) Count(context.Context, string) (int64, error) {
	return int64(len(c.items)), c.err
}

func (c *memConnection) GetCollectionInfo(_ context.Context, name string) (*vectordb.CollectionInfo, error) {
	return &vectordb.CollectionInfo{Name: name}, nil
}

func TestLoadPage_OffsetsAndHasMore(t *testing.T) {
	ctx := context.Background()
	conn := newMemConnection(25)
	l := NewLoader(nil, nil)

	p, err := l.LoadPage(ctx, conn, PageRequest{Collection: "docs", Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Items.Len())
	assert.Equal(t, "id-20", p.Items.IDs[0])
	assert.False(t, p.HasMore)

	p, err = l.LoadPage(ctx, conn, PageRequest{Collection: "docs", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, p.Items.Len())
	assert.Equal(t, "id-10", p.Items.IDs[0])
	assert.True(t, p.HasMore)
}

func TestLoadPage_InvalidArguments(t *testing.T) {
	l := NewLoader(nil, nil)

	_, err := l.LoadPage(context.Background(), nil, PageRequest{Page: 1, PageSize: 1})
	assert.ErrorIs(t, err, ErrNoConnection)

	_, err = l.LoadPage(context.Background(), newMemConnection(1), PageRequest{Page: 0, PageSize: 10})
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestLoadPage_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	conn := newMemConnection(25)
	c := cache.NewManager(nil, nil)
	l := NewLoader(c, nil)
	req := PageRequest{Database: "conn-1", Collection: "docs", Page: 1, PageSize: 10}

	first, err := l.LoadPage(ctx, conn, req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, conn.scans)

	second, err := l.LoadPage(ctx, conn, req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.True(t, second.HasMore)
	assert.Equal(t, first.Items.IDs, second.Items.IDs)
	assert.Equal(t, 1, conn.scans)

	// another page, a filter or a refresh goes to the backend
	req.Page = 2
	_, err = l.LoadPage(ctx, conn, req)
	require.NoError(t, err)
	assert.Equal(t, 2, conn.scans)

	req.Filter = vectordb.NewFilterSet(vectordb.Must(vectordb.NewMatch("parity", "odd")))
	filtered, err := l.LoadPage(ctx, conn, req)
	require.NoError(t, err)
	assert.Equal(t, 3, conn.scans)
	assert.False(t, filtered.FromCache)

	req.Refresh = true
	_, err = l.LoadPage(ctx, conn, req)
	require.NoError(t, err)
	assert.Equal(t, 4, conn.scans)
}

// switchingCache bumps the generation while a page is loading.
type switchingCache struct {
	*cache.Manager
	switched bool
}

func (s *switchingCache) Generation() uint64 {
	gen := s.Manager.Generation()
	if !s.switched {
		s.switched = true
		s.Manager.Invalidate("", "")
	}
	return gen
}

func TestLoadPage_DropsStaleGeneration(t *testing.T) {
	c := &switchingCache{Manager: cache.NewManager(nil, nil)}
	l := NewLoader(c, nil)

	p, err := l.LoadPage(context.Background(), newMemConnection(5), PageRequest{
		Database: "old", Collection: "docs", Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Items.Len())

	_, ok := c.Get("old", "docs")
	assert.False(t, ok)
}

func TestLoadPage_KeepsLastSearch(t *testing.T) {
	ctx := context.Background()
	conn := newMemConnection(5)
	c := cache.NewManager(nil, nil)
	s := NewSearcher(c, nil)
	l := NewLoader(c, nil)

	_, err := s.Search(ctx, conn, SearchInput{Database: "db", Collection: "docs", Text: "hello"})
	require.NoError(t, err)
	_, err = l.LoadPage(ctx, conn, PageRequest{Database: "db", Collection: "docs", Page: 1, PageSize: 2})
	require.NoError(t, err)

	query, res, ok := s.LastSearch("db", "docs")
	require.True(t, ok)
	assert.Equal(t, "hello", query)
	assert.Equal(t, 1, res.Len())
}

func TestLoadPage_BackendError(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Error("Failed to load collection data", errBackend, gomock.Any()).Times(1)

	conn := newMemConnection(1)
	conn.err = errBackend
	var ops []observability.OperationContext
	l := NewLoader(nil, log, WithObserver(observability.ObserverFunc(func(oc observability.OperationContext) {
		ops = append(ops, oc)
	})))

	_, err := l.LoadPage(context.Background(), conn, PageRequest{Collection: "docs", Page: 1, PageSize: 5})
	assert.ErrorIs(t, err, errBackend)
	require.Len(t, ops, 1)
	assert.Equal(t, "browse", ops[0].Component)
	assert.Equal(t, "load_page", ops[0].Operation)
	assert.ErrorIs(t, ops[0].Error, errBackend)
}

func TestLoadVectors_DropsMissingEmbeddings(t *testing.T) {
	l := NewLoader(nil, nil)

	b, err := l.LoadVectors(context.Background(), newMemConnection(6), "docs", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-01", "id-02", "id-04", "id-05"}, b.IDs)
	assert.Len(t, b.Embeddings, 4)
	assert.Len(t, b.Metadatas, 4)
}

func TestCount(t *testing.T) {
	n, err := NewLoader(nil, nil).Count(context.Background(), newMemConnection(7), "docs")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
}

func TestMetadataFields(t *testing.T) {
	b := vectordb.BatchFromItems([]vectordb.Item{
		{ID: "a", Metadata: map[string]any{"b": 1, "a": 2}},
		{ID: "b", Metadata: map[string]any{"c": 1, "a": 2}},
		{ID: "c"},
	}, false)
	assert.Equal(t, []string{"a", "b", "c"}, MetadataFields(b))
	assert.Empty(t, MetadataFields(nil))
}

func TestSearch_DefaultsAndWhere(t *testing.T) {
	conn := newMemConnection(3)
	s := NewSearcher(nil, nil)

	res, err := s.Search(context.Background(), conn, SearchInput{
		Collection: "docs",
		Text:       "hello",
		Where:      map[string]any{"parity": "odd"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-01"}, res.IDs)

	require.Len(t, conn.queries, 1)
	assert.Equal(t, vectordb.DefaultNResults, conn.queries[0].NResults)
	assert.False(t, conn.queries[0].Filter.IsEmpty())
}

func TestSearch_BadWhere(t *testing.T) {
	_, err := NewSearcher(nil, nil).Search(context.Background(), newMemConnection(1), SearchInput{
		Collection: "docs",
		Text:       "x",
		Where:      map[string]any{"$or": "not a list"},
	})
	assert.Error(t, err)
}

func TestSearchByID(t *testing.T) {
	ctx := context.Background()
	conn := newMemConnection(4)
	s := NewSearcher(nil, nil)

	_, err := s.SearchByID(ctx, conn, SearchInput{Collection: "docs", Text: "ignored"}, "id-02")
	require.NoError(t, err)
	require.Len(t, conn.queries, 1)
	assert.Empty(t, conn.queries[0].Text)
	assert.Equal(t, []float32{2, 1}, conn.queries[0].Embedding)

	_, err = s.SearchByID(ctx, conn, SearchInput{Collection: "docs"}, "id-00")
	assert.ErrorIs(t, err, ErrNoEmbedding)

	_, err = s.SearchByID(ctx, conn, SearchInput{Collection: "docs"}, "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSearch_RecordsStructuredFilter(t *testing.T) {
	ctx := context.Background()
	c := cache.NewManager(nil, nil)
	s := NewSearcher(c, nil)

	_, err := s.Search(ctx, newMemConnection(3), SearchInput{
		Database:   "db",
		Collection: "docs",
		Text:       "hello",
		Filter:     vectordb.NewFilterSet(vectordb.Must(vectordb.NewMatch("parity", "odd"))),
	})
	require.NoError(t, err)
	e, ok := c.Get("db", "docs")
	require.True(t, ok)
	assert.Contains(t, e.SearchFilters, "must")

	_, err = s.Search(ctx, newMemConnection(3), SearchInput{Database: "db", Collection: "docs", Text: "again"})
	require.NoError(t, err)
	e, _ = c.Get("db", "docs")
	assert.Empty(t, e.SearchFilters)
	assert.Equal(t, "again", e.SearchQuery)
}

func TestSearch_DropsResultAfterInvalidation(t *testing.T) {
	c := cache.NewManager(nil, nil)
	s := NewSearcher(c, nil)
	conn := newMemConnection(3)
	conn.onQuery = func() { c.Invalidate("", "") }

	res, err := s.Search(context.Background(), conn, SearchInput{Database: "db", Collection: "docs", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())

	_, _, ok := s.LastSearch("db", "docs")
	assert.False(t, ok)
}

func TestLastSearch_WithoutCache(t *testing.T) {
	_, _, ok := NewSearcher(nil, nil).LastSearch("db", "docs")
	assert.False(t, ok)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		metric   vectordb.Distance
		want     float64
	}{
		{"cosine", 0.25, vectordb.DistanceCosine, 0.75},
		{"cosine clamps low", 1.5, vectordb.DistanceCosine, 0},
		{"cosine clamps high", -0.5, vectordb.DistanceCosine, 1},
		{"dot", 0.4, vectordb.DistanceDot, 0.4},
		{"dot clamps", 3, vectordb.DistanceDot, 1},
		{"euclidean", 1, vectordb.DistanceEuclidean, 0.5},
		{"unknown", 3, vectordb.Distance("manhattan"), 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.distance, tt.metric), 1e-9)
		})
	}
}

func TestSimilarities(t *testing.T) {
	res := &vectordb.SearchResult{Distances: []float32{0, 1}}
	assert.Equal(t, []float64{1, 0.5}, Similarities(res, vectordb.DistanceEuclidean))
	assert.Nil(t, Similarities(nil, vectordb.DistanceCosine))
}
