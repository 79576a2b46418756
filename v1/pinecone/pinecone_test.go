package pinecone

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// fakePinecone stands in for the SDK client: a control plane plus one data
// plane per index host.
type fakePinecone struct {
	mu      sync.Mutex
	apiKey  string
	indexes map[string]*pinecone.Index
	vectors map[string]map[string]*pinecone.Vector // host -> id -> vector
	opened  map[string]int
	closed  map[string]int

	lastFilter map[string]any
}

func newFakePinecone(apiKey string) *fakePinecone {
	return &fakePinecone{
		apiKey:  apiKey,
		indexes: map[string]*pinecone.Index{},
		vectors: map[string]map[string]*pinecone.Vector{},
		opened:  map[string]int{},
		closed:  map[string]int{},
	}
}

func (f *fakePinecone) dial(cfg Config) (controlPlane, error) {
	return &fakeControl{f: f, apiKey: cfg.APIKey}, nil
}

type fakeControl struct {
	f      *fakePinecone
	apiKey string
}

func (c *fakeControl) ListIndexes(ctx context.Context) ([]*pinecone.Index, error) {
	if c.apiKey != c.f.apiKey {
		return nil, errors.New("failed to list indexes: 401 Unauthorized: Invalid API Key")
	}
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	out := make([]*pinecone.Index, 0, len(c.f.indexes))
	for _, idx := range c.f.indexes {
		out = append(out, idx)
	}
	return out, nil
}

func (c *fakeControl) DescribeIndex(ctx context.Context, name string) (*pinecone.Index, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	idx, ok := c.f.indexes[name]
	if !ok {
		return nil, fmt.Errorf("failed to describe index %q: 404 Not Found: NOT_FOUND", name)
	}
	return idx, nil
}

func (c *fakeControl) CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if _, ok := c.f.indexes[in.Name]; ok {
		return nil, errors.New("failed to create index: 409 Conflict: ALREADY_EXISTS")
	}
	idx := &pinecone.Index{
		Name:      in.Name,
		Dimension: in.Dimension,
		Metric:    *in.Metric,
		Host:      in.Name + ".svc.test",
		Status:    &pinecone.IndexStatus{Ready: true, State: "Ready"},
	}
	c.f.indexes[in.Name] = idx
	c.f.vectors[idx.Host] = map[string]*pinecone.Vector{}
	return idx, nil
}

func (c *fakeControl) DeleteIndex(ctx context.Context, name string) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	idx, ok := c.f.indexes[name]
	if !ok {
		return fmt.Errorf("failed to delete index %q: 404 Not Found", name)
	}
	delete(c.f.indexes, name)
	delete(c.f.vectors, idx.Host)
	return nil
}

func (c *fakeControl) openIndex(host string) (dataPlane, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.opened[host]++
	return &fakeData{f: c.f, host: host}, nil
}

type fakeData struct {
	f    *fakePinecone
	host string
}

// store must be called with f.mu held.
func (d *fakeData) store() (map[string]*pinecone.Vector, error) {
	s, ok := d.f.vectors[d.host]
	if !ok {
		return nil, status.Error(codes.NotFound, "index not found")
	}
	return s, nil
}

func (d *fakeData) UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	s, err := d.store()
	if err != nil {
		return 0, err
	}
	for _, v := range in {
		s[v.Id] = v
	}
	return uint32(len(in)), nil
}

func (d *fakeData) FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	s, err := d.store()
	if err != nil {
		return nil, err
	}
	resp := &pinecone.FetchVectorsResponse{Vectors: map[string]*pinecone.Vector{}}
	for _, id := range ids {
		if v, ok := s[id]; ok {
			resp.Vectors[id] = v
		}
	}
	return resp, nil
}

func (d *fakeData) ListVectors(ctx context.Context, in *pinecone.ListVectorsRequest) (*pinecone.ListVectorsResponse, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	s, err := d.store()
	if err != nil {
		return nil, err
	}
	ids := sortedIDs(s)
	start := 0
	if in.PaginationToken != nil {
		start, _ = strconv.Atoi(*in.PaginationToken)
	}
	end := min(start+int(*in.Limit), len(ids))
	resp := &pinecone.ListVectorsResponse{}
	for i := start; i < end; i++ {
		resp.VectorIds = append(resp.VectorIds, &ids[i])
	}
	if end < len(ids) {
		next := strconv.Itoa(end)
		resp.NextPaginationToken = &next
	}
	return resp, nil
}

// QueryByVectorValues scores by inner product and honours top-level $eq filters.
func (d *fakeData) QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	s, err := d.store()
	if err != nil {
		return nil, err
	}
	var filter map[string]any
	if in.MetadataFilter != nil {
		filter = in.MetadataFilter.AsMap()
	}
	d.f.lastFilter = filter

	resp := &pinecone.QueryVectorsResponse{}
	for _, id := range sortedIDs(s) {
		v := s[id]
		if !matchesEq(v, filter) {
			continue
		}
		var dot float32
		for i := range in.Vector {
			dot += in.Vector[i] * v.Values[i]
		}
		resp.Matches = append(resp.Matches, &pinecone.ScoredVector{Vector: v, Score: dot})
	}
	sort.SliceStable(resp.Matches, func(i, j int) bool { return resp.Matches[i].Score > resp.Matches[j].Score })
	if len(resp.Matches) > int(in.TopK) {
		resp.Matches = resp.Matches[:in.TopK]
	}
	return resp, nil
}

func matchesEq(v *pinecone.Vector, filter map[string]any) bool {
	var md map[string]any
	if v.Metadata != nil {
		md = v.Metadata.AsMap()
	}
	for field, ops := range filter {
		eq, ok := ops.(map[string]any)["$eq"]
		if ok && md[field] != eq {
			return false
		}
	}
	return true
}

func (d *fakeData) DeleteVectorsById(ctx context.Context, ids []string) error {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	s, err := d.store()
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(s, id)
	}
	return nil
}

func (d *fakeData) DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	s, err := d.store()
	if err != nil {
		return nil, err
	}
	return &pinecone.DescribeIndexStatsResponse{
		TotalVectorCount: uint32(len(s)),
		Namespaces:       map[string]*pinecone.NamespaceSummary{"": {VectorCount: uint32(len(s))}},
	}, nil
}

func (d *fakeData) Close() error {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	d.f.closed[d.host]++
	return nil
}

func sortedIDs(store map[string]*pinecone.Vector) []string {
	ids := make([]string, 0, len(store))
	for id := range store {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newTestConnection(t *testing.T, f *fakePinecone, apiKey string) (*Connection, *MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	conn := New(Config{APIKey: apiKey, BatchSize: 2}, log, nil)
	conn.dial = f.dial
	return conn, log
}

func TestPineconeConnection(t *testing.T) {
	f := newFakePinecone("key")
	conn, _ := newTestConnection(t, f, "key")
	ctx := context.Background()
	require.True(t, conn.Connect(ctx))
	defer conn.Disconnect(ctx)

	require.NoError(t, conn.CreateCollection(ctx, "docs", 2, "dot"))
	assert.ErrorIs(t, conn.CreateCollection(ctx, "docs", 2, "dot"), vectordb.ErrCollectionExists)

	names, err := conn.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names)

	require.NoError(t, conn.AddItems(ctx, "docs", vectordb.AddRequest{
		IDs:        []string{"a", "b", "c"},
		Documents:  []string{"alpha", "beta", "gamma"},
		Metadatas:  []map[string]any{{"lang": "en"}, {"lang": "de", "title": "go"}, {"lang": "en"}},
		Embeddings: [][]float32{{1, 0}, {0, 1}, {2, 0}},
	}))

	n, err := conn.Count(ctx, "docs")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := conn.GetItems(ctx, "docs", []string{"c", "missing", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, got.IDs)
	assert.Equal(t, "gamma", *got.Documents[0])
	assert.Equal(t, map[string]any{"lang": "en"}, got.Metadatas[0])

	t.Run("paging", func(t *testing.T) {
		page, err := conn.GetAllItems(ctx, "docs", vectordb.ScanOptions{Offset: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, page.IDs)
	})

	t.Run("filtered scan", func(t *testing.T) {
		page, err := conn.GetAllItems(ctx, "docs", vectordb.ScanOptions{
			Filter: vectordb.NewFilterSet(vectordb.Must(vectordb.NewMatch("lang", "en"))),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, page.IDs)
	})

	t.Run("query orders by inner product", func(t *testing.T) {
		res, err := conn.Query(ctx, "docs", vectordb.QueryRequest{Embedding: []float32{1, 0}, NResults: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, res.IDs)
		assert.InDeltaSlice(t, []float32{2, 1}, res.Distances, 1e-6)
	})

	t.Run("query with server side filter", func(t *testing.T) {
		res, err := conn.Query(ctx, "docs", vectordb.QueryRequest{
			Embedding: []float32{0, 1},
			NResults:  5,
			Filter:    vectordb.NewFilterSet(vectordb.Must(vectordb.NewMatch("lang", "en"))),
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"lang": map[string]any{"$eq": "en"}}, f.lastFilter)
		assert.ElementsMatch(t, []string{"a", "c"}, res.IDs)
	})

	t.Run("query with local filter", func(t *testing.T) {
		res, err := conn.Query(ctx, "docs", vectordb.QueryRequest{
			Embedding: []float32{1, 0},
			NResults:  1,
			Filter:    vectordb.NewFilterSet(vectordb.Must(vectordb.NewContains("title", "go"))),
		})
		require.NoError(t, err)
		assert.Nil(t, f.lastFilter)
		assert.Equal(t, []string{"b"}, res.IDs)
	})

	t.Run("update preserves omitted fields", func(t *testing.T) {
		require.NoError(t, conn.UpdateItems(ctx, "docs", vectordb.UpdateRequest{
			IDs:       []string{"b"},
			Metadatas: []map[string]any{{"lang": "fr"}},
		}))
		got, err := conn.GetItems(ctx, "docs", []string{"b"})
		require.NoError(t, err)
		assert.Equal(t, "beta", *got.Documents[0])
		assert.Equal(t, map[string]any{"lang": "fr"}, got.Metadatas[0])
		assert.Equal(t, []float32{0, 1}, got.Embeddings[0])
	})

	info, err := conn.GetCollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, info.VectorDimension)
	assert.Equal(t, string(vectordb.DistanceDot), info.Distance)
	assert.EqualValues(t, 3, info.Count)
	assert.Equal(t, "Ready", info.Extra["state"])
	assert.Contains(t, info.MetadataFields, "lang")
	assert.NotContains(t, info.MetadataFields, DocumentKey)

	require.NoError(t, conn.DeleteItems(ctx, "docs", []string{"a", "b", "c"}))
	n, err = conn.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, 1, f.opened["docs.svc.test"], "data plane is dialed once per index")

	require.NoError(t, conn.DeleteCollection(ctx, "docs"))
	assert.Equal(t, 1, f.closed["docs.svc.test"])
	_, err = conn.Count(ctx, "docs")
	assert.ErrorIs(t, err, vectordb.ErrCollectionNotFound)
}

func TestPineconeDisconnectClosesDataPlanes(t *testing.T) {
	f := newFakePinecone("key")
	conn, _ := newTestConnection(t, f, "key")
	ctx := context.Background()
	require.True(t, conn.Connect(ctx))

	require.NoError(t, conn.CreateCollection(ctx, "a", 2, "cosine"))
	require.NoError(t, conn.CreateCollection(ctx, "b", 2, "euclidean"))
	_, err := conn.Count(ctx, "a")
	require.NoError(t, err)
	_, err = conn.Count(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, conn.Disconnect(ctx))
	assert.Equal(t, map[string]int{"a.svc.test": 1, "b.svc.test": 1}, f.closed)

	_, err = conn.Count(ctx, "a")
	assert.ErrorIs(t, err, vectordb.ErrNotConnected)
}

func TestPineconeDataPlaneNotFound(t *testing.T) {
	f := newFakePinecone("key")
	conn, _ := newTestConnection(t, f, "key")
	ctx := context.Background()
	require.True(t, conn.Connect(ctx))
	defer conn.Disconnect(ctx)

	require.NoError(t, conn.CreateCollection(ctx, "docs", 2, "cosine"))
	_, err := conn.Count(ctx, "docs")
	require.NoError(t, err)

	// Deleted behind the adapter's back: the cached host answers NotFound.
	f.mu.Lock()
	delete(f.vectors, "docs.svc.test")
	f.mu.Unlock()

	_, err = conn.GetItems(ctx, "docs", []string{"a"})
	assert.ErrorIs(t, err, vectordb.ErrCollectionNotFound)
}

func TestPineconeConnectRequiresAPIKey(t *testing.T) {
	f := newFakePinecone("key")
	conn, log := newTestConnection(t, f, "")
	log.EXPECT().Error("Cannot connect to Pinecone", ErrMissingAPIKey, gomock.Any())

	assert.False(t, conn.Connect(context.Background()))
	_, err := conn.ListCollections(context.Background())
	assert.ErrorIs(t, err, vectordb.ErrNotConnected)
}

func TestPineconeConnectRejectsBadKey(t *testing.T) {
	f := newFakePinecone("key")
	conn, log := newTestConnection(t, f, "wrong")
	log.EXPECT().Error("Failed to connect to Pinecone", gomock.Any(), gomock.Any())

	assert.False(t, conn.Connect(context.Background()))
	assert.False(t, conn.ConnectionInfo().Connected)
}

func TestTranslateError(t *testing.T) {
	assert.ErrorIs(t, translateError(status.Error(codes.NotFound, "gone")), vectordb.ErrCollectionNotFound)
	assert.ErrorIs(t, translateError(status.Error(codes.InvalidArgument, "bad")), vectordb.ErrInvalidArgument)
	assert.ErrorIs(t, translateError(errors.New("409 Conflict: ALREADY_EXISTS")), vectordb.ErrCollectionExists)
	assert.ErrorIs(t, translateError(errors.New("404 Not Found")), vectordb.ErrCollectionNotFound)

	plain := errors.New("503 Service Unavailable")
	assert.Same(t, plain, translateError(plain))
	assert.NoError(t, translateError(nil))
}

func TestToStructWidensContainers(t *testing.T) {
	st, err := toStruct(map[string]any{
		"tags":  []string{"a", "b"},
		"year":  int64(2021),
		"$or":   []map[string]any{{"x": map[string]any{"$in": []any{"y"}}}},
		"ranks": []int{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"tags":  []any{"a", "b"},
		"year":  2021.0,
		"$or":   []any{map[string]any{"x": map[string]any{"$in": []any{"y"}}}},
		"ranks": []any{1.0, 2.0},
	}, st.AsMap())

	empty, err := toStruct(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestVectorDropsNilMetadata(t *testing.T) {
	doc := "text"
	v, err := toVector(vectordb.Item{ID: "x", Document: &doc, Metadata: map[string]any{"a": nil, "b": true}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": true, DocumentKey: "text"}, v.Metadata.AsMap())

	it := fromVector(v)
	assert.Equal(t, "text", *it.Document)
	assert.Equal(t, map[string]any{"b": true}, it.Metadata)
}
