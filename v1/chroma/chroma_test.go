package chroma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// fakeChroma is an in-memory stand-in for the Chroma client covering the
// calls the adapter makes.
type fakeChroma struct {
	mu     sync.Mutex
	colls  map[string]*fakeCollection
	token  string
	down   bool
	nextID int
	closed int
}

type fakeCollection struct {
	remoteCollection
	records map[string]fakeRecord
	order   []string
}

type fakeRecord struct {
	doc *string
	md  map[string]any
	emb []float32
}

func newFakeChroma() *fakeChroma {
	return &fakeChroma{colls: map[string]*fakeCollection{}}
}

func (f *fakeChroma) dial(cfg Config) (api, error) {
	return &fakeAPI{f: f, token: cfg.APIKey}, nil
}

type fakeAPI struct {
	f     *fakeChroma
	token string
}

func (a *fakeAPI) authorized() error {
	if a.f.token != "" && a.token != a.f.token {
		return errors.New("unexpected code [401 Unauthorized]")
	}
	return nil
}

func (a *fakeAPI) Heartbeat(ctx context.Context) error {
	if a.f.down {
		return errors.New("unexpected code [404 Not Found]")
	}
	return a.authorized()
}

func (a *fakeAPI) ListDatabases(ctx context.Context, tenant string) ([]string, error) {
	return []string{"default_database", "archive"}, a.authorized()
}

func (a *fakeAPI) ListCollections(ctx context.Context) ([]remoteCollection, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	out := []remoteCollection{}
	for _, c := range a.f.colls {
		out = append(out, c.remoteCollection)
	}
	return out, a.authorized()
}

func (a *fakeAPI) CreateCollection(ctx context.Context, name string, metadata map[string]any) (remoteCollection, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	if _, ok := a.f.colls[name]; ok {
		return remoteCollection{}, translateError(errors.New("unexpected code [409 Conflict]: Collection already exists"))
	}
	a.f.nextID++
	c := &fakeCollection{
		remoteCollection: remoteCollection{ID: fmt.Sprintf("id-%d", a.f.nextID), Name: name, Metadata: metadata},
		records:          map[string]fakeRecord{},
	}
	a.f.colls[name] = c
	return c.remoteCollection, nil
}

func (a *fakeAPI) GetCollection(ctx context.Context, name string) (remoteCollection, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	c, ok := a.f.colls[name]
	if !ok {
		return remoteCollection{}, translateError(fmt.Errorf("Collection %s does not exist.", name))
	}
	return c.remoteCollection, nil
}

func (a *fakeAPI) DeleteCollection(ctx context.Context, name string) error {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	if _, ok := a.f.colls[name]; !ok {
		return translateError(errors.New("unexpected code [404 Not Found]"))
	}
	delete(a.f.colls, name)
	return nil
}

// lookup must be called with f.mu held. Handles are matched by id, so a
// handle to a dropped collection fails even if the name was reused.
func (a *fakeAPI) lookup(coll remoteCollection) (*fakeCollection, error) {
	for _, c := range a.f.colls {
		if c.ID == coll.ID {
			return c, nil
		}
	}
	return nil, translateError(errors.New("unexpected code [404 Not Found]: collection not found"))
}

func (a *fakeAPI) Add(ctx context.Context, coll remoteCollection, in records) error {
	return a.Upsert(ctx, coll, in)
}

func (a *fakeAPI) Upsert(ctx context.Context, coll remoteCollection, in records) error {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	c, err := a.lookup(coll)
	if err != nil {
		return err
	}
	for i, id := range in.IDs {
		if _, exists := c.records[id]; !exists {
			c.order = append(c.order, id)
		}
		rec := fakeRecord{emb: in.Embeddings[i]}
		if i < len(in.Documents) {
			rec.doc = in.Documents[i]
		}
		if i < len(in.Metadatas) {
			rec.md = in.Metadatas[i]
		}
		c.records[id] = rec
	}
	return nil
}

func (a *fakeAPI) Get(ctx context.Context, coll remoteCollection, req getRequest) (getResponse, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	c, err := a.lookup(coll)
	if err != nil {
		return getResponse{}, err
	}
	ids := req.IDs
	if ids == nil {
		ids = c.order
	}
	var resp getResponse
	for _, id := range ids {
		rec, ok := c.records[id]
		if !ok || !matchesWhere(rec.md, req.Where) {
			continue
		}
		resp.IDs = append(resp.IDs, id)
		resp.Documents = append(resp.Documents, rec.doc)
		resp.Metadatas = append(resp.Metadatas, rec.md)
		resp.Embeddings = append(resp.Embeddings, rec.emb)
	}
	if req.Offset != nil || req.Limit != nil {
		b := resp.batch().Slice(deref(req.Offset), deref(req.Limit))
		resp = getResponse{IDs: b.IDs, Documents: b.Documents, Metadatas: b.Metadatas, Embeddings: b.Embeddings}
	}
	return resp, nil
}

// Query ranks by squared L2, like Chroma's l2 space.
func (a *fakeAPI) Query(ctx context.Context, coll remoteCollection, req queryRequest) (queryResponse, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	c, err := a.lookup(coll)
	if err != nil {
		return queryResponse{}, err
	}
	q := req.QueryEmbeddings[0]
	type hit struct {
		id string
		d  float32
	}
	var hits []hit
	for _, id := range c.order {
		rec, ok := c.records[id]
		if !ok || !matchesWhere(rec.md, req.Where) {
			continue
		}
		var d float32
		for i := range q {
			diff := q[i] - rec.emb[i]
			d += diff * diff
		}
		hits = append(hits, hit{id, d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].d < hits[j].d })
	if len(hits) > req.NResults {
		hits = hits[:req.NResults]
	}
	resp := queryResponse{
		IDs: [][]string{{}}, Documents: [][]*string{{}}, Metadatas: [][]map[string]any{{}},
		Embeddings: [][][]float32{{}}, Distances: [][]float32{{}},
	}
	for _, h := range hits {
		rec := c.records[h.id]
		resp.IDs[0] = append(resp.IDs[0], h.id)
		resp.Documents[0] = append(resp.Documents[0], rec.doc)
		resp.Metadatas[0] = append(resp.Metadatas[0], rec.md)
		resp.Embeddings[0] = append(resp.Embeddings[0], rec.emb)
		resp.Distances[0] = append(resp.Distances[0], h.d)
	}
	return resp, nil
}

func (a *fakeAPI) Delete(ctx context.Context, coll remoteCollection, ids []string) error {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	c, err := a.lookup(coll)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.records, id)
	}
	return nil
}

func (a *fakeAPI) Count(ctx context.Context, coll remoteCollection) (int, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	c, err := a.lookup(coll)
	if err != nil {
		return 0, err
	}
	return len(c.records), nil
}

func (a *fakeAPI) Close() error {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	a.f.closed++
	return nil
}

// matchesWhere understands the single-field $eq documents used by the tests.
func matchesWhere(md map[string]any, where map[string]any) bool {
	for field, cond := range where {
		ops, ok := cond.(map[string]any)
		if !ok {
			return false
		}
		if want, ok := ops["$eq"]; ok && md[field] != want {
			return false
		}
	}
	return true
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func newTestLogger(t *testing.T) *MockLogger {
	t.Helper()
	log := NewMockLogger(gomock.NewController(t))
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Debug(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

func connectTo(t *testing.T, f *fakeChroma, apiKey string) *Connection {
	t.Helper()
	conn := New(Config{APIKey: apiKey}, newTestLogger(t), nil)
	conn.dial = f.dial
	require.True(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Disconnect(context.Background()) })
	return conn
}

func doc(s string) *string { return &s }

func TestChromaConnection(t *testing.T) {
	fake := newFakeChroma()
	fake.token = "secret"
	conn := connectTo(t, fake, "secret")
	ctx := context.Background()

	dbs, err := conn.ListDatabases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "default_database"}, dbs)

	require.NoError(t, conn.CreateCollection(ctx, "docs", 2, "euclidean"))
	assert.ErrorIs(t, conn.CreateCollection(ctx, "docs", 2, "euclidean"), vectordb.ErrCollectionExists)

	names, err := conn.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names)

	require.NoError(t, conn.AddItems(ctx, "docs", vectordb.AddRequest{
		IDs:        []string{"a", "b", "c"},
		Documents:  []string{"alpha", "beta", "gamma"},
		Metadatas:  []map[string]any{{"lang": "en", "title": "go tips"}, {"lang": "de"}, {"lang": "en"}},
		Embeddings: [][]float32{{0, 0}, {3, 4}, {1, 0}},
	}))

	n, err := conn.Count(ctx, "docs")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := conn.GetItems(ctx, "docs", []string{"b"})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "beta", *got.Documents[0])

	t.Run("update keeps untouched fields", func(t *testing.T) {
		require.NoError(t, conn.UpdateItems(ctx, "docs", vectordb.UpdateRequest{
			IDs:       []string{"b"},
			Documents: []*string{doc("beta v2")},
		}))
		got, err := conn.GetItems(ctx, "docs", []string{"b"})
		require.NoError(t, err)
		assert.Equal(t, "beta v2", *got.Documents[0])
		assert.Equal(t, "de", got.Metadatas[0]["lang"])
		assert.Equal(t, []float32{3, 4}, got.Embeddings[0])
	})

	t.Run("server side scan", func(t *testing.T) {
		page, err := conn.GetAllItems(ctx, "docs", vectordb.ScanOptions{
			Limit:  1,
			Offset: 1,
			Filter: vectordb.NewFilterSet(vectordb.Must(vectordb.NewMatch("lang", "en"))),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, page.IDs)
	})

	t.Run("client side scan", func(t *testing.T) {
		page, err := conn.GetAllItems(ctx, "docs", vectordb.ScanOptions{
			Filter: vectordb.NewFilterSet(vectordb.Must(vectordb.NewContains("title", "go"))),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, page.IDs)
	})

	t.Run("query reports l2 distances", func(t *testing.T) {
		res, err := conn.Query(ctx, "docs", vectordb.QueryRequest{Embedding: []float32{0, 0}, NResults: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, res.IDs)
		assert.InDeltaSlice(t, []float32{0, 1}, res.Distances, 1e-6)
	})

	t.Run("query with client side filter", func(t *testing.T) {
		res, err := conn.Query(ctx, "docs", vectordb.QueryRequest{
			Embedding: []float32{3, 4},
			NResults:  1,
			Filter:    vectordb.NewFilterSet(vectordb.MustNot(vectordb.NewIsEmpty("title"))),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, res.IDs)
		assert.InDeltaSlice(t, []float32{5}, res.Distances, 1e-6)
	})

	info, err := conn.GetCollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.EqualValues(t, 3, info.Count)
	assert.Equal(t, 2, info.VectorDimension)
	assert.Equal(t, string(vectordb.DistanceEuclidean), info.Distance)
	assert.Contains(t, info.MetadataFields, "lang")

	require.NoError(t, conn.DeleteItems(ctx, "docs", []string{"a"}))
	n, err = conn.Count(ctx, "docs")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, conn.DeleteCollection(ctx, "docs"))
	_, err = conn.Count(ctx, "docs")
	assert.ErrorIs(t, err, vectordb.ErrCollectionNotFound)
}

func TestChromaQueryNeedsEmbedder(t *testing.T) {
	conn := connectTo(t, newFakeChroma(), "")
	ctx := context.Background()
	require.NoError(t, conn.CreateCollection(ctx, "docs", 2, "cosine"))

	err := conn.AddItems(ctx, "docs", vectordb.AddRequest{Documents: []string{"no vectors"}})
	assert.ErrorIs(t, err, vectordb.ErrUnknownEmbeddingModel)
}

func TestChromaNotConnected(t *testing.T) {
	conn := New(DefaultConfig(), NewMockLogger(gomock.NewController(t)), nil)
	ctx := context.Background()

	_, err := conn.ListCollections(ctx)
	assert.ErrorIs(t, err, vectordb.ErrNotConnected)
	_, err = conn.Count(ctx, "docs")
	assert.ErrorIs(t, err, vectordb.ErrNotConnected)
	assert.False(t, conn.ConnectionInfo().Connected)
}

func TestChromaConnectFails(t *testing.T) {
	log := newTestLogger(t)
	log.EXPECT().Error("Chroma heartbeat failed", gomock.Any(), gomock.Any())

	fake := newFakeChroma()
	fake.down = true
	conn := New(Config{}, log, nil)
	conn.dial = fake.dial
	assert.False(t, conn.Connect(context.Background()))
	assert.Equal(t, vectordb.StateUnconnected, conn.State())
	assert.Equal(t, 1, fake.closed)
}

func TestChromaConnectRejectsToken(t *testing.T) {
	log := newTestLogger(t)
	log.EXPECT().Error("Chroma heartbeat failed", gomock.Any(), gomock.Any())

	fake := newFakeChroma()
	fake.token = "secret"
	conn := New(Config{APIKey: "wrong"}, log, nil)
	conn.dial = fake.dial
	assert.False(t, conn.Connect(context.Background()))
}

func TestChromaRefreshesRecreatedCollection(t *testing.T) {
	fake := newFakeChroma()
	conn := connectTo(t, fake, "")
	ctx := context.Background()

	require.NoError(t, conn.CreateCollection(ctx, "docs", 2, "cosine"))
	n, err := conn.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Zero(t, n)

	// Recreate the collection behind the adapter, which still holds the old handle.
	other := &fakeAPI{f: fake}
	require.NoError(t, other.DeleteCollection(ctx, "docs"))
	coll, err := other.CreateCollection(ctx, "docs", map[string]any{SpaceKey: "cosine"})
	require.NoError(t, err)
	require.NoError(t, other.Upsert(ctx, coll, records{IDs: []string{"x"}, Embeddings: [][]float32{{1, 0}}}))

	n, err = conn.Count(ctx, "docs")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestChromaDisconnectClosesClient(t *testing.T) {
	fake := newFakeChroma()
	conn := New(Config{}, newTestLogger(t), nil)
	conn.dial = fake.dial
	require.True(t, conn.Connect(context.Background()))

	require.NoError(t, conn.Disconnect(context.Background()))
	assert.Equal(t, 1, fake.closed)
	_, err := conn.ListCollections(context.Background())
	assert.ErrorIs(t, err, vectordb.ErrNotConnected)
}

func TestRawWhereMarshalsDocument(t *testing.T) {
	where, ok := compileWhere(vectordb.NewFilterSet(vectordb.Must(vectordb.NewMatch("lang", "en"))))
	require.True(t, ok)

	w := rawWhere(where)
	data, err := json.Marshal(&w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lang":{"$eq":"en"}}`, string(data))
	assert.JSONEq(t, `{"lang":{"$eq":"en"}}`, w.String())
	assert.NoError(t, w.Validate())

	var back rawWhere
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, map[string]any{"lang": map[string]any{"$eq": "en"}}, map[string]any(back))
}

func TestRecordTexts(t *testing.T) {
	texts, ok := records{Documents: []*string{doc("a"), nil}}.texts()
	assert.True(t, ok)
	assert.Equal(t, []string{"a", ""}, texts)

	_, ok = records{Documents: []*string{nil}}.texts()
	assert.False(t, ok)
}

func TestSuppliedEmbeddingsRefuseToEmbed(t *testing.T) {
	_, err := suppliedEmbeddings{}.EmbedDocuments(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmbeddingsRequired)
	_, err = suppliedEmbeddings{}.EmbedQuery(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmbeddingsRequired)
}
