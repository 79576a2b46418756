package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

var errBackend = errors.New("backend unavailable")

// stubConnection answers every call with canned values or err.
type stubConnection struct {
	*vectordb.Base
	err          error
	collections  []string
	databases    []string
	disconnected bool
	added        []string
}

func (s *stubConnection) Connect(context.Context) bool { s.MarkConnected(); return true }

func (s *stubConnection) Disconnect(context.Context) error {
	s.disconnected = true
	s.MarkDisconnected()
	return nil
}

func (s *stubConnection) ListDatabases(context.Context) ([]string, error) {
	return s.databases, s.err
}

func (s *stubConnection) ListCollections(context.Context) ([]string, error) {
	return s.collections, s.err
}

func (s *stubConnection) CreateCollection(context.Context, string, int, string) error { return s.err }

func (s *stubConnection) DeleteCollection(context.Context, string) error { return s.err }

func (s *stubConnection) AddItems(_ context.Context, _ string, in vectordb.AddRequest) error {
	if s.err != nil {
		return s.err
	}
	s.added = append(s.added, in.IDs...)
	return nil
}

func (s *stubConnection) UpdateItems(context.Context, string, vectordb.UpdateRequest) error {
	return s.err
}

func (s *stubConnection) DeleteItems(context.Context, string, []string) error { return s.err }

func (s *stubConnection) GetItems(context.Context, string, []string) (*vectordb.ItemBatch, error) {
	return vectordb.NewItemBatch(0, false), s.err
}

func (s *stubConnection) GetAllItems(context.Context, string, vectordb.ScanOptions) (*vectordb.ItemBatch, error) {
	return vectordb.NewItemBatch(0, false), s.err
}

func (s *stubConnection) Query(context.Context, string, vectordb.QueryRequest) (*vectordb.SearchResult, error) {
	return nil, s.err
}

func (s *stubConnection) Count(context.Context, string) (int64, error) { return 0, s.err }

func (s *stubConnection) GetCollectionInfo(_ context.Context, name string) (*vectordb.CollectionInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &vectordb.CollectionInfo{Name: name, Count: 2}, nil
}

type invalidation struct{ database, collection string }

type recordingCache struct{ calls []invalidation }

func (r *recordingCache) Invalidate(database, collection string) {
	r.calls = append(r.calls, invalidation{database, collection})
}

func newStub(err error) *stubConnection {
	return &stubConnection{
		Base:        vectordb.NewBase(vectordb.ProviderChroma, "http"),
		err:         err,
		collections: []string{"a", "b"},
		databases:   []string{"default_database"},
	}
}

func TestManager_WithoutConnection(t *testing.T) {
	m := NewManager(nil, nil)
	ctx := context.Background()

	assert.Equal(t, []string{}, m.Databases(ctx))
	assert.Equal(t, []string{}, m.Collections(ctx))
	assert.Nil(t, m.CollectionInfo(ctx, "a"))

	ok, msg := m.DeleteItems(ctx, "a", []string{"1"})
	assert.False(t, ok)
	assert.Equal(t, "No active connection", msg)

	_, found := m.ProviderType()
	assert.False(t, found)
}

func TestManager_ReadFacades(t *testing.T) {
	m := NewManager(nil, nil)
	m.SetConnection("conn-1", newStub(nil))
	ctx := context.Background()

	assert.Equal(t, []string{"default_database"}, m.Databases(ctx))
	assert.Equal(t, []string{"a", "b"}, m.Collections(ctx))
	info := m.CollectionInfo(ctx, "a")
	require.NotNil(t, info)
	assert.EqualValues(t, 2, info.Count)

	tag, ok := m.ProviderType()
	assert.True(t, ok)
	assert.Equal(t, vectordb.ProviderChroma, tag)
}

func TestManager_ReadFacadesSwallowErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := NewMockLogger(ctrl)
	mockLogger.EXPECT().Error("Failed to list databases", errBackend, gomock.Any()).Times(1)
	mockLogger.EXPECT().Error("Failed to list collections", errBackend, gomock.Any()).Times(1)
	mockLogger.EXPECT().Error("Failed to get collection info", errBackend, gomock.Any()).Times(1)

	m := NewManager(mockLogger, nil)
	m.SetConnection("conn-1", newStub(errBackend))
	ctx := context.Background()

	assert.Equal(t, []string{}, m.Databases(ctx))
	assert.Equal(t, []string{}, m.Collections(ctx))
	assert.Nil(t, m.CollectionInfo(ctx, "a"))
}

func TestManager_WritesInvalidateCache(t *testing.T) {
	cache := &recordingCache{}
	m := NewManager(nil, cache)
	stub := newStub(nil)
	m.SetConnection("conn-1", stub)
	ctx := context.Background()

	ok, msg := m.AddItems(ctx, "docs", vectordb.AddRequest{IDs: []string{"x"}})
	assert.True(t, ok)
	assert.Equal(t, "Completed add items", msg)
	assert.Equal(t, []string{"x"}, stub.added)

	ok, _ = m.DeleteCollection(ctx, "old")
	assert.True(t, ok)

	assert.Equal(t, []invalidation{{"conn-1", "docs"}, {"conn-1", "old"}}, cache.calls)
}

func TestManager_FailedWriteKeepsCache(t *testing.T) {
	cache := &recordingCache{}
	m := NewManager(nil, cache)
	m.SetConnection("conn-1", newStub(errBackend))

	ok, msg := m.UpdateItems(context.Background(), "docs", vectordb.UpdateRequest{IDs: []string{"x"}})
	assert.False(t, ok)
	assert.Equal(t, "Failed to update items: backend unavailable", msg)
	assert.Empty(t, cache.calls)
}

func TestManager_SetConnectionNilClears(t *testing.T) {
	m := NewManager(nil, nil)
	m.SetConnection("conn-1", newStub(nil))
	m.SetConnection("conn-1", nil)

	id, conn := m.Connection()
	assert.Empty(t, id)
	assert.Nil(t, conn)
}

func TestFXModule_DisconnectsOnStop(t *testing.T) {
	var m *Manager
	app := fxtest.New(t,
		FXModule,
		fx.Populate(&m),
	)
	app.RequireStart()

	stub := newStub(nil)
	stub.Connect(context.Background())
	m.SetConnection("conn-1", stub)

	app.RequireStop()
	assert.True(t, stub.disconnected)
	_, conn := m.Connection()
	assert.Nil(t, conn)
}
