package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestManager() *Manager {
	return NewManager(nil, nil, WithClock(func() time.Time { return fixedNow }))
}

func sampleBatch() *vectordb.ItemBatch {
	doc := "alpha"
	return &vectordb.ItemBatch{
		IDs:       []string{"a"},
		Documents: []*string{&doc},
		Metadatas: []map[string]any{{"kind": "x"}},
	}
}

func TestManager_SetGet(t *testing.T) {
	m := newTestManager()
	in := Entry{Data: sampleBatch(), ScrollPosition: 4, SearchQuery: "cats"}

	m.Set("db", "col", in)

	got, ok := m.Get("db", "col")
	require.True(t, ok)
	assert.Equal(t, fixedNow, got.Timestamp)
	got.Timestamp = time.Time{}
	assert.Equal(t, in, *got)

	_, ok = m.Get("db", "other")
	assert.False(t, ok)
}

func TestManager_ReturnsCopies(t *testing.T) {
	m := newTestManager()
	in := Entry{Data: sampleBatch(), UserInputs: map[string]any{"k": "v"}}
	m.Set("db", "col", in)

	in.Data.IDs[0] = "mutated-after-set"
	got, _ := m.Get("db", "col")
	assert.Equal(t, "a", got.Data.IDs[0])

	got.UserInputs["k"] = "mutated-after-get"
	again, _ := m.Get("db", "col")
	assert.Equal(t, "v", again.UserInputs["k"])
}

func TestManager_KeyIsolation(t *testing.T) {
	m := newTestManager()
	m.Set("db1", "col", Entry{SearchQuery: "one"})
	m.Set("db2", "col", Entry{SearchQuery: "two"})
	m.Set("db1", "col2", Entry{SearchQuery: "three"})

	e, _ := m.Get("db1", "col")
	assert.Equal(t, "one", e.SearchQuery)
	e, _ = m.Get("db2", "col")
	assert.Equal(t, "two", e.SearchQuery)
}

func TestManager_InvalidateDatabase(t *testing.T) {
	m := newTestManager()
	m.Set("db", "a", Entry{})
	m.Set("db", "b", Entry{})
	m.Set("other_db", "c", Entry{})

	m.Invalidate("db", "")

	_, ok := m.Get("db", "a")
	assert.False(t, ok)
	_, ok = m.Get("db", "b")
	assert.False(t, ok)
	_, ok = m.Get("other_db", "c")
	assert.True(t, ok)
}

func TestManager_InvalidateDispatch(t *testing.T) {
	m := newTestManager()
	m.Set("db", "a", Entry{})
	m.Set("db", "b", Entry{})

	m.Invalidate("db", "a")
	_, ok := m.Get("db", "a")
	assert.False(t, ok)
	_, ok = m.Get("db", "b")
	assert.True(t, ok)

	m.Invalidate("", "b")
	_, ok = m.Get("db", "b")
	assert.True(t, ok, "collection without database is ignored")

	gen := m.Generation()
	m.Invalidate("", "")
	_, ok = m.Get("db", "b")
	assert.False(t, ok)
	assert.Equal(t, gen+1, m.Generation())
	assert.Zero(t, m.Info().EntryCount)
}

func TestManager_DisableDropsEntries(t *testing.T) {
	m := newTestManager()
	m.Set("db", "a", Entry{SearchQuery: "q"})

	m.Disable()
	assert.False(t, m.IsEnabled())
	m.Set("db", "b", Entry{})
	m.Update("db", "c", Fields{SearchQuery: ptr("ignored")})
	_, ok := m.Get("db", "a")
	assert.False(t, ok)

	m.Enable()
	for _, coll := range []string{"a", "b", "c"} {
		_, ok = m.Get("db", coll)
		assert.False(t, ok, coll)
	}
}

func TestManager_UpdateCreatesAndMerges(t *testing.T) {
	m := newTestManager()

	m.Update("db", "col", Fields{ScrollPosition: ptr(7)})
	e, ok := m.Get("db", "col")
	require.True(t, ok)
	assert.Equal(t, 7, e.ScrollPosition)
	assert.Nil(t, e.Data)

	m.Update("db", "col", Fields{
		SelectedIndices: ptr([]int{1, 3}),
		SearchFilters:   map[string]any{"kind": "x"},
	})
	e, _ = m.Get("db", "col")
	assert.Equal(t, 7, e.ScrollPosition)
	assert.Equal(t, []int{1, 3}, e.SelectedIndices)
	assert.Equal(t, map[string]any{"kind": "x"}, e.SearchFilters)
}

func TestManager_SetIfGeneration(t *testing.T) {
	m := newTestManager()
	gen := m.Generation()

	assert.True(t, m.SetIfGeneration(gen, "conn-1", "docs", Entry{SearchQuery: "fresh"}))

	m.Invalidate("", "")
	assert.False(t, m.SetIfGeneration(gen, "conn-1", "docs", Entry{SearchQuery: "stale"}))
	_, ok := m.Get("conn-1", "docs")
	assert.False(t, ok)

	assert.True(t, m.SetIfGeneration(m.Generation(), "conn-2", "docs", Entry{}))
}

func TestManager_UpdateIfGeneration(t *testing.T) {
	m := newTestManager()
	gen := m.Generation()
	query := "cats"

	assert.True(t, m.UpdateIfGeneration(gen, "conn-1", "docs", Fields{SearchQuery: &query}))
	e, ok := m.Get("conn-1", "docs")
	require.True(t, ok)
	assert.Equal(t, "cats", e.SearchQuery)

	m.Invalidate("", "")
	assert.False(t, m.UpdateIfGeneration(gen, "conn-1", "docs", Fields{SearchQuery: &query}))
	_, ok = m.Get("conn-1", "docs")
	assert.False(t, ok)
}

type toggle bool

func (t toggle) CacheEnabled() bool { return bool(t) }

func TestManager_ApplySettings(t *testing.T) {
	m := newTestManager()
	m.Set("db", "a", Entry{})

	m.ApplySettings(toggle(false))
	assert.False(t, m.IsEnabled())

	m.ApplySettings(toggle(true))
	assert.True(t, m.IsEnabled())
	_, ok := m.Get("db", "a")
	assert.False(t, ok)

	m.ApplySettings(nil)
	assert.True(t, m.IsEnabled())
}

func TestManager_Info(t *testing.T) {
	m := newTestManager()
	m.Set("db", "b", Entry{SearchResults: &vectordb.SearchResult{}})
	m.Set("db", "a", Entry{Data: sampleBatch()})

	info := m.Info()
	assert.True(t, info.Enabled)
	assert.Equal(t, 2, info.EntryCount)
	assert.Equal(t, []EntryInfo{
		{Database: "db", Collection: "a", Timestamp: fixedNow, HasData: true},
		{Database: "db", Collection: "b", Timestamp: fixedNow, HasSearchResults: true},
	}, info.Entries)
}

var errStore = errors.New("store down")

type failingStore struct{ *memoryStore }

func (failingStore) Get(context.Context, Key) (*Entry, bool, error) { return nil, false, errStore }
func (failingStore) Put(context.Context, Key, *Entry) error         { return errStore }

func TestManager_StoreFailuresDegradeToMisses(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn("Cache set failed", errStore, gomock.Any()).Times(1)
	mockLogger.EXPECT().Warn("Cache read failed", errStore, gomock.Any()).Times(1)

	m := NewManager(failingStore{memoryStore: newMemoryStore()}, mockLogger)
	m.Set("db", "a", Entry{})
	_, ok := m.Get("db", "a")
	assert.False(t, ok)
}

func ptr[T any](v T) *T { return &v }
