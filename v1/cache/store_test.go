package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func TestNewStore(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	assert.IsType(t, &memoryStore{}, s)

	_, err = NewStore(StoreTypeRedis)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore("memcached")
	assert.ErrorIs(t, err, ErrInvalidStoreType)
}

func TestMemoryStore_Keys(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore()
	for _, k := range []Key{{"b", "x"}, {"a", "z"}, {"a", "y"}} {
		require.NoError(t, s.Put(ctx, k, &Entry{}))
	}

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Key{{"a", "y"}, {"a", "z"}, {"b", "x"}}, keys)

	require.NoError(t, s.DeleteDatabase(ctx, "a"))
	keys, _ = s.Keys(ctx)
	assert.Equal(t, []Key{{"b", "x"}}, keys)
}

func TestRedisStore_KeyEncoding(t *testing.T) {
	s := &redisStore{prefix: DefaultKeyPrefix}
	for _, k := range []Key{
		{"conn-1", "docs"},
		{"db:with:colons", "coll*with?glob[chars]"},
		{"", "only-collection"},
	} {
		raw := s.redisKey(k)
		assert.NotContains(t, raw[len(DefaultKeyPrefix):], "*")
		got, ok := s.parseKey(raw)
		require.True(t, ok, raw)
		assert.Equal(t, k, got)
	}

	_, ok := s.parseKey(DefaultKeyPrefix + "garbage")
	assert.False(t, ok)
}

func TestDecodeEntry_KeepsIntegers(t *testing.T) {
	doc := "alpha"
	in := &Entry{
		Data: &vectordb.ItemBatch{
			IDs:       []string{"a"},
			Documents: []*string{&doc},
			Metadatas: []map[string]any{{"year": int64(2020), "big": int64(9007199254740993), "score": 0.5}},
		},
		SearchFilters: map[string]any{"rank": map[string]any{"$gte": int64(3)}},
		SearchResults: &vectordb.SearchResult{
			ItemBatch: vectordb.ItemBatch{IDs: []string{"a"}, Documents: []*string{nil}, Metadatas: []map[string]any{{"n": int64(1)}}},
			Distances: []float32{0.25},
		},
		UserInputs: map[string]any{"page": int64(2)},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	got, err := decodeEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, in.Data.Metadatas, got.Data.Metadatas)
	assert.Equal(t, in.SearchFilters, got.SearchFilters)
	assert.Equal(t, in.SearchResults.Metadatas, got.SearchResults.Metadatas)
	assert.Equal(t, in.UserInputs, got.UserInputs)

	_, err = decodeEntry([]byte(`{"data":`))
	assert.Error(t, err)
}
