package pinecone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func f64(f float64) *float64 { return &f }

func TestCompileFilter(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got, ok := compileFilter(nil)
		assert.True(t, ok)
		assert.Nil(t, got)
	})

	t.Run("range collapses into one operator map", func(t *testing.T) {
		got, ok := compileFilter(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewNumericRange("year", vectordb.NumericRange{Gte: f64(2000), Lt: f64(2010)}),
		)))
		require.True(t, ok)
		assert.Equal(t, map[string]any{"year": map[string]any{"$gte": 2000.0, "$lt": 2010.0}}, got)
	})

	t.Run("must not and should", func(t *testing.T) {
		got, ok := compileFilter(vectordb.NewFilterSet(
			vectordb.Should(vectordb.NewMatch("a", "x"), vectordb.NewMatch("b", "y")),
			vectordb.MustNot(vectordb.NewMatchAny("tag", "spam")),
		))
		require.True(t, ok)
		assert.Equal(t, map[string]any{"$and": []map[string]any{
			{"$or": []map[string]any{
				{"a": map[string]any{"$eq": "x"}},
				{"b": map[string]any{"$eq": "y"}},
			}},
			{"tag": map[string]any{"$nin": []any{"spam"}}},
		}}, got)
	})

	t.Run("unsupported conditions fall back", func(t *testing.T) {
		_, ok := compileFilter(vectordb.NewFilterSet(vectordb.Must(vectordb.NewIsNull("x"))))
		assert.False(t, ok)
		_, ok = compileFilter(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewNested(vectordb.NewFilterSet(vectordb.Must(vectordb.NewContains("t", "go")))),
		)))
		assert.False(t, ok)
	})
}

func TestScoreToDistance(t *testing.T) {
	assert.InDelta(t, 0.1, scoreToDistance("cosine", 0.9), 1e-6)
	assert.InDelta(t, 5.0, scoreToDistance("euclidean", 25), 1e-6)
	assert.InDelta(t, 7.5, scoreToDistance("dotproduct", 7.5), 1e-6)
}

func TestVectorConversion(t *testing.T) {
	d := "hello"
	v := toVector(vectordb.Item{
		ID:        "a",
		Document:  &d,
		Metadata:  map[string]any{"lang": "en", "gone": nil},
		Embedding: []float32{1, 2},
	})
	assert.Equal(t, map[string]any{"lang": "en", DocumentKey: "hello"}, v.Metadata)

	it := v.item()
	require.NotNil(t, it.Document)
	assert.Equal(t, "hello", *it.Document)
	assert.Equal(t, map[string]any{"lang": "en"}, it.Metadata)
	assert.Equal(t, []float32{1, 2}, it.Embedding)
}

func TestHostURL(t *testing.T) {
	assert.Equal(t, "https://idx-abc.svc.pinecone.io", hostURL("idx-abc.svc.pinecone.io"))
	assert.Equal(t, "http://127.0.0.1:9000", hostURL("http://127.0.0.1:9000/"))
}
