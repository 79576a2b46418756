package qdrant

import (
	"testing"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func TestToPointID(t *testing.T) {
	t.Run("numeric ids stay numeric", func(t *testing.T) {
		pid, mapped := toPointID("42")
		assert.False(t, mapped)
		assert.Equal(t, uint64(42), pid.GetNum())
	})

	t.Run("uuids are kept", func(t *testing.T) {
		id := "5c56c793-69f3-4fbf-87e6-c4bf54c28c26"
		pid, mapped := toPointID(id)
		assert.False(t, mapped)
		assert.Equal(t, id, pid.GetUuid())
	})

	t.Run("other strings are hashed deterministically", func(t *testing.T) {
		pid, mapped := toPointID("doc-1")
		assert.True(t, mapped)
		assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceDNS, []byte("doc-1")).String(), pid.GetUuid())

		again, _ := toPointID("doc-1")
		assert.Equal(t, pid.GetUuid(), again.GetUuid())
	})
}

func TestBuildPointRoundTrip(t *testing.T) {
	doc := "hello"
	point, err := buildPoint(vectordb.Item{
		ID:        "doc-1",
		Document:  &doc,
		Metadata:  map[string]any{"lang": "en", "pages": 3},
		Embedding: []float32{0.1, 0.2},
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", point.Payload[PayloadOriginalID].GetStringValue())
	assert.Equal(t, "hello", point.Payload[PayloadDocument].GetStringValue())

	vectors := &qdrant.VectorsOutput{
		VectorsOptions: &qdrant.VectorsOutput_Vector{
			Vector: &qdrant.VectorOutput{Data: []float32{0.1, 0.2}},
		},
	}
	it, err := pointToItem(point.Id, point.Payload, vectors)
	require.NoError(t, err)

	assert.Equal(t, "doc-1", it.ID)
	require.NotNil(t, it.Document)
	assert.Equal(t, "hello", *it.Document)
	assert.Equal(t, map[string]any{"lang": "en", "pages": int64(3)}, it.Metadata)
	assert.Equal(t, []float32{0.1, 0.2}, it.Embedding)
}

func TestPointToItemWithoutDocument(t *testing.T) {
	it, err := pointToItem(qdrant.NewIDNum(7), map[string]*qdrant.Value{
		"tag": qdrant.NewValueString("x"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "7", it.ID)
	assert.Nil(t, it.Document)
	assert.Nil(t, it.Embedding)
	assert.Equal(t, map[string]any{"tag": "x"}, it.Metadata)
}

func TestExtractPointIDNil(t *testing.T) {
	_, err := extractPointID(nil)
	assert.ErrorIs(t, err, ErrUnexpectedPointID)
}

func TestConvertFilterSet(t *testing.T) {
	t.Run("nil and empty filters", func(t *testing.T) {
		assert.Nil(t, convertFilterSet(nil))
		assert.Nil(t, convertFilterSet(vectordb.NewFilterSet()))
	})

	t.Run("clauses map one to one", func(t *testing.T) {
		fs := vectordb.NewFilterSet(
			vectordb.Must(vectordb.NewMatch("city", "London"), vectordb.NewMatch("active", true)),
			vectordb.Should(vectordb.NewMatchAny("tier", "gold", "silver")),
			vectordb.MustNot(vectordb.NewMatch("status", "deleted")),
		)
		f := convertFilterSet(fs)
		require.NotNil(t, f)
		assert.Len(t, f.Must, 2)
		assert.Len(t, f.Should, 1)
		assert.Len(t, f.MustNot, 1)
		assert.Equal(t, "city", f.Must[0].GetField().GetKey())
		assert.Equal(t, "London", f.Must[0].GetField().GetMatch().GetKeyword())
		assert.True(t, f.Must[1].GetField().GetMatch().GetBoolean())
		assert.Equal(t, []string{"gold", "silver"}, f.Should[0].GetField().GetMatch().GetKeywords().GetStrings())
	})

	t.Run("float match", func(t *testing.T) {
		f := convertFilterSet(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewMatch("n", float64(3)),
			vectordb.NewMatch("score", 0.5),
		)))
		require.Len(t, f.Must, 2)
		assert.Equal(t, int64(3), f.Must[0].GetField().GetMatch().GetInteger())
		r := f.Must[1].GetField().GetRange()
		require.NotNil(t, r)
		assert.Equal(t, 0.5, r.GetGte())
		assert.Equal(t, 0.5, r.GetLte())
	})

	t.Run("contains and negated contains", func(t *testing.T) {
		f := convertFilterSet(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewContains("title", "go"),
			vectordb.NewNotContains("title", "java"),
		)))
		require.Len(t, f.Must, 2)
		assert.Equal(t, "go", f.Must[0].GetField().GetMatch().GetText())
		nested := f.Must[1].GetFilter()
		require.NotNil(t, nested)
		require.Len(t, nested.MustNot, 1)
		assert.Equal(t, "java", nested.MustNot[0].GetField().GetMatch().GetText())
	})

	t.Run("nested or", func(t *testing.T) {
		fs, err := vectordb.ParseWhere(map[string]any{
			"$or": []any{
				map[string]any{"a": "x"},
				map[string]any{"b": "y"},
			},
		})
		require.NoError(t, err)
		f := convertFilterSet(fs)
		require.NotNil(t, f)
		require.Len(t, f.Must, 1)
		assert.Len(t, f.Must[0].GetFilter().GetShould(), 2)
	})

	t.Run("ranges", func(t *testing.T) {
		lo := 1.0
		f := convertFilterSet(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewNumericRange("n", vectordb.NumericRange{Gte: &lo}),
			vectordb.NewNumericRange("m", vectordb.NumericRange{}),
		)))
		require.Len(t, f.Must, 1)
		assert.Equal(t, 1.0, f.Must[0].GetField().GetRange().GetGte())
	})

	t.Run("except ints", func(t *testing.T) {
		f := convertFilterSet(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewMatchExcept("n", 1, 2),
		)))
		require.Len(t, f.Must, 1)
		assert.Equal(t, []int64{1, 2}, f.Must[0].GetField().GetMatch().GetExceptIntegers().GetIntegers())
	})
}

func TestScoreToDistance(t *testing.T) {
	assert.InDelta(t, 0.25, scoreToDistance("Cosine", 0.75), 1e-6)
	assert.InDelta(t, 2.0, scoreToDistance("Euclid", 2.0), 1e-6)
	assert.InDelta(t, 5.0, scoreToDistance("Dot", 5.0), 1e-6)
}

func TestExtractVectorDetails(t *testing.T) {
	size, metric := extractVectorDetails(nil)
	assert.Zero(t, size)
	assert.Empty(t, metric)

	info := &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: 4, Distance: qdrant.Distance_Dot}),
			},
		},
	}
	size, metric = extractVectorDetails(info)
	assert.Equal(t, 4, size)
	assert.Equal(t, "Dot", metric)
}
