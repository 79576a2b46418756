package milvus

import (
	"testing"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func TestSchemaLayout(t *testing.T) {
	schema := newSchema("docs", 3)
	require.Len(t, schema.Fields, 4)
	assert.Equal(t, FieldID, schema.Fields[0].Name)
	assert.True(t, schema.Fields[0].PrimaryKey)
	assert.Equal(t, entity.FieldTypeJSON, schema.Fields[2].DataType)
	assert.Equal(t, 3, dimension(schema))
	assert.Zero(t, dimension(nil))
}

func TestMetrics(t *testing.T) {
	for _, d := range []vectordb.Distance{vectordb.DistanceCosine, vectordb.DistanceEuclidean, vectordb.DistanceDot} {
		assert.Equal(t, string(d), distanceName(metricType(d)))
	}
	assert.Equal(t, entity.L2, metricFromParams(map[string]string{"metric_type": "L2"}))
	assert.Equal(t, entity.COSINE, metricFromParams(nil))

	assert.InDelta(t, 0.25, scoreToDistance(entity.COSINE, 0.75), 1e-6)
	assert.InDelta(t, 2, scoreToDistance(entity.L2, 4), 1e-6)
	assert.InDelta(t, -1, scoreToDistance(entity.IP, -1), 1e-6)
}

func TestColumns(t *testing.T) {
	doc := "hello"
	cols, err := columns([]vectordb.Item{
		{ID: "a", Document: &doc, Metadata: map[string]any{"k": "v"}, Embedding: []float32{1, 2}},
		{ID: "b", Embedding: []float32{3, 4}},
	}, 2)
	require.NoError(t, err)
	require.Len(t, cols, 4)
	for _, col := range cols {
		assert.Equal(t, 2, col.Len())
	}

	md, err := cols[2].Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), md)

	_, err = columns([]vectordb.Item{{ID: "a", Embedding: []float32{1}}}, 2)
	assert.ErrorIs(t, err, vectordb.ErrInvalidArgument)
}
