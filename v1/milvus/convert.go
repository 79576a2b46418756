package milvus

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Field names of the collection schema.
const (
	FieldID        = "id"
	FieldDocument  = "document"
	FieldMetadata  = "metadata"
	FieldEmbedding = "embedding"
)

var outputFields = []string{FieldID, FieldDocument, FieldMetadata, FieldEmbedding}

// newSchema builds the fixed collection layout.
func newSchema(name string, dim int) *entity.Schema {
	return entity.NewSchema().
		WithName(name).
		WithDynamicFieldEnabled(false).
		WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxVarChar).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(FieldDocument).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxVarChar)).
		WithField(entity.NewField().WithName(FieldMetadata).WithDataType(entity.FieldTypeJSON)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)))
}

func metricType(d vectordb.Distance) entity.MetricType {
	switch d {
	case vectordb.DistanceEuclidean:
		return entity.L2
	case vectordb.DistanceDot:
		return entity.IP
	default:
		return entity.COSINE
	}
}

func distanceName(m entity.MetricType) string {
	switch m {
	case entity.L2:
		return string(vectordb.DistanceEuclidean)
	case entity.IP:
		return string(vectordb.DistanceDot)
	default:
		return string(vectordb.DistanceCosine)
	}
}

// scoreToDistance converts a search score. COSINE scores are similarities
// and L2 scores are squared distances.
func scoreToDistance(m entity.MetricType, score float32) float32 {
	switch m {
	case entity.L2:
		return float32(math.Sqrt(math.Max(float64(score), 0)))
	case entity.IP:
		return score
	default:
		return 1 - score
	}
}

func ivfIndex(m entity.MetricType, nlist int) index.Index {
	return index.NewIvfFlatIndex(m, nlist)
}

// metricFromParams reads the metric of an index description.
func metricFromParams(params map[string]string) entity.MetricType {
	if m, ok := params["metric_type"]; ok && m != "" {
		return entity.MetricType(m)
	}
	return entity.COSINE
}

// dimension reads the vector dimension from a collection schema.
func dimension(schema *entity.Schema) int {
	if schema == nil {
		return 0
	}
	for _, f := range schema.Fields {
		if f.Name != FieldEmbedding {
			continue
		}
		if dim, err := strconv.Atoi(f.TypeParams[entity.TypeParamDim]); err == nil {
			return dim
		}
	}
	return 0
}

// columns encodes items as insert columns. Documents longer than the schema
// allows are rejected rather than truncated.
func columns(items []vectordb.Item, dim int) ([]column.Column, error) {
	ids := make([]string, len(items))
	docs := make([]string, len(items))
	mds := make([][]byte, len(items))
	vecs := make([][]float32, len(items))
	for i, it := range items {
		if len(it.ID) > maxVarChar {
			return nil, fmt.Errorf("%w: id longer than %d bytes", vectordb.ErrInvalidArgument, maxVarChar)
		}
		ids[i] = it.ID
		if it.Document != nil {
			if len(*it.Document) > maxVarChar {
				return nil, fmt.Errorf("%w: document %q longer than %d bytes", vectordb.ErrInvalidArgument, it.ID, maxVarChar)
			}
			docs[i] = *it.Document
		}
		md := it.Metadata
		if md == nil {
			md = map[string]any{}
		}
		raw, err := json.Marshal(md)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata of %q: %v", vectordb.ErrInvalidArgument, it.ID, err)
		}
		mds[i] = raw
		if len(it.Embedding) != dim {
			return nil, fmt.Errorf("%w: item %q has %d dimensions, collection has %d",
				vectordb.ErrInvalidArgument, it.ID, len(it.Embedding), dim)
		}
		vecs[i] = it.Embedding
	}
	return []column.Column{
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldDocument, docs),
		column.NewColumnJSONBytes(FieldMetadata, mds),
		column.NewColumnFloatVector(FieldEmbedding, dim, vecs),
	}, nil
}

// readBatch decodes the output fields of a query or search result.
func readBatch(rs milvusclient.ResultSet) (*vectordb.ItemBatch, error) {
	n := rs.ResultCount
	idCol := rs.GetColumn(FieldID)
	if idCol == nil && rs.IDs != nil {
		idCol = rs.IDs
	}
	if idCol == nil {
		return vectordb.NewItemBatch(0, true), nil
	}
	if n == 0 || n > idCol.Len() {
		n = idCol.Len()
	}
	docCol := rs.GetColumn(FieldDocument)
	mdCol := rs.GetColumn(FieldMetadata)
	vecCol := rs.GetColumn(FieldEmbedding)

	b := vectordb.NewItemBatch(n, true)
	for i := 0; i < n; i++ {
		id, err := stringAt(idCol, i)
		if err != nil {
			return nil, err
		}
		it := vectordb.Item{ID: id, Metadata: map[string]any{}}
		if docCol != nil {
			doc, err := stringAt(docCol, i)
			if err != nil {
				return nil, err
			}
			it.Document = &doc
		}
		if mdCol != nil {
			raw, err := mdCol.Get(i)
			if err != nil {
				return nil, err
			}
			if bs, ok := raw.([]byte); ok && len(bs) > 0 {
				if err := json.Unmarshal(bs, &it.Metadata); err != nil {
					return nil, fmt.Errorf("milvus: decode metadata of %q: %w", id, err)
				}
			}
		}
		if vecCol != nil {
			vec, err := vectorAt(vecCol, i)
			if err != nil {
				return nil, err
			}
			it.Embedding = vec
		}
		b.Append(it)
	}
	return b, nil
}

func stringAt(col column.Column, i int) (string, error) {
	v, err := col.Get(i)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	}
	return "", fmt.Errorf("%w: %s is %T", ErrUnexpectedColumn, col.Name(), v)
}

func vectorAt(col column.Column, i int) ([]float32, error) {
	v, err := col.Get(i)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case entity.FloatVector:
		return []float32(t), nil
	case []float32:
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s is %T", ErrUnexpectedColumn, col.Name(), v)
}

// countFrom reads the count(*) column.
func countFrom(rs milvusclient.ResultSet) (int64, error) {
	col := rs.GetColumn("count(*)")
	if col == nil || col.Len() == 0 {
		return 0, fmt.Errorf("%w: missing count(*)", ErrUnexpectedColumn)
	}
	v, err := col.Get(0)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	}
	return 0, fmt.Errorf("%w: count(*) is %T", ErrUnexpectedColumn, v)
}
