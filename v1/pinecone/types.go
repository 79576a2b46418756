package pinecone

import (
	"fmt"
	"math"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// DocumentKey is the metadata key holding the item document.
const DocumentKey = "document"

// toVector stores the document under DocumentKey. Pinecone rejects null
// metadata values, so nil entries are dropped.
func toVector(it vectordb.Item) (*pinecone.Vector, error) {
	md := make(map[string]any, len(it.Metadata)+1)
	for k, v := range it.Metadata {
		if v != nil {
			md[k] = v
		}
	}
	if it.Document != nil {
		md[DocumentKey] = *it.Document
	}
	st, err := toStruct(md)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata of %q: %v", vectordb.ErrInvalidArgument, it.ID, err)
	}
	return &pinecone.Vector{Id: it.ID, Values: it.Embedding, Metadata: st}, nil
}

func fromVector(v *pinecone.Vector) vectordb.Item {
	it := vectordb.Item{ID: v.Id, Embedding: v.Values, Metadata: map[string]any{}}
	if v.Metadata == nil {
		return it
	}
	for k, val := range v.Metadata.AsMap() {
		if k == DocumentKey {
			if s, ok := val.(string); ok {
				it.Document = &s
				continue
			}
		}
		it.Metadata[k] = val
	}
	return it
}

// toStruct converts a metadata map or compiled filter. structpb only takes
// []any and map[string]any containers, so typed slices are widened first.
func toStruct(m map[string]any) (*structpb.Struct, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return structpb.NewStruct(widen(m).(map[string]any))
}

func widen(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = widen(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = widen(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = widen(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case []int64:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case []bool:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}

func metricFor(d vectordb.Distance) pinecone.IndexMetric {
	switch d {
	case vectordb.DistanceEuclidean:
		return pinecone.Euclidean
	case vectordb.DistanceDot:
		return pinecone.Dotproduct
	default:
		return pinecone.Cosine
	}
}

func distanceName(metric pinecone.IndexMetric) string {
	switch metric {
	case pinecone.Euclidean:
		return string(vectordb.DistanceEuclidean)
	case pinecone.Dotproduct:
		return string(vectordb.DistanceDot)
	default:
		return string(vectordb.DistanceCosine)
	}
}

// scoreToDistance converts a match score. Cosine scores are similarities
// and euclidean scores are squared distances.
func scoreToDistance(metric pinecone.IndexMetric, score float32) float32 {
	switch metric {
	case pinecone.Euclidean:
		return float32(math.Sqrt(math.Max(float64(score), 0)))
	case pinecone.Dotproduct:
		return score
	default:
		return 1 - score
	}
}

func indexState(idx *pinecone.Index) string {
	if idx == nil || idx.Status == nil {
		return ""
	}
	return string(idx.Status.State)
}
