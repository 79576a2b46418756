package chroma

import (
	"math"

	chromav2 "github.com/amikos-tech/chroma-go/pkg/api/v2"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// SpaceKey is the collection metadata key holding the distance function.
const SpaceKey = "hnsw:space"

type remoteCollection struct {
	ID            string
	Name          string
	Metadata      map[string]any
	Dimension     *int
	Configuration map[string]any

	handle chromav2.Collection
}

// space returns the distance function of the collection. Chroma defaults
// to squared L2.
func (c remoteCollection) space() string {
	if s, ok := c.Metadata[SpaceKey].(string); ok && s != "" {
		return s
	}
	if hnsw, ok := c.Configuration["hnsw"].(map[string]any); ok {
		if s, ok := hnsw["space"].(string); ok && s != "" {
			return s
		}
	}
	return "l2"
}

// records is the payload of add and upsert.
type records struct {
	IDs        []string
	Embeddings [][]float32
	Documents  []*string
	Metadatas  []map[string]any
}

type getRequest struct {
	IDs     []string
	Where   map[string]any
	Limit   *int
	Offset  *int
	Include []string
}

type getResponse struct {
	IDs        []string
	Documents  []*string
	Metadatas  []map[string]any
	Embeddings [][]float32
}

type queryRequest struct {
	QueryEmbeddings [][]float32
	NResults        int
	Where           map[string]any
	Include         []string
}

// queryResponse holds one group per query embedding.
type queryResponse struct {
	IDs        [][]string
	Documents  [][]*string
	Metadatas  [][]map[string]any
	Embeddings [][][]float32
	Distances  [][]float32
}

var includeAll = []string{"documents", "metadatas", "embeddings"}

func (r getResponse) batch() *vectordb.ItemBatch {
	b := vectordb.NewItemBatch(len(r.IDs), true)
	for i, id := range r.IDs {
		it := vectordb.Item{ID: id}
		if i < len(r.Documents) {
			it.Document = r.Documents[i]
		}
		if i < len(r.Metadatas) {
			it.Metadata = r.Metadatas[i]
		}
		if i < len(r.Embeddings) {
			it.Embedding = r.Embeddings[i]
		}
		b.Append(it)
	}
	return b
}

// firstResult flattens the first query of a batched query response.
func (r queryResponse) firstResult(space string) *vectordb.SearchResult {
	res := &vectordb.SearchResult{ItemBatch: *vectordb.NewItemBatch(0, true)}
	if len(r.IDs) == 0 {
		return res
	}
	for i, id := range r.IDs[0] {
		it := vectordb.Item{ID: id}
		if len(r.Documents) > 0 && i < len(r.Documents[0]) {
			it.Document = r.Documents[0][i]
		}
		if len(r.Metadatas) > 0 && i < len(r.Metadatas[0]) {
			it.Metadata = r.Metadatas[0][i]
		}
		if len(r.Embeddings) > 0 && i < len(r.Embeddings[0]) {
			it.Embedding = r.Embeddings[0][i]
		}
		res.Append(it)
		var d float32
		if len(r.Distances) > 0 && i < len(r.Distances[0]) {
			d = r.Distances[0][i]
		}
		res.Distances = append(res.Distances, toDistance(space, d))
	}
	return res
}

// toDistance converts a Chroma distance into the reported one. Chroma
// returns squared L2 and 1 - inner product.
func toDistance(space string, d float32) float32 {
	switch space {
	case "l2":
		return float32(math.Sqrt(math.Max(float64(d), 0)))
	case "ip":
		return 1 - d
	default:
		return d
	}
}

func spaceFor(d vectordb.Distance) string {
	switch d {
	case vectordb.DistanceEuclidean:
		return "l2"
	case vectordb.DistanceDot:
		return "ip"
	default:
		return "cosine"
	}
}

func distanceName(space string) string {
	switch space {
	case "l2":
		return string(vectordb.DistanceEuclidean)
	case "ip":
		return string(vectordb.DistanceDot)
	default:
		return string(vectordb.DistanceCosine)
	}
}

// nullableMetadatas replaces empty maps with nil, which Chroma stores as
// "no metadata" instead of rejecting them.
func nullableMetadatas(in []map[string]any) []map[string]any {
	out := make([]map[string]any, len(in))
	for i, m := range in {
		if len(m) > 0 {
			out[i] = m
		}
	}
	return out
}
