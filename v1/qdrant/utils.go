package qdrant

import (
	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// extractVectorDetails safely extracts the vector size and distance metric
// (e.g. "Cosine", "Dot", "Euclid") from a Qdrant CollectionInfo.
//
// Qdrant represents vector configuration data using a deeply nested protobuf
// structure with "oneof" wrappers. Collections with named vectors report the
// first entry. Missing fields yield (0, "").
func extractVectorDetails(info *qdrant.CollectionInfo) (int, string) {
	if info == nil ||
		info.Config == nil ||
		info.Config.Params == nil ||
		info.Config.Params.VectorsConfig == nil ||
		info.Config.Params.VectorsConfig.Config == nil {
		return 0, ""
	}

	switch cfg := info.Config.Params.VectorsConfig.Config.(type) {
	case *qdrant.VectorsConfig_Params:
		return int(cfg.Params.Size), cfg.Params.Distance.String()
	case *qdrant.VectorsConfig_ParamsMap:
		for _, p := range cfg.ParamsMap.GetMap() {
			return int(p.Size), p.Distance.String()
		}
	}

	return 0, ""
}

// derefUint64 safely dereferences a *uint64 pointer.
func derefUint64(v *uint64) uint64 {
	if v != nil {
		return *v
	}
	return 0
}

// toQdrantDistance maps a metric onto the Qdrant enum.
func toQdrantDistance(d vectordb.Distance) qdrant.Distance {
	switch d {
	case vectordb.DistanceEuclidean:
		return qdrant.Distance_Euclid
	case vectordb.DistanceDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// scoreToDistance converts a Qdrant score into the reported distance.
// Cosine scores are similarities; Euclid and Manhattan scores already are
// distances; Dot scores are inner products.
func scoreToDistance(metric string, score float32) float32 {
	if metric == qdrant.Distance_Cosine.String() {
		return 1 - score
	}
	return score
}
