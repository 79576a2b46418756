package browse

import "github.com/Aleph-Alpha/vectorinspector/v1/vectordb"

// Similarity converts a search distance into a score where higher means more
// similar. Cosine and dot scores are clamped to [0, 1]; euclidean and
// unknown metrics use 1/(1+d).
func Similarity(distance float64, metric vectordb.Distance) float64 {
	switch metric {
	case vectordb.DistanceCosine:
		return clamp01(1 - distance)
	case vectordb.DistanceDot:
		return clamp01(distance)
	case vectordb.DistanceEuclidean:
		return 1 / (1 + distance)
	default:
		return max(0, 1/(1+distance))
	}
}

// Similarities converts every distance of a result.
func Similarities(res *vectordb.SearchResult, metric vectordb.Distance) []float64 {
	if res == nil {
		return nil
	}
	out := make([]float64, len(res.Distances))
	for i, d := range res.Distances {
		out[i] = Similarity(float64(d), metric)
	}
	return out
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
