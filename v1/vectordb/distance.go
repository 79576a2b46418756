package vectordb

import (
	"fmt"
	"strings"
)

// Distance is a similarity metric name as shown to users.
type Distance string

const (
	DistanceCosine    Distance = "Cosine"
	DistanceEuclidean Distance = "Euclidean"
	DistanceDot       Distance = "Dot"
)

// ParseDistance normalizes metric spellings used across providers.
// An empty string yields DistanceCosine.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine", "cos":
		return DistanceCosine, nil
	case "euclidean", "euclid", "l2":
		return DistanceEuclidean, nil
	case "dot", "ip", "dotproduct", "dot_product", "inner_product":
		return DistanceDot, nil
	default:
		return "", fmt.Errorf("%w: unknown distance metric %q", ErrInvalidArgument, s)
	}
}
