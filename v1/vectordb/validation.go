package vectordb

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidateAdd checks AddItems arguments.
func ValidateAdd(in AddRequest) error {
	if len(in.Documents) == 0 || (in.IDs != nil && len(in.IDs) == 0) {
		return ErrNothingToAdd
	}
	n := len(in.Documents)
	if in.IDs != nil && len(in.IDs) != n {
		return fmt.Errorf("%w: %d ids, %d documents", ErrLengthMismatch, len(in.IDs), n)
	}
	if in.Metadatas != nil && len(in.Metadatas) != n {
		return fmt.Errorf("%w: %d metadatas, %d documents", ErrLengthMismatch, len(in.Metadatas), n)
	}
	if in.Embeddings != nil && len(in.Embeddings) != n {
		return fmt.Errorf("%w: %d embeddings, %d documents", ErrLengthMismatch, len(in.Embeddings), n)
	}
	return nil
}

// ValidateUpdate checks UpdateItems arguments.
func ValidateUpdate(in UpdateRequest) error {
	n := len(in.IDs)
	if n == 0 {
		return fmt.Errorf("%w: no ids to update", ErrInvalidArgument)
	}
	if in.Documents != nil && len(in.Documents) != n {
		return fmt.Errorf("%w: %d documents, %d ids", ErrLengthMismatch, len(in.Documents), n)
	}
	if in.Metadatas != nil && len(in.Metadatas) != n {
		return fmt.Errorf("%w: %d metadatas, %d ids", ErrLengthMismatch, len(in.Metadatas), n)
	}
	if in.Embeddings != nil && len(in.Embeddings) != n {
		return fmt.Errorf("%w: %d embeddings, %d ids", ErrLengthMismatch, len(in.Embeddings), n)
	}
	return nil
}

// ValidateQuery checks that exactly one of text and embedding is set.
func ValidateQuery(q QueryRequest) error {
	hasText := q.Text != ""
	hasVec := len(q.Embedding) > 0
	if hasText == hasVec {
		return ErrInvalidQuery
	}
	return nil
}

// ValidateCollectionSpec checks CreateCollection arguments and normalizes the metric.
func ValidateCollectionSpec(name string, vectorSize int, distance string) (Distance, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty collection name", ErrInvalidArgument)
	}
	if vectorSize <= 0 {
		return "", fmt.Errorf("%w: vector size must be positive, got %d", ErrInvalidArgument, vectorSize)
	}
	return ParseDistance(distance)
}

// Limit returns q.NResults or DefaultNResults.
func (q QueryRequest) Limit() int {
	if q.NResults <= 0 {
		return DefaultNResults
	}
	return q.NResults
}

// GenerateIDs returns n random UUID strings.
func GenerateIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}

// MergeUpdate applies in onto the existing items and returns the merged rows
// in the order of in.IDs. Ids missing from existing are skipped.
func MergeUpdate(existing *ItemBatch, in UpdateRequest) []Item {
	byID := make(map[string]Item, existing.Len())
	for _, it := range existing.Items() {
		byID[it.ID] = it
	}
	out := make([]Item, 0, len(in.IDs))
	for i, id := range in.IDs {
		it, ok := byID[id]
		if !ok {
			continue
		}
		if in.Documents != nil && in.Documents[i] != nil {
			d := *in.Documents[i]
			it.Document = &d
		}
		if in.Metadatas != nil && in.Metadatas[i] != nil {
			it.Metadata = CloneMap(in.Metadatas[i])
		}
		if in.Embeddings != nil && in.Embeddings[i] != nil {
			it.Embedding = in.Embeddings[i]
		}
		out = append(out, it)
	}
	return out
}
