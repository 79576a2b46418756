package exchange

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// record is one element of the JSON export array.
type record struct {
	ID        string         `json:"id"`
	Document  *string        `json:"document"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// WriteJSON writes the batch as an indented JSON array of
// {id, document, metadata, embedding} objects. Embeddings are written only
// when the batch carries them.
func WriteJSON(w io.Writer, b *vectordb.ItemBatch) error {
	out := make([]record, 0, b.Len())
	for _, it := range b.Items() {
		md := it.Metadata
		if md == nil {
			md = map[string]any{}
		}
		out = append(out, record{ID: it.ID, Document: it.Document, Metadata: md, Embedding: it.Embedding})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// ReadJSON parses an array written by WriteJSON. The batch carries
// embeddings when at least one record has one.
func ReadJSON(r io.Reader) (*vectordb.ItemBatch, error) {
	var records []record
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	withEmbeddings := false
	items := make([]vectordb.Item, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) > 0 {
			withEmbeddings = true
		}
		items = append(items, vectordb.Item{
			ID:        rec.ID,
			Document:  rec.Document,
			Metadata:  normalizeNumbers(rec.Metadata),
			Embedding: rec.Embedding,
		})
	}
	return vectordb.BatchFromItems(items, withEmbeddings), nil
}

// normalizeNumbers turns json.Number into int64 when integral, float64 otherwise.
func normalizeNumbers(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	vectordb.NormalizeNumbers(m)
	return m
}
