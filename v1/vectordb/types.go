package vectordb

import (
	"maps"
	"slices"
)

// ProviderTag identifies a vector database backend.
type ProviderTag string

const (
	ProviderChroma   ProviderTag = "chromadb"
	ProviderQdrant   ProviderTag = "qdrant"
	ProviderPinecone ProviderTag = "pinecone"
	ProviderPgVector ProviderTag = "pgvector"
	ProviderLanceDB  ProviderTag = "lancedb"
	ProviderMilvus   ProviderTag = "milvus"
)

// KnownProviders returns the closed set of supported backends.
func KnownProviders() []ProviderTag {
	return []ProviderTag{
		ProviderChroma,
		ProviderQdrant,
		ProviderPinecone,
		ProviderPgVector,
		ProviderLanceDB,
		ProviderMilvus,
	}
}

// Valid reports whether p is one of KnownProviders.
func (p ProviderTag) Valid() bool {
	return slices.Contains(KnownProviders(), p)
}

func (p ProviderTag) String() string { return string(p) }

// ConnectionState is the lifecycle state of a Connection instance.
type ConnectionState int

const (
	StateUnconnected ConnectionState = iota
	StateConnected
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unconnected"
	}
}

// Item is a single stored record.
type Item struct {
	ID        string         `json:"id"`
	Document  *string        `json:"document"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// ItemBatch is the column-oriented result shape shared by all providers.
// IDs, Documents and Metadatas always have the same length. Embeddings is
// either nil or has the same length as IDs.
type ItemBatch struct {
	IDs        []string         `json:"ids"`
	Documents  []*string        `json:"documents"`
	Metadatas  []map[string]any `json:"metadatas"`
	Embeddings [][]float32      `json:"embeddings,omitempty"`
}

// NewItemBatch returns an empty batch. Embeddings are collected only when
// withEmbeddings is set.
func NewItemBatch(capacity int, withEmbeddings bool) *ItemBatch {
	b := &ItemBatch{
		IDs:       make([]string, 0, capacity),
		Documents: make([]*string, 0, capacity),
		Metadatas: make([]map[string]any, 0, capacity),
	}
	if withEmbeddings {
		b.Embeddings = make([][]float32, 0, capacity)
	}
	return b
}

// Len returns the number of items in the batch.
func (b *ItemBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.IDs)
}

// HasEmbeddings reports whether the batch carries vectors.
func (b *ItemBatch) HasEmbeddings() bool {
	return b != nil && b.Embeddings != nil
}

// Append adds an item. The embedding is kept only when the batch collects them.
func (b *ItemBatch) Append(it Item) {
	b.IDs = append(b.IDs, it.ID)
	b.Documents = append(b.Documents, it.Document)
	md := it.Metadata
	if md == nil {
		md = map[string]any{}
	}
	b.Metadatas = append(b.Metadatas, md)
	if b.Embeddings != nil {
		b.Embeddings = append(b.Embeddings, it.Embedding)
	}
}

// Item returns the i-th item.
func (b *ItemBatch) Item(i int) Item {
	it := Item{ID: b.IDs[i]}
	if i < len(b.Documents) {
		it.Document = b.Documents[i]
	}
	if i < len(b.Metadatas) {
		it.Metadata = b.Metadatas[i]
	}
	if i < len(b.Embeddings) {
		it.Embedding = b.Embeddings[i]
	}
	return it
}

// Items converts the batch into row form.
func (b *ItemBatch) Items() []Item {
	out := make([]Item, 0, b.Len())
	for i := 0; i < b.Len(); i++ {
		out = append(out, b.Item(i))
	}
	return out
}

// BatchFromItems builds a batch from rows.
func BatchFromItems(items []Item, withEmbeddings bool) *ItemBatch {
	b := NewItemBatch(len(items), withEmbeddings)
	for _, it := range items {
		b.Append(it)
	}
	return b
}

// Slice returns the window [offset, offset+limit). A limit <= 0 means up to the end.
func (b *ItemBatch) Slice(offset, limit int) *ItemBatch {
	n := b.Len()
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	out := NewItemBatch(end-offset, b.HasEmbeddings())
	for i := offset; i < end; i++ {
		out.Append(b.Item(i))
	}
	return out
}

// Clone deep-copies the batch.
func (b *ItemBatch) Clone() *ItemBatch {
	if b == nil {
		return nil
	}
	out := NewItemBatch(b.Len(), b.HasEmbeddings())
	for i := 0; i < b.Len(); i++ {
		it := b.Item(i)
		if it.Document != nil {
			d := *it.Document
			it.Document = &d
		}
		it.Metadata = CloneMap(it.Metadata)
		it.Embedding = slices.Clone(it.Embedding)
		out.Append(it)
	}
	return out
}

// SearchResult is an ItemBatch ordered from closest to farthest match.
type SearchResult struct {
	ItemBatch
	Distances []float32 `json:"distances"`
}

// Clone deep-copies the result.
func (r *SearchResult) Clone() *SearchResult {
	if r == nil {
		return nil
	}
	return &SearchResult{
		ItemBatch: *r.ItemBatch.Clone(),
		Distances: slices.Clone(r.Distances),
	}
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name               string         `json:"name"`
	Count              int64          `json:"count"`
	VectorDimension    int            `json:"vector_dimension,omitempty"`
	Distance           string         `json:"distance,omitempty"`
	MetadataFields     []string       `json:"metadata_fields"`
	EmbeddingModel     string         `json:"embedding_model,omitempty"`
	EmbeddingModelType string         `json:"embedding_model_type,omitempty"`
	Extra              map[string]any `json:"extra,omitempty"`
}

// ConnectionInfo summarizes how a connection is configured.
type ConnectionInfo struct {
	Provider  ProviderTag    `json:"provider"`
	Mode      string         `json:"mode"`
	Connected bool           `json:"connected"`
	Details   map[string]any `json:"details,omitempty"`
}

// FilterOperator describes a metadata filter operator and whether the
// provider evaluates it server side.
type FilterOperator struct {
	Name       string `json:"name"`
	ServerSide bool   `json:"server_side"`
}

// DefaultFilterOperators is the operator set most providers support.
func DefaultFilterOperators() []FilterOperator {
	return []FilterOperator{
		{Name: "=", ServerSide: true},
		{Name: "!=", ServerSide: true},
		{Name: ">", ServerSide: true},
		{Name: ">=", ServerSide: true},
		{Name: "<", ServerSide: true},
		{Name: "<=", ServerSide: true},
		{Name: "in", ServerSide: true},
		{Name: "not in", ServerSide: true},
		{Name: "contains", ServerSide: false},
	}
}

// AddRequest holds the arguments of Connection.AddItems. Metadatas and
// Embeddings are optional; when present they must match Documents in length.
// A nil IDs slice asks the adapter to generate ids.
type AddRequest struct {
	IDs        []string
	Documents  []string
	Metadatas  []map[string]any
	Embeddings [][]float32
}

// UpdateRequest holds the arguments of Connection.UpdateItems. Nil slices
// leave the corresponding field untouched; a nil entry inside Documents or
// Metadatas leaves that single item's field untouched.
type UpdateRequest struct {
	IDs        []string
	Documents  []*string
	Metadatas  []map[string]any
	Embeddings [][]float32
}

// ScanOptions controls Connection.GetAllItems. Offset is a zero-based item
// count. Limit 0 means no explicit cap; adapters still stop at DefaultScanCap.
type ScanOptions struct {
	Limit  int
	Offset int
	Filter *FilterSet
}

// QueryRequest holds the arguments of Connection.Query. Exactly one of Text
// and Embedding must be set.
type QueryRequest struct {
	Text      string
	Embedding []float32
	NResults  int
	Filter    *FilterSet
}

// DefaultScanCap bounds full scans when no limit is given.
const DefaultScanCap = 10000

// DefaultNResults is used when a query does not ask for a result count.
const DefaultNResults = 10

// EffectiveLimit returns the scan limit adapters should apply.
func (o ScanOptions) EffectiveLimit() int {
	if o.Limit <= 0 || o.Limit > DefaultScanCap {
		return DefaultScanCap
	}
	return o.Limit
}

// CloneMap deep-copies a metadata map, including nested maps and slices.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return slices.Clone(t)
	case []float32:
		return slices.Clone(t)
	case []float64:
		return slices.Clone(t)
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}

// MetadataFields returns the sorted union of metadata keys in the batch.
func MetadataFields(b *ItemBatch) []string {
	seen := map[string]struct{}{}
	if b != nil {
		for _, md := range b.Metadatas {
			for k := range md {
				seen[k] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
