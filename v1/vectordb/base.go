package vectordb

import (
	"context"
	"sync"
)

// Base carries the state shared by every adapter. Adapters embed *Base and
// call MarkConnected/MarkDisconnected from Connect/Disconnect and Guard at the
// top of every data operation.
type Base struct {
	mu        sync.RWMutex
	state     ConnectionState
	provider  ProviderTag
	mode      string
	profileID string
	embedder  Embedder
	models    ModelLookup
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithEmbedder sets the embedder used for documents and query text.
func WithEmbedder(e Embedder) BaseOption {
	return func(b *Base) { b.embedder = e }
}

// WithModelLookup sets the settings lookup consulted last when resolving
// a collection's embedding model.
func WithModelLookup(l ModelLookup) BaseOption {
	return func(b *Base) { b.models = l }
}

// WithProfileID sets the connection profile id used for model lookups.
func WithProfileID(id string) BaseOption {
	return func(b *Base) { b.profileID = id }
}

// NewBase creates a Base in StateUnconnected.
func NewBase(provider ProviderTag, mode string, opts ...BaseOption) *Base {
	b := &Base{provider: provider, mode: mode}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Base) State() ConnectionState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Base) ProviderTag() ProviderTag { return b.provider }

// Mode returns the connection mode, e.g. "http", "persistent" or "ephemeral".
func (b *Base) Mode() string { return b.mode }

func (b *Base) ProfileID() string { return b.profileID }

func (b *Base) Embedder() Embedder { return b.embedder }

// IsConnected reports whether the state is StateConnected.
func (b *Base) IsConnected() bool {
	return b.State() == StateConnected
}

// MarkConnected moves the connection to StateConnected.
func (b *Base) MarkConnected() {
	b.mu.Lock()
	b.state = StateConnected
	b.mu.Unlock()
}

// MarkDisconnected moves the connection to StateDisconnected.
func (b *Base) MarkDisconnected() {
	b.mu.Lock()
	b.state = StateDisconnected
	b.mu.Unlock()
}

// Guard returns ErrNotConnected unless the connection is connected.
func (b *Base) Guard() error {
	if b.State() != StateConnected {
		return ErrNotConnected
	}
	return nil
}

// ConnectionInfo returns the provider, mode and connected flag. Adapters
// override it to add details such as host or path.
func (b *Base) ConnectionInfo() ConnectionInfo {
	return b.Info(nil)
}

// Info builds a ConnectionInfo with adapter-specific details.
func (b *Base) Info(details map[string]any) ConnectionInfo {
	return ConnectionInfo{
		Provider:  b.provider,
		Mode:      b.mode,
		Connected: b.IsConnected(),
		Details:   details,
	}
}

func (b *Base) SupportedFilterOperators() []FilterOperator {
	return DefaultFilterOperators()
}

// ListDatabases returns an empty list for providers without databases.
func (b *Base) ListDatabases(ctx context.Context) ([]string, error) {
	if err := b.Guard(); err != nil {
		return nil, err
	}
	return []string{}, nil
}

// EmbedTexts embeds texts for collection on behalf of conn, resolving the
// model through ResolveEmbeddingModel. It fails with ErrUnknownEmbeddingModel
// when no embedder is configured or no model can be determined.
func (b *Base) EmbedTexts(ctx context.Context, conn Connection, collection string, texts []string) ([][]float32, error) {
	if b.embedder == nil {
		return nil, ErrUnknownEmbeddingModel
	}
	model := ResolveEmbeddingModel(ctx, conn, b.models, b.profileID, collection)
	if model == "" {
		model = b.embedder.DefaultModel()
	}
	if model == "" {
		return nil, ErrUnknownEmbeddingModel
	}
	vecs, err := b.embedder.Embed(ctx, model, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, ErrLengthMismatch
	}
	return vecs, nil
}

// PrepareAdd validates in and fills ids and embeddings. The returned request
// always has IDs, Metadatas and Embeddings of the same length as Documents.
func (b *Base) PrepareAdd(ctx context.Context, conn Connection, collection string, in AddRequest) (AddRequest, error) {
	if err := ValidateAdd(in); err != nil {
		return AddRequest{}, err
	}
	out := AddRequest{
		IDs:        in.IDs,
		Documents:  in.Documents,
		Metadatas:  in.Metadatas,
		Embeddings: in.Embeddings,
	}
	if out.IDs == nil {
		out.IDs = GenerateIDs(len(out.Documents))
	}
	if out.Metadatas == nil {
		out.Metadatas = make([]map[string]any, len(out.Documents))
	}
	for i := range out.Metadatas {
		if out.Metadatas[i] == nil {
			out.Metadatas[i] = map[string]any{}
		}
	}
	if out.Embeddings == nil {
		vecs, err := b.EmbedTexts(ctx, conn, collection, out.Documents)
		if err != nil {
			return AddRequest{}, err
		}
		out.Embeddings = vecs
	}
	return out, nil
}

// QueryVector validates q and returns the vector to search with, embedding
// the query text when needed.
func (b *Base) QueryVector(ctx context.Context, conn Connection, collection string, q QueryRequest) ([]float32, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}
	if q.Embedding != nil {
		return q.Embedding, nil
	}
	vecs, err := b.EmbedTexts(ctx, conn, collection, []string{q.Text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// ReembedUpdated fills UpdateRequest.Embeddings for items whose document
// changed when no embeddings were supplied. When no model can be resolved the
// request is returned unchanged and existing vectors are kept.
func (b *Base) ReembedUpdated(ctx context.Context, conn Connection, collection string, in UpdateRequest) UpdateRequest {
	if in.Embeddings != nil || in.Documents == nil {
		return in
	}
	var (
		texts []string
		index []int
	)
	for i, d := range in.Documents {
		if d != nil {
			texts = append(texts, *d)
			index = append(index, i)
		}
	}
	if len(texts) == 0 {
		return in
	}
	vecs, err := b.EmbedTexts(ctx, conn, collection, texts)
	if err != nil {
		return in
	}
	in.Embeddings = make([][]float32, len(in.IDs))
	for j, i := range index {
		in.Embeddings[i] = vecs[j]
	}
	return in
}
