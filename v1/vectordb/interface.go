package vectordb

import "context"

// Connection is the capability contract every provider adapter implements.
// Adapters embed *Base, which supplies the state machine and defaults for
// ListDatabases, ConnectionInfo and SupportedFilterOperators.
//
// Every method except Connect, Disconnect and the descriptive accessors
// returns ErrNotConnected without doing I/O when the connection is not in
// StateConnected.
type Connection interface {
	// Connect opens the backend. It is idempotent and reports success.
	Connect(ctx context.Context) bool

	// Disconnect releases the backend. Further operations fail fast.
	Disconnect(ctx context.Context) error

	State() ConnectionState
	ProviderTag() ProviderTag
	ConnectionInfo() ConnectionInfo
	SupportedFilterOperators() []FilterOperator

	// ListDatabases returns the databases visible to the connection. Providers
	// without a database concept return an empty slice.
	ListDatabases(ctx context.Context) ([]string, error)

	ListCollections(ctx context.Context) ([]string, error)

	// CreateCollection creates an empty collection. distance accepts any
	// spelling understood by ParseDistance.
	CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error

	DeleteCollection(ctx context.Context, name string) error

	// AddItems inserts items. Missing embeddings are generated from the
	// documents with the collection's embedding model or the call fails with
	// ErrUnknownEmbeddingModel.
	AddItems(ctx context.Context, collection string, in AddRequest) error

	// UpdateItems partially updates items by id; omitted fields are preserved.
	UpdateItems(ctx context.Context, collection string, in UpdateRequest) error

	DeleteItems(ctx context.Context, collection string, ids []string) error

	// GetItems fetches items by id. Unknown ids are skipped.
	GetItems(ctx context.Context, collection string, ids []string) (*ItemBatch, error)

	// GetAllItems pages through a collection with a zero-based offset.
	GetAllItems(ctx context.Context, collection string, opts ScanOptions) (*ItemBatch, error)

	// Query runs a similarity search. Results are ordered from closest to
	// farthest.
	Query(ctx context.Context, collection string, q QueryRequest) (*SearchResult, error)

	Count(ctx context.Context, collection string) (int64, error)

	GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	// Embed returns one vector per text using model. An empty model selects
	// the embedder's default.
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)

	// DefaultModel returns the model used when none is resolved, or "".
	DefaultModel() string
}

// ModelLookup resolves user-configured embedding models per
// (connection profile, collection).
type ModelLookup interface {
	EmbeddingModel(profileID, collection string) (model string, ok bool)
}
