// Package vectordb defines the provider-agnostic contract of the inspector:
// the Connection interface every backend adapter implements, the item and
// result shapes they exchange, and a metadata filter language.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│        provider.Manager / browse.Loader / cmd               │
//	│     (uses vectordb.Connection - no DB-specific imports)     │
//	└──────────────────────────┬──────────────────────────────────┘
//	                           │
//	                           ▼
//	┌─────────────────────────────────────────────────────────────┐
//	│                   vectordb.Connection                       │
//	│       (interface + Base state machine + shared types)       │
//	└──────────────────────────┬──────────────────────────────────┘
//	                           │
//	   ┌────────┬────────┬─────┴────┬─────────┬─────────┐
//	   ▼        ▼        ▼          ▼         ▼         ▼
//	 chroma   qdrant  pinecone  pgvector   lancedb   milvus
//
// # State machine
//
// A connection starts unconnected. Connect moves it to connected (idempotent)
// and Disconnect moves it to disconnected. Data operations on a connection
// that is not connected return ErrNotConnected without touching the backend.
// Adapters get this behaviour by embedding *Base and calling Guard.
//
// # Items
//
// Reads return an ItemBatch: parallel ids, documents, metadatas and optional
// embeddings. Query returns a SearchResult, which adds distances ordered from
// closest to farthest. Cosine distance is 1 - similarity, euclidean distance
// is the L2 norm and dot "distance" is the raw inner product.
//
// # Filters
//
// Metadata filters are expressed as a FilterSet (Must/Should/MustNot). They
// can be built with constructors or parsed from a where map:
//
//	fs, err := vectordb.ParseWhere(map[string]any{
//	    "category": "news",
//	    "score":    map[string]any{"$gte": 0.5},
//	})
//
//	| Type                  | Description                  | where operator          |
//	|-----------------------|------------------------------|-------------------------|
//	| MatchCondition        | Exact value match            | bare value, $eq, $ne    |
//	| MatchAnyCondition     | Value in set                 | $in                     |
//	| MatchExceptCondition  | Value not in set             | $nin                    |
//	| NumericRangeCondition | Numeric range                | $gt $gte $lt $lte       |
//	| TimeRangeCondition    | Datetime range               | (constructor only)      |
//	| IsNullCondition       | Field is null                | (constructor only)      |
//	| IsEmptyCondition      | Field is empty/null/missing  | (constructor only)      |
//	| ContainsCondition     | Substring match              | $contains $not_contains |
//	| NestedCondition       | Grouped sub-filter           | $and, $or               |
//
// FilterSet.Matches evaluates a filter in memory; it is the reference for
// local engines and for conditions a backend cannot evaluate itself.
package vectordb
