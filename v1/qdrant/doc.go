// Package qdrant implements vectordb.Connection for Qdrant.
//
// Two flavours are available. [New] returns the remote adapter, which talks
// gRPC through the official Go client; [NewLocal] returns a file-based store
// for the persistent and ephemeral modes.
//
// # Basic Usage
//
//	conn := qdrant.New(qdrant.FromEndpoint("localhost").WithPort(6334), log, observer,
//	    vectordb.WithEmbedder(embedder),
//	)
//	if !conn.Connect(ctx) {
//	    return errors.New("qdrant unreachable")
//	}
//	defer conn.Disconnect(ctx)
//
//	res, err := conn.Query(ctx, "documents", vectordb.QueryRequest{
//	    Text:     "quarterly revenue",
//	    NResults: 5,
//	})
//
// A configured REST port (6333) is replaced by the gRPC port with a warning.
//
// # Point IDs
//
// Qdrant only accepts unsigned integers and UUIDs as point ids. Other ids are
// hashed into a UUIDv5 and the original id is stored in the "_original_id"
// payload key, which is stripped again on read. The document text lives in
// the "document" payload key; every other key is metadata.
//
// # Distances
//
// Query reports distances, not scores. Cosine similarities are returned as
// 1 - similarity, Euclid distances unchanged and Dot products as the raw
// inner product.
//
// # Filtering
//
// Filters are defined in the [vectordb] package and are converted to native
// Qdrant filters:
//
//	filter := vectordb.NewFilterSet(
//	    vectordb.Must(
//	        vectordb.NewMatch("city", "London"),
//	        vectordb.NewNumericRange("price", vectordb.NumericRange{Lte: &maxPrice}),
//	    ),
//	    vectordb.MustNot(vectordb.NewMatch("status", "deleted")),
//	)
//
// Contains conditions map to Qdrant text matches. Nested filter sets become
// nested filter conditions.
package qdrant
