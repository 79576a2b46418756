// Package chroma implements vectordb.Connection for Chroma.
//
// [New] returns the remote adapter, built on the chroma-go v2 HTTP client and
// scoped to one tenant and database. [NewLocal] returns a file-based store
// for the persistent and ephemeral modes.
//
//	conn := chroma.New(chroma.Config{Host: "localhost", Port: 8000}, log, observer)
//	if !conn.Connect(ctx) {
//	    return errors.New("chroma unreachable")
//	}
//	defer conn.Disconnect(ctx)
//
// Data calls go through collection handles; the adapter keeps a name to
// handle cache that is refreshed when the server answers not found.
// Vectors always travel with the request, so the handles carry an embedding
// function that refuses to embed.
//
// Chroma's l2 space returns squared distances and its ip space returns
// 1 - inner product. Query converts both back, so Euclidean results are
// plain L2 distances and Dot results are the raw inner product.
//
// Match, MatchAny, MatchExcept, numeric ranges and nested filters are
// compiled into a where document. When a filter uses anything else the
// whole filter is evaluated locally: scans fetch up to
// [vectordb.DefaultScanCap] records and queries over-fetch neighbours
// before filtering.
package chroma
