// Package pinecone implements vectordb.Connection for Pinecone.
//
// Indexes are exposed as collections and every data call is scoped to the
// configured namespace. Both planes go through the go-pinecone SDK: index
// management over REST and data calls over one gRPC index connection per
// index host, dialed on first use and closed by Disconnect.
//
// Documents are stored in the "document" metadata key and removed from the
// metadata again on read. Pinecone has no null metadata values, so nil
// entries are dropped on write.
//
// Full scans follow ListVectors pagination tokens and then fetch the ids in
// batches. Listings cannot be filtered, so filtered scans read up to
// [vectordb.DefaultScanCap] vectors and filter locally. Queries compile
// Match, MatchAny, MatchExcept, numeric ranges and nested filters into a
// Pinecone metadata filter and fall back to local filtering otherwise.
//
// Cosine scores are reported as 1 - score and euclidean scores, which
// Pinecone returns squared, as plain L2 distances.
package pinecone
