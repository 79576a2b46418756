// Package milvus implements vectordb.Connection for Milvus using the v2 Go
// client.
//
// Every collection shares one schema: a VARCHAR primary key "id", a VARCHAR
// "document", a JSON "metadata" field and a FLOAT_VECTOR "embedding" with an
// IVF_FLAT index (nlist 128 by default). Collections are loaded on first
// use.
//
// Updates delete the affected rows and insert the merged rows again, so
// fields left out of the update keep their stored values.
//
// Filters compile into boolean expressions over the metadata JSON field,
// e.g. metadata["lang"] == "en". Contains, null and time conditions are
// evaluated locally.
//
// COSINE scores are reported as 1 - similarity and L2 scores, which Milvus
// returns squared, as plain L2 distances. IP scores are the inner product.
package milvus
