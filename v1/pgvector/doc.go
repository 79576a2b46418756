// Package pgvector implements vectordb.Connection for PostgreSQL with the
// pgvector extension.
//
// Each collection is a table in the public schema:
//
//	CREATE TABLE <name> (id TEXT PRIMARY KEY, document TEXT, metadata JSONB, embedding vector(N))
//
// with an ivfflat index whose operator class records the metric
// (vector_cosine_ops, vector_l2_ops or vector_ip_ops). Collections are
// discovered through information_schema as every table with a column of
// type vector, so tables created by other tools show up as well.
//
// Metadata filters compile to JSONB predicates. Equality uses containment
// (metadata @> '{"k": v}'), ranges cast numeric values and text search
// uses strpos. Collection names are validated as plain identifiers and
// always quoted.
//
// Driver errors are mapped onto the vectordb sentinels by [TranslateError]
// using the Postgres SQLSTATE codes.
package pgvector
