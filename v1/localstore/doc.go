// Package localstore is the embedded vector engine behind the file-based
// providers: LanceDB directories and the persistent or ephemeral modes of
// Chroma and Qdrant.
//
// A Store keeps every collection of a directory in one veclite database file
// plus a YAML catalog recording each collection's dimension, distance metric
// and free-form metadata. Items are stored as veclite records whose payload
// carries the original id, the document and the JSON-encoded metadata.
//
// Connection wraps a Store into a vectordb.Connection so that the adapters
// of those providers only add their naming and connection details:
//
//	conn := localstore.NewConnection(vectordb.ProviderLanceDB, localstore.Config{Path: "./lancedb"}, log, obs)
//	if !conn.Connect(ctx) {
//	    return errors.New("cannot open store")
//	}
//	defer conn.Disconnect(ctx)
//
// An empty Path opens an ephemeral store in a temporary directory that is
// removed on Disconnect.
package localstore
