// Package embedding turns text into vectors through an OpenAI-compatible
// inference service and knows which embedding models produce which vector
// sizes.
//
// # Client
//
// Client implements vectordb.Embedder on top of github.com/sashabaranov/go-openai.
// It is configured from the environment:
//
//	EMBEDDING_ENDPOINT              API root, e.g. http://localhost:8080/v1
//	EMBEDDING_API_KEY               bearer token, optional
//	EMBEDDING_HTTP_TIMEOUT_SECONDS  request timeout (default 30)
//	EMBEDDING_MODEL                 fallback model name
//
// Usage:
//
//	client, err := embedding.NewClient(embedding.NewConfig(), log, nil)
//	vecs, err := client.Embed(ctx, "text-embedding-3-small", []string{"hello"})
//
// Long inputs are split into batches of Config.BatchSize texts.
//
// # Registry
//
// Registry indexes the models listed in the bundled models.yaml by
// dimension, name, type and source. ModelForDimension suggests a model for
// a collection whose model is unknown:
//
//	name, typ := embedding.DefaultRegistry().ModelForDimension(512, true)
//	// "openai/clip-vit-base-patch32", "clip"
//
// # Fx
//
// FXModule provides *Client, vectordb.Embedder and *Registry. Without
// EMBEDDING_ENDPOINT the client and the embedder are nil and adapters fall
// back to requiring explicit embeddings.
package embedding
