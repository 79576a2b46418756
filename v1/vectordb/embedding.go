package vectordb

import "context"

// EmbeddingModelKey is the metadata key some tools use to record the model
// that produced an item's vector.
const EmbeddingModelKey = "_embedding_model"

// ResolveEmbeddingModel finds the embedding model for a collection. It checks,
// in order, the collection info, the metadata of the first stored item and
// the user settings for (profileID, collection). It returns "" when nothing
// is configured. Lookup failures are treated as "not found".
func ResolveEmbeddingModel(ctx context.Context, conn Connection, lookup ModelLookup, profileID, collection string) string {
	if conn != nil {
		if info, err := conn.GetCollectionInfo(ctx, collection); err == nil && info != nil && info.EmbeddingModel != "" {
			return info.EmbeddingModel
		}
		if sample, err := conn.GetAllItems(ctx, collection, ScanOptions{Limit: 1}); err == nil && sample.Len() > 0 {
			if model, ok := sample.Metadatas[0][EmbeddingModelKey].(string); ok && model != "" {
				return model
			}
		}
	}
	if lookup != nil {
		if model, ok := lookup.EmbeddingModel(profileID, collection); ok {
			return model
		}
	}
	return ""
}
