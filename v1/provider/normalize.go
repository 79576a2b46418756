package provider

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Provider spellings accepted by NormalizeItem in addition to the known tags.
// Weaviate is read-only here: items exported from it carry a nested payload.
const (
	providerChromaAlias = "chroma"
	providerWeaviate    = "weaviate"
)

// NormalizeItem returns a deep copy of item reshaped to the common form for
// the given provider. The input is never mutated, and normalizing an already
// normalized item is a no-op.
//
//   - qdrant: top-level string metadata values holding a decimal number become float64
//   - chromadb: a "metadatas" key is exposed as "metadata" when the latter is absent
//   - weaviate: a nested "payload" map is flattened into the item and removed
//   - pinecone: a non-string "id" is stringified
func NormalizeItem(item map[string]any, provider string) map[string]any {
	out := vectordb.CloneMap(item)
	if out == nil {
		return map[string]any{}
	}

	switch strings.ToLower(provider) {
	case string(vectordb.ProviderQdrant):
		if md, ok := out["metadata"].(map[string]any); ok {
			for k, v := range md {
				if s, ok := v.(string); ok {
					if f, ok := parseDecimal(s); ok {
						md[k] = f
					}
				}
			}
		}
	case string(vectordb.ProviderChroma), providerChromaAlias:
		if _, ok := out["metadata"]; !ok {
			if md, ok := out["metadatas"]; ok {
				out["metadata"] = md
			}
		}
	case providerWeaviate:
		if payload, ok := out["payload"].(map[string]any); ok {
			delete(out, "payload")
			for k, v := range payload {
				out[k] = v
			}
		}
	case string(vectordb.ProviderPinecone):
		if id, ok := out["id"]; ok && id != nil {
			if _, isString := id.(string); !isString {
				out["id"] = fmt.Sprint(id)
			}
		}
	}
	return out
}

// parseDecimal accepts signed decimal and exponent notation plus inf and nan,
// surrounded by optional whitespace. Hex floats and digit separators stay
// strings.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "_xX") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NormalizeBatch applies NormalizeItem to every element.
func NormalizeBatch(items []map[string]any, provider string) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = NormalizeItem(it, provider)
	}
	return out
}

// ProviderType returns the tag of conn. ok is false for a nil connection or
// an unknown tag.
func ProviderType(conn vectordb.Connection) (tag vectordb.ProviderTag, ok bool) {
	if conn == nil {
		return "", false
	}
	tag = conn.ProviderTag()
	if !tag.Valid() {
		return "", false
	}
	return tag, true
}
