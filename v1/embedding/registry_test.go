package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Loads(t *testing.T) {
	r := DefaultRegistry()
	require.NotEmpty(t, r.All())
	assert.Equal(t, []int{384, 512, 768, 1024, 1536, 3072}, r.Dimensions())
}

func TestModelForDimension(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name       string
		dim        int
		multimodal bool
		wantName   string
		wantType   string
	}{
		{"exact single", 512, false, "openai/clip-vit-base-patch32", "clip"},
		{"prefers multimodal", 768, true, "openai/clip-vit-large-patch14", "clip"},
		{"first in order", 768, false, "all-mpnet-base-v2", "sentence-transformer"},
		{"no multimodal available", 384, true, "all-MiniLM-L6-v2", "sentence-transformer"},
		{"closest dimension", 400, false, "all-MiniLM-L6-v2", "sentence-transformer"},
		{"closest above", 1500, false, "text-embedding-3-small", "openai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, typ := r.ModelForDimension(tt.dim, tt.multimodal)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantType, typ)
		})
	}
}

func TestModelForDimension_EmptyRegistry(t *testing.T) {
	r, err := LoadRegistry([]byte("models: []"))
	require.NoError(t, err)

	name, typ := r.ModelForDimension(128, true)
	assert.Equal(t, DefaultModelName, name)
	assert.Equal(t, DefaultModelType, typ)

	_, ok := r.ClosestDimension(128)
	assert.False(t, ok)
}

func TestClosestDimension_TieGoesLow(t *testing.T) {
	r, err := LoadRegistry([]byte(`
models:
  - {name: a, type: t, dimension: 100}
  - {name: b, type: t, dimension: 200}
`))
	require.NoError(t, err)

	d, ok := r.ClosestDimension(150)
	require.True(t, ok)
	assert.Equal(t, 100, d)
}

func TestLookups(t *testing.T) {
	r := DefaultRegistry()

	m, ok := r.ByName("ALL-minilm-l6-v2")
	require.True(t, ok)
	assert.Equal(t, 384, m.Dimension)

	_, ok = r.ByName("unknown")
	assert.False(t, ok)

	assert.Len(t, r.ByType("clip"), 2)
	assert.Len(t, r.BySource("openai-api"), 3)
	assert.Len(t, r.ByDimension(1536), 2)

	found := r.Search("image")
	require.Len(t, found, 2)
	for _, m := range found {
		assert.True(t, m.IsMultimodal())
	}
}

func TestByDimension_ReturnsCopy(t *testing.T) {
	r := DefaultRegistry()
	models := r.ByDimension(512)
	models[0].Name = "changed"
	assert.Equal(t, "openai/clip-vit-base-patch32", r.ByDimension(512)[0].Name)
}

func TestLoadRegistry_Invalid(t *testing.T) {
	_, err := LoadRegistry([]byte("models: [{name: x}]"))
	assert.Error(t, err)

	_, err = LoadRegistry([]byte("models: {"))
	assert.Error(t, err)
}
