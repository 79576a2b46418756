package embedding

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultModelName is suggested when no known model fits a dimension.
	DefaultModelName = "all-MiniLM-L6-v2"
	DefaultModelType = "sentence-transformer"
)

//go:embed models.yaml
var knownModels []byte

// ModelInfo describes a known embedding model.
type ModelInfo struct {
	Name          string `yaml:"name" json:"name"`
	Type          string `yaml:"type" json:"type"`
	Dimension     int    `yaml:"dimension" json:"dimension"`
	Modality      string `yaml:"modality" json:"modality"`
	Normalization string `yaml:"normalization" json:"normalization"`
	Source        string `yaml:"source" json:"source"`
	Description   string `yaml:"description" json:"description"`
}

// IsMultimodal reports whether the model embeds more than text.
func (m ModelInfo) IsMultimodal() bool {
	return m.Modality == "multimodal" || m.Type == "clip"
}

// Registry indexes known embedding models. It is read-only after loading
// and safe for concurrent use.
type Registry struct {
	models []ModelInfo
	byDim  map[int][]ModelInfo
	byName map[string]ModelInfo
}

// LoadRegistry parses a YAML document with a top-level "models" list.
func LoadRegistry(data []byte) (*Registry, error) {
	var doc struct {
		Models []ModelInfo `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("embedding: parse model registry: %w", err)
	}

	r := &Registry{
		byDim:  make(map[int][]ModelInfo),
		byName: make(map[string]ModelInfo),
	}
	for _, m := range doc.Models {
		if m.Name == "" || m.Dimension <= 0 {
			return nil, fmt.Errorf("embedding: invalid model entry %q", m.Name)
		}
		r.models = append(r.models, m)
		r.byDim[m.Dimension] = append(r.byDim[m.Dimension], m)
		r.byName[strings.ToLower(m.Name)] = m
	}
	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := LoadRegistry(knownModels)
	if err != nil {
		panic(err)
	}
	return r
})

// DefaultRegistry returns the registry of models bundled with the binary.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// ByDimension returns the models producing vectors of the given size, in
// registry order.
func (r *Registry) ByDimension(dim int) []ModelInfo {
	return slices.Clone(r.byDim[dim])
}

// ByName looks a model up case-insensitively.
func (r *Registry) ByName(name string) (ModelInfo, bool) {
	m, ok := r.byName[strings.ToLower(name)]
	return m, ok
}

func (r *Registry) ByType(typ string) []ModelInfo {
	return r.filter(func(m ModelInfo) bool { return m.Type == typ })
}

func (r *Registry) BySource(source string) []ModelInfo {
	return r.filter(func(m ModelInfo) bool { return m.Source == source })
}

// Search matches query case-insensitively against names and descriptions.
func (r *Registry) Search(query string) []ModelInfo {
	q := strings.ToLower(query)
	return r.filter(func(m ModelInfo) bool {
		return strings.Contains(strings.ToLower(m.Name), q) ||
			strings.Contains(strings.ToLower(m.Description), q)
	})
}

func (r *Registry) All() []ModelInfo {
	return slices.Clone(r.models)
}

// Dimensions returns every known dimension in ascending order.
func (r *Registry) Dimensions() []int {
	dims := make([]int, 0, len(r.byDim))
	for d := range r.byDim {
		dims = append(dims, d)
	}
	slices.Sort(dims)
	return dims
}

// ClosestDimension returns the known dimension nearest to target. Ties go
// to the smaller dimension.
func (r *Registry) ClosestDimension(target int) (int, bool) {
	dims := r.Dimensions()
	if len(dims) == 0 {
		return 0, false
	}
	best := dims[0]
	for _, d := range dims[1:] {
		if abs(d-target) < abs(best-target) {
			best = d
		}
	}
	return best, true
}

// ModelForDimension suggests a model name and type for vectors of size dim.
// Without an exact match the closest dimension is used. When several models
// fit and preferMultimodal is set, a multimodal model wins; otherwise the
// first in registry order. An empty registry yields DefaultModelName.
func (r *Registry) ModelForDimension(dim int, preferMultimodal bool) (name, typ string) {
	models := r.byDim[dim]
	if len(models) == 0 {
		if closest, ok := r.ClosestDimension(dim); ok {
			models = r.byDim[closest]
		}
	}
	if len(models) == 0 {
		return DefaultModelName, DefaultModelType
	}
	if preferMultimodal {
		for _, m := range models {
			if m.IsMultimodal() {
				return m.Name, m.Type
			}
		}
	}
	return models[0].Name, models[0].Type
}

func (r *Registry) filter(keep func(ModelInfo) bool) []ModelInfo {
	var out []ModelInfo
	for _, m := range r.models {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
