package localstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// CollectionSpec describes a collection in the catalog.
type CollectionSpec struct {
	Name      string            `yaml:"name"`
	Dimension int               `yaml:"dimension"`
	Distance  vectordb.Distance `yaml:"distance"`
	CreatedAt time.Time         `yaml:"created_at"`
	Metadata  map[string]string `yaml:"metadata,omitempty"`
}

type catalog struct {
	Collections []CollectionSpec `yaml:"collections"`
}

func loadCatalog(dir string) (*catalog, error) {
	data, err := os.ReadFile(filepath.Join(dir, CatalogFile))
	if errors.Is(err, os.ErrNotExist) {
		return &catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

func (c *catalog) save(dir string) error {
	sort.Slice(c.Collections, func(i, j int) bool {
		return c.Collections[i].Name < c.Collections[j].Name
	})
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, CatalogFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, CatalogFile))
}

func (c *catalog) find(name string) (CollectionSpec, bool) {
	for _, spec := range c.Collections {
		if spec.Name == name {
			return spec, true
		}
	}
	return CollectionSpec{}, false
}

func (c *catalog) put(spec CollectionSpec) {
	for i := range c.Collections {
		if c.Collections[i].Name == spec.Name {
			c.Collections[i] = spec
			return
		}
	}
	c.Collections = append(c.Collections, spec)
}

func (c *catalog) remove(name string) {
	out := c.Collections[:0]
	for _, spec := range c.Collections {
		if spec.Name != name {
			out = append(out, spec)
		}
	}
	c.Collections = out
}
