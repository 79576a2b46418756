package cache

import (
	"slices"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Key addresses one cache slot. Database is the connection id for providers
// without a database concept.
type Key struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// Entry is the browsing and search state remembered for one collection.
type Entry struct {
	Data      *vectordb.ItemBatch `json:"data,omitempty"`
	Timestamp time.Time           `json:"timestamp"`

	ScrollPosition  int   `json:"scroll_position"`
	SelectedIndices []int `json:"selected_indices,omitempty"`

	SearchQuery   string                 `json:"search_query,omitempty"`
	SearchFilters map[string]any         `json:"search_filters,omitempty"`
	SearchResults *vectordb.SearchResult `json:"search_results,omitempty"`

	UserInputs map[string]any `json:"user_inputs,omitempty"`
}

// Clone deep-copies the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Data = e.Data.Clone()
	out.SelectedIndices = slices.Clone(e.SelectedIndices)
	out.SearchFilters = vectordb.CloneMap(e.SearchFilters)
	out.SearchResults = e.SearchResults.Clone()
	out.UserInputs = vectordb.CloneMap(e.UserInputs)
	return &out
}

// decodeEntry parses a stored entry. Integral numbers in metadata, filters
// and user inputs come back as int64 rather than float64.
func decodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := vectordb.DecodeJSON(data, &e); err != nil {
		return nil, err
	}
	if e.Data != nil {
		for _, md := range e.Data.Metadatas {
			vectordb.NormalizeNumbers(md)
		}
	}
	if e.SearchResults != nil {
		for _, md := range e.SearchResults.Metadatas {
			vectordb.NormalizeNumbers(md)
		}
	}
	vectordb.NormalizeNumbers(e.SearchFilters)
	vectordb.NormalizeNumbers(e.UserInputs)
	return &e, nil
}

// Fields is a partial update for Manager.Update. Nil fields are left as they are.
type Fields struct {
	Data            *vectordb.ItemBatch
	ScrollPosition  *int
	SelectedIndices *[]int
	SearchQuery     *string
	SearchFilters   map[string]any
	SearchResults   *vectordb.SearchResult
	UserInputs      map[string]any
}

func (f Fields) apply(e *Entry) {
	if f.Data != nil {
		e.Data = f.Data.Clone()
	}
	if f.ScrollPosition != nil {
		e.ScrollPosition = *f.ScrollPosition
	}
	if f.SelectedIndices != nil {
		e.SelectedIndices = slices.Clone(*f.SelectedIndices)
	}
	if f.SearchQuery != nil {
		e.SearchQuery = *f.SearchQuery
	}
	if f.SearchFilters != nil {
		e.SearchFilters = vectordb.CloneMap(f.SearchFilters)
	}
	if f.SearchResults != nil {
		e.SearchResults = f.SearchResults.Clone()
	}
	if f.UserInputs != nil {
		e.UserInputs = vectordb.CloneMap(f.UserInputs)
	}
}

// Info summarizes the cache for diagnostics.
type Info struct {
	Enabled    bool        `json:"enabled"`
	EntryCount int         `json:"entry_count"`
	Entries    []EntryInfo `json:"entries"`
}

// EntryInfo describes one cached slot without its payload.
type EntryInfo struct {
	Database         string    `json:"database"`
	Collection       string    `json:"collection"`
	Timestamp        time.Time `json:"timestamp"`
	HasData          bool      `json:"has_data"`
	HasSearchResults bool      `json:"has_search_results"`
}
