package exchange

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

const (
	columnID        = "id"
	columnDocument  = "document"
	columnEmbedding = "embedding"

	// MetadataPrefix prefixes flattened metadata columns.
	MetadataPrefix = "metadata_"
)

// WriteCSV writes one row per item with columns id, document, one
// metadata_<key> column per metadata key (sorted) and, when
// includeEmbeddings is set and the batch has vectors, a JSON-encoded
// embedding column. Missing values are empty cells.
func WriteCSV(w io.Writer, b *vectordb.ItemBatch, includeEmbeddings bool) error {
	keys := vectordb.MetadataFields(b)
	withEmbeddings := includeEmbeddings && b.HasEmbeddings()

	header := []string{columnID, columnDocument}
	for _, k := range keys {
		header = append(header, MetadataPrefix+k)
	}
	if withEmbeddings {
		header = append(header, columnEmbedding)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, it := range b.Items() {
		row := make([]string, 0, len(header))
		row = append(row, it.ID, deref(it.Document))
		for _, k := range keys {
			cell, err := formatCell(it.Metadata, k)
			if err != nil {
				return err
			}
			row = append(row, cell)
		}
		if withEmbeddings {
			cell := ""
			if len(it.Embedding) > 0 {
				raw, err := json.Marshal(it.Embedding)
				if err != nil {
					return err
				}
				cell = string(raw)
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file written by WriteCSV. Cell types are inferred:
// integers, floats and booleans become numbers and bools, JSON objects and
// arrays are decoded, everything else stays a string. Empty metadata cells
// are omitted.
func ReadCSV(r io.Reader) (*vectordb.ItemBatch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return vectordb.NewItemBatch(0, false), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	idCol := slices.Index(header, columnID)
	if idCol < 0 {
		return nil, ErrMissingIDColumn
	}
	docCol := slices.Index(header, columnDocument)
	embCol := slices.Index(header, columnEmbedding)

	var items []vectordb.Item
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		it := vectordb.Item{ID: cell(row, idCol), Metadata: map[string]any{}}
		if docCol >= 0 {
			doc := cell(row, docCol)
			it.Document = &doc
		}
		for i, name := range header {
			key, ok := strings.CutPrefix(name, MetadataPrefix)
			if !ok || cell(row, i) == "" {
				continue
			}
			it.Metadata[key] = parseCell(cell(row, i))
		}
		if raw := cell(row, embCol); raw != "" {
			if err := json.Unmarshal([]byte(raw), &it.Embedding); err != nil {
				return nil, fmt.Errorf("%w: line %d: embedding: %w", ErrMalformed, line, err)
			}
		}
		items = append(items, it)
	}
	return vectordb.BatchFromItems(items, embCol >= 0), nil
}

func formatCell(md map[string]any, key string) (string, error) {
	v, ok := md[key]
	if !ok || v == nil {
		return "", nil
	}
	switch v.(type) {
	case map[string]any, []any, []string, []float64, []float32, []int:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return vectordb.FormatValue(v), nil
	}
}

func parseCell(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !isSpecialFloat(s) {
		return f
	}
	switch s {
	case "true", "True":
		return true
	case "false", "False":
		return false
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		var v any
		if err := vectordb.DecodeJSON([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// isSpecialFloat matches NaN and infinity spellings, which stay strings.
func isSpecialFloat(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(l, "nan") || strings.Contains(l, "inf")
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
