package vectordb

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeMetadata parses a JSON object keeping integer values as int64.
// Numbers with a fraction or exponent, or integers outside the int64 range,
// become float64.
func DecodeMetadata(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := DecodeJSON(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// DecodeJSON unmarshals data into v with integer preserving number
// handling for every interface{} value in v.
func DecodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	NormalizeNumbers(v)
	return nil
}

// NormalizeNumbers replaces json.Number values reachable from v in place.
// v may be a map, a slice or a pointer to either.
func NormalizeNumbers(v any) {
	switch t := v.(type) {
	case *map[string]any:
		if t != nil {
			NormalizeNumbers(*t)
		}
	case *[]any:
		if t != nil {
			NormalizeNumbers(*t)
		}
	case *any:
		if t != nil {
			*t = NumberValue(*t)
		}
	case map[string]any:
		for k, val := range t {
			t[k] = NumberValue(val)
		}
	case []any:
		for i := range t {
			t[i] = NumberValue(t[i])
		}
	}
}

// NumberValue converts a json.Number to int64 when integral and to float64
// otherwise, descending into maps and slices.
func NumberValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any, []any:
		NormalizeNumbers(t)
		return t
	default:
		return v
	}
}
