package vectordb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Matches evaluates the filter against a metadata map. A nil filter matches
// everything. Local engines use it directly and remote adapters use it for
// conditions their backend cannot evaluate.
func (fs *FilterSet) Matches(metadata map[string]any) bool {
	if fs == nil {
		return true
	}
	if fs.Must != nil {
		for _, c := range fs.Must.Conditions {
			if !conditionMatches(c, metadata) {
				return false
			}
		}
	}
	if clauseLen(fs.Should) > 0 {
		matched := false
		for _, c := range fs.Should.Conditions {
			if conditionMatches(c, metadata) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if fs.MustNot != nil {
		for _, c := range fs.MustNot.Conditions {
			if conditionMatches(c, metadata) {
				return false
			}
		}
	}
	return true
}

// ApplyFilter keeps the items of b whose metadata matches fs.
func ApplyFilter(b *ItemBatch, fs *FilterSet) *ItemBatch {
	if fs.IsEmpty() || b == nil {
		return b
	}
	out := NewItemBatch(b.Len(), b.HasEmbeddings())
	for i := 0; i < b.Len(); i++ {
		if fs.Matches(b.Metadatas[i]) {
			out.Append(b.Item(i))
		}
	}
	return out
}

func conditionMatches(c FilterCondition, md map[string]any) bool {
	switch t := c.(type) {
	case *MatchCondition:
		v, ok := md[t.Field]
		return ok && valueMatches(v, t.Value)
	case *MatchAnyCondition:
		v, ok := md[t.Field]
		if !ok {
			return false
		}
		for _, want := range t.Values {
			if valueMatches(v, want) {
				return true
			}
		}
		return false
	case *MatchExceptCondition:
		v, ok := md[t.Field]
		if !ok {
			return true
		}
		for _, want := range t.Values {
			if valueMatches(v, want) {
				return false
			}
		}
		return true
	case *NumericRangeCondition:
		f, ok := toFloat(md[t.Field])
		if !ok {
			return false
		}
		r := t.Range
		return (r.Gt == nil || f > *r.Gt) &&
			(r.Gte == nil || f >= *r.Gte) &&
			(r.Lt == nil || f < *r.Lt) &&
			(r.Lte == nil || f <= *r.Lte)
	case *TimeRangeCondition:
		ts, ok := toTime(md[t.Field])
		if !ok {
			return false
		}
		r := t.Range
		return (r.Gt == nil || ts.After(*r.Gt)) &&
			(r.Gte == nil || !ts.Before(*r.Gte)) &&
			(r.Lt == nil || ts.Before(*r.Lt)) &&
			(r.Lte == nil || !ts.After(*r.Lte))
	case *IsNullCondition:
		v, ok := md[t.Field]
		return ok && v == nil
	case *IsEmptyCondition:
		return isEmptyValue(md[t.Field])
	case *ContainsCondition:
		v, ok := md[t.Field]
		found := ok && v != nil && strings.Contains(fmt.Sprint(v), t.Substring)
		if t.Negate {
			return !found
		}
		return found
	case *NestedCondition:
		return t.Filter.Matches(md)
	default:
		return false
	}
}

// valueMatches compares a stored value with a filter value. Numbers compare
// by value across Go types and slices match when any element matches.
func valueMatches(stored, want any) bool {
	switch s := stored.(type) {
	case []any:
		for _, el := range s {
			if valueMatches(el, want) {
				return true
			}
		}
		return false
	case []string:
		for _, el := range s {
			if valueMatches(el, want) {
				return true
			}
		}
		return false
	}
	if sf, ok := toFloat(stored); ok {
		if wf, ok := toFloat(want); ok {
			return sf == wf
		}
		return false
	}
	return stored == want
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		ts, err := time.Parse(time.RFC3339, t)
		return ts, err == nil
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	}
	return time.Time{}, false
}

// FormatValue renders a scalar for providers whose filter syntax is textual.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
