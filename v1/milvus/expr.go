package milvus

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// compileExpr turns a filter into a Milvus boolean expression over the JSON
// metadata field. ok is false when a condition has no expression form and
// the filter must be evaluated locally.
func compileExpr(fs *vectordb.FilterSet) (string, bool) {
	if fs.IsEmpty() {
		return "", true
	}
	var parts []string
	if fs.Must != nil {
		for _, c := range fs.Must.Conditions {
			e, ok := condExpr(c)
			if !ok {
				return "", false
			}
			parts = append(parts, e)
		}
	}
	if fs.Should != nil && len(fs.Should.Conditions) > 0 {
		var alts []string
		for _, c := range fs.Should.Conditions {
			e, ok := condExpr(c)
			if !ok {
				return "", false
			}
			alts = append(alts, e)
		}
		parts = append(parts, "("+strings.Join(alts, " or ")+")")
	}
	if fs.MustNot != nil {
		for _, c := range fs.MustNot.Conditions {
			e, ok := condExpr(c)
			if !ok {
				return "", false
			}
			parts = append(parts, "not ("+e+")")
		}
	}
	return strings.Join(parts, " and "), true
}

func condExpr(c vectordb.FilterCondition) (string, bool) {
	switch cond := c.(type) {
	case *vectordb.MatchCondition:
		lit, ok := literal(cond.Value)
		if !ok {
			return "", false
		}
		return jsonKey(cond.Field) + " == " + lit, true
	case *vectordb.MatchAnyCondition:
		list, ok := literalList(cond.Values)
		if !ok {
			return "", false
		}
		return jsonKey(cond.Field) + " in " + list, true
	case *vectordb.MatchExceptCondition:
		list, ok := literalList(cond.Values)
		if !ok {
			return "", false
		}
		return jsonKey(cond.Field) + " not in " + list, true
	case *vectordb.NumericRangeCondition:
		key := jsonKey(cond.Field)
		var bounds []string
		if cond.Range.Gt != nil {
			bounds = append(bounds, key+" > "+formatFloat(*cond.Range.Gt))
		}
		if cond.Range.Gte != nil {
			bounds = append(bounds, key+" >= "+formatFloat(*cond.Range.Gte))
		}
		if cond.Range.Lt != nil {
			bounds = append(bounds, key+" < "+formatFloat(*cond.Range.Lt))
		}
		if cond.Range.Lte != nil {
			bounds = append(bounds, key+" <= "+formatFloat(*cond.Range.Lte))
		}
		if len(bounds) == 0 {
			return "", false
		}
		return "(" + strings.Join(bounds, " and ") + ")", true
	case *vectordb.NestedCondition:
		if cond.Filter.IsEmpty() {
			return "", false
		}
		e, ok := compileExpr(cond.Filter)
		if !ok {
			return "", false
		}
		return "(" + e + ")", true
	default:
		return "", false
	}
}

func jsonKey(field string) string {
	return fmt.Sprintf("%s[%s]", FieldMetadata, strconv.Quote(field))
}

// literal renders a scalar in expression syntax.
func literal(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float32:
		return formatFloat(float64(t)), true
	case float64:
		return formatFloat(t), true
	case time.Time:
		return strconv.Quote(t.UTC().Format(time.RFC3339)), true
	default:
		return "", false
	}
}

func literalList(values []any) (string, bool) {
	lits := make([]string, 0, len(values))
	for _, v := range values {
		l, ok := literal(v)
		if !ok {
			return "", false
		}
		lits = append(lits, l)
	}
	return "[" + strings.Join(lits, ", ") + "]", true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// idsExpr selects rows by primary key.
func idsExpr(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return FieldID + " in [" + strings.Join(quoted, ", ") + "]"
}
