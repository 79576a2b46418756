package chroma

import (
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// compileWhere converts a filter into a Chroma where document. ok is false
// when some condition has no Chroma equivalent; the caller then evaluates
// the whole filter client side.
func compileWhere(fs *vectordb.FilterSet) (where map[string]any, ok bool) {
	if fs.IsEmpty() {
		return nil, true
	}
	clauses, ok := compileClauses(fs)
	if !ok {
		return nil, false
	}
	return and(clauses), true
}

func compileClauses(fs *vectordb.FilterSet) ([]map[string]any, bool) {
	var clauses []map[string]any

	if fs.Must != nil {
		for _, c := range fs.Must.Conditions {
			w, ok := compileCondition(c)
			if !ok {
				return nil, false
			}
			clauses = append(clauses, w)
		}
	}
	if fs.Should != nil && len(fs.Should.Conditions) > 0 {
		alts := make([]map[string]any, 0, len(fs.Should.Conditions))
		for _, c := range fs.Should.Conditions {
			w, ok := compileCondition(c)
			if !ok {
				return nil, false
			}
			alts = append(alts, w)
		}
		clauses = append(clauses, or(alts))
	}
	if fs.MustNot != nil {
		for _, c := range fs.MustNot.Conditions {
			w, ok := compileNegated(c)
			if !ok {
				return nil, false
			}
			clauses = append(clauses, w)
		}
	}
	return clauses, true
}

func compileCondition(c vectordb.FilterCondition) (map[string]any, bool) {
	switch cond := c.(type) {
	case *vectordb.MatchCondition:
		return op(cond.Field, "$eq", cond.Value), true
	case *vectordb.MatchAnyCondition:
		return op(cond.Field, "$in", cond.Values), true
	case *vectordb.MatchExceptCondition:
		return op(cond.Field, "$nin", cond.Values), true
	case *vectordb.NumericRangeCondition:
		var parts []map[string]any
		if cond.Range.Gt != nil {
			parts = append(parts, op(cond.Field, "$gt", *cond.Range.Gt))
		}
		if cond.Range.Gte != nil {
			parts = append(parts, op(cond.Field, "$gte", *cond.Range.Gte))
		}
		if cond.Range.Lt != nil {
			parts = append(parts, op(cond.Field, "$lt", *cond.Range.Lt))
		}
		if cond.Range.Lte != nil {
			parts = append(parts, op(cond.Field, "$lte", *cond.Range.Lte))
		}
		if len(parts) == 0 {
			return nil, false
		}
		return and(parts), true
	case *vectordb.NestedCondition:
		if cond.Filter.IsEmpty() {
			return nil, false
		}
		clauses, ok := compileClauses(cond.Filter)
		if !ok {
			return nil, false
		}
		return and(clauses), true
	default:
		// Time ranges, null checks and substring matches are evaluated
		// client side.
		return nil, false
	}
}

func compileNegated(c vectordb.FilterCondition) (map[string]any, bool) {
	switch cond := c.(type) {
	case *vectordb.MatchCondition:
		return op(cond.Field, "$ne", cond.Value), true
	case *vectordb.MatchAnyCondition:
		return op(cond.Field, "$nin", cond.Values), true
	case *vectordb.MatchExceptCondition:
		return op(cond.Field, "$in", cond.Values), true
	default:
		return nil, false
	}
}

func op(field, operator string, value any) map[string]any {
	return map[string]any{field: map[string]any{operator: value}}
}

// and collapses single clauses since Chroma rejects $and with fewer than
// two operands.
func and(clauses []map[string]any) map[string]any {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return map[string]any{"$and": clauses}
}

func or(clauses []map[string]any) map[string]any {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return map[string]any{"$or": clauses}
}
