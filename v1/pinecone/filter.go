package pinecone

import "github.com/Aleph-Alpha/vectorinspector/v1/vectordb"

// compileFilter converts a filter into Pinecone's metadata filter language.
// ok is false when a condition has no equivalent, in which case the whole
// filter is evaluated locally.
func compileFilter(fs *vectordb.FilterSet) (map[string]any, bool) {
	if fs.IsEmpty() {
		return nil, true
	}
	var clauses []map[string]any
	if fs.Must != nil {
		for _, c := range fs.Must.Conditions {
			f, ok := compileCondition(c)
			if !ok {
				return nil, false
			}
			clauses = append(clauses, f)
		}
	}
	if fs.Should != nil && len(fs.Should.Conditions) > 0 {
		var alts []map[string]any
		for _, c := range fs.Should.Conditions {
			f, ok := compileCondition(c)
			if !ok {
				return nil, false
			}
			alts = append(alts, f)
		}
		if len(alts) == 1 {
			clauses = append(clauses, alts[0])
		} else {
			clauses = append(clauses, map[string]any{"$or": alts})
		}
	}
	if fs.MustNot != nil {
		for _, c := range fs.MustNot.Conditions {
			var f map[string]any
			switch cond := c.(type) {
			case *vectordb.MatchCondition:
				f = field(cond.Field, map[string]any{"$ne": cond.Value})
			case *vectordb.MatchAnyCondition:
				f = field(cond.Field, map[string]any{"$nin": cond.Values})
			case *vectordb.MatchExceptCondition:
				f = field(cond.Field, map[string]any{"$in": cond.Values})
			default:
				return nil, false
			}
			clauses = append(clauses, f)
		}
	}
	if len(clauses) == 1 {
		return clauses[0], true
	}
	return map[string]any{"$and": clauses}, true
}

func compileCondition(c vectordb.FilterCondition) (map[string]any, bool) {
	switch cond := c.(type) {
	case *vectordb.MatchCondition:
		return field(cond.Field, map[string]any{"$eq": cond.Value}), true
	case *vectordb.MatchAnyCondition:
		return field(cond.Field, map[string]any{"$in": cond.Values}), true
	case *vectordb.MatchExceptCondition:
		return field(cond.Field, map[string]any{"$nin": cond.Values}), true
	case *vectordb.NumericRangeCondition:
		ops := map[string]any{}
		if cond.Range.Gt != nil {
			ops["$gt"] = *cond.Range.Gt
		}
		if cond.Range.Gte != nil {
			ops["$gte"] = *cond.Range.Gte
		}
		if cond.Range.Lt != nil {
			ops["$lt"] = *cond.Range.Lt
		}
		if cond.Range.Lte != nil {
			ops["$lte"] = *cond.Range.Lte
		}
		if len(ops) == 0 {
			return nil, false
		}
		return field(cond.Field, ops), true
	case *vectordb.NestedCondition:
		if cond.Filter.IsEmpty() {
			return nil, false
		}
		return compileFilter(cond.Filter)
	default:
		return nil, false
	}
}

func field(name string, ops map[string]any) map[string]any {
	return map[string]any{name: ops}
}
