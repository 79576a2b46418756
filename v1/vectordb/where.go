package vectordb

import (
	"fmt"
	"sort"
)

// ParseWhere converts a where map into a FilterSet.
//
// Bare values mean equality. Operator maps accept $eq, $ne, $gt, $gte, $lt,
// $lte, $in, $nin, $contains and $not_contains. $and and $or take lists of
// where maps and may be nested. Several keys in one map are ANDed.
//
//	vectordb.ParseWhere(map[string]any{
//	    "source": "wiki",
//	    "year":   map[string]any{"$gte": 2020},
//	    "$or":    []any{map[string]any{"lang": "en"}, map[string]any{"lang": "de"}},
//	})
//
// A nil or empty map yields a nil FilterSet.
func ParseWhere(where map[string]any) (*FilterSet, error) {
	if len(where) == 0 {
		return nil, nil
	}
	fs := &FilterSet{}
	if err := parseWhereInto(fs, where); err != nil {
		return nil, err
	}
	if fs.IsEmpty() {
		return nil, nil
	}
	return fs, nil
}

func parseWhereInto(fs *FilterSet, where map[string]any) error {
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := where[key]
		switch key {
		case "$and":
			parts, err := whereList(key, value)
			if err != nil {
				return err
			}
			for _, part := range parts {
				if err := parseWhereInto(fs, part); err != nil {
					return err
				}
			}
		case "$or":
			parts, err := whereList(key, value)
			if err != nil {
				return err
			}
			group := make([]FilterCondition, 0, len(parts))
			for _, part := range parts {
				sub := &FilterSet{}
				if err := parseWhereInto(sub, part); err != nil {
					return err
				}
				group = append(group, collapse(sub))
			}
			if len(group) == 0 {
				continue
			}
			addMust(fs, NewNested(&FilterSet{Should: &ConditionSet{Conditions: group}}))
		default:
			if len(key) > 0 && key[0] == '$' {
				return fmt.Errorf("%w: unknown logical operator %q", ErrInvalidArgument, key)
			}
			if err := parseField(fs, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func whereList(op string, value any) ([]map[string]any, error) {
	list, ok := value.([]any)
	if !ok {
		if typed, ok := value.([]map[string]any); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("%w: %s expects a list", ErrInvalidArgument, op)
	}
	out := make([]map[string]any, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s elements must be objects", ErrInvalidArgument, op)
		}
		out = append(out, m)
	}
	return out, nil
}

// collapse returns the single condition of fs when it has exactly one Must
// condition, otherwise fs wrapped in a NestedCondition.
func collapse(fs *FilterSet) FilterCondition {
	if clauseLen(fs.Must) == 1 && clauseLen(fs.Should) == 0 && clauseLen(fs.MustNot) == 0 {
		return fs.Must.Conditions[0]
	}
	return NewNested(fs)
}

func addMust(fs *FilterSet, c FilterCondition) {
	if fs.Must == nil {
		fs.Must = &ConditionSet{}
	}
	fs.Must.Conditions = append(fs.Must.Conditions, c)
}

func addMustNot(fs *FilterSet, c FilterCondition) {
	if fs.MustNot == nil {
		fs.MustNot = &ConditionSet{}
	}
	fs.MustNot.Conditions = append(fs.MustNot.Conditions, c)
}

func parseField(fs *FilterSet, field string, value any) error {
	ops, ok := value.(map[string]any)
	if !ok {
		if !isScalar(value) {
			return fmt.Errorf("%w: field %q: unsupported value %T", ErrInvalidArgument, field, value)
		}
		addMust(fs, NewMatch(field, value))
		return nil
	}

	opNames := make([]string, 0, len(ops))
	for op := range ops {
		opNames = append(opNames, op)
	}
	sort.Strings(opNames)

	var (
		rng    NumericRange
		hasRng bool
	)
	for _, op := range opNames {
		arg := ops[op]
		switch op {
		case "$eq":
			if !isScalar(arg) {
				return fmt.Errorf("%w: field %q: $eq expects a scalar", ErrInvalidArgument, field)
			}
			addMust(fs, NewMatch(field, arg))
		case "$ne":
			if !isScalar(arg) {
				return fmt.Errorf("%w: field %q: $ne expects a scalar", ErrInvalidArgument, field)
			}
			addMustNot(fs, NewMatch(field, arg))
		case "$gt", "$gte", "$lt", "$lte":
			f, ok := toFloat(arg)
			if !ok {
				return fmt.Errorf("%w: field %q: %s expects a number", ErrInvalidArgument, field, op)
			}
			hasRng = true
			switch op {
			case "$gt":
				rng.Gt = &f
			case "$gte":
				rng.Gte = &f
			case "$lt":
				rng.Lt = &f
			case "$lte":
				rng.Lte = &f
			}
		case "$in", "$nin":
			values, ok := arg.([]any)
			if !ok {
				return fmt.Errorf("%w: field %q: %s expects a list", ErrInvalidArgument, field, op)
			}
			if err := checkHomogeneousTypes(values); err != nil {
				return fmt.Errorf("%w: field %q: %v", ErrInvalidArgument, field, err)
			}
			if op == "$in" {
				addMust(fs, &MatchAnyCondition{Field: field, Values: values})
			} else {
				addMust(fs, &MatchExceptCondition{Field: field, Values: values})
			}
		case "$contains", "$not_contains":
			s, ok := arg.(string)
			if !ok {
				return fmt.Errorf("%w: field %q: %s expects a string", ErrInvalidArgument, field, op)
			}
			addMust(fs, &ContainsCondition{Field: field, Substring: s, Negate: op == "$not_contains"})
		default:
			return fmt.Errorf("%w: field %q: unknown operator %q", ErrInvalidArgument, field, op)
		}
	}
	if hasRng {
		addMust(fs, NewNumericRange(field, rng))
	}
	return nil
}

func isScalar(v any) bool {
	if v == nil {
		return false
	}
	return getType(v) != ""
}
