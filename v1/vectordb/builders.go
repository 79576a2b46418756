package vectordb

import (
	"encoding/json"
	"fmt"
)

// ── FilterSet Constructors ───────────────────────────────────────────────────

// NewFilterSet creates a FilterSet with the given clauses.
//
// Example:
//
//	vectordb.NewFilterSet(
//	    vectordb.Must(vectordb.NewMatch("source", "wiki")),
//	    vectordb.MustNot(vectordb.NewContains("title", "draft")),
//	)
func NewFilterSet(clauses ...func(*FilterSet)) *FilterSet {
	fs := &FilterSet{}
	for _, clause := range clauses {
		clause(fs)
	}
	return fs
}

// Must creates a Must clause (AND logic) with the given conditions.
func Must(conditions ...FilterCondition) func(*FilterSet) {
	return func(fs *FilterSet) {
		fs.Must = &ConditionSet{Conditions: conditions}
	}
}

// Should creates a Should clause (OR logic) with the given conditions.
func Should(conditions ...FilterCondition) func(*FilterSet) {
	return func(fs *FilterSet) {
		fs.Should = &ConditionSet{Conditions: conditions}
	}
}

// MustNot creates a MustNot clause (NOT logic) with the given conditions.
func MustNot(conditions ...FilterCondition) func(*FilterSet) {
	return func(fs *FilterSet) {
		fs.MustNot = &ConditionSet{Conditions: conditions}
	}
}

// IsEmpty reports whether the filter has no conditions at all.
func (fs *FilterSet) IsEmpty() bool {
	if fs == nil {
		return true
	}
	return clauseLen(fs.Must) == 0 && clauseLen(fs.Should) == 0 && clauseLen(fs.MustNot) == 0
}

// HasClientSide reports whether any condition cannot be expressed server side
// by providers that lack substring matching.
func (fs *FilterSet) HasClientSide() bool {
	if fs == nil {
		return false
	}
	for _, cs := range []*ConditionSet{fs.Must, fs.Should, fs.MustNot} {
		if cs == nil {
			continue
		}
		for _, c := range cs.Conditions {
			switch t := c.(type) {
			case *ContainsCondition:
				return true
			case *NestedCondition:
				if t.Filter.HasClientSide() {
					return true
				}
			}
		}
	}
	return false
}

func clauseLen(cs *ConditionSet) int {
	if cs == nil {
		return 0
	}
	return len(cs.Conditions)
}

// ── Condition Constructors ───────────────────────────────────────────────────

func NewMatch(field string, value any) *MatchCondition {
	return &MatchCondition{Field: field, Value: value}
}

// NewMatchAny creates an IN condition. It panics on mixed value types.
func NewMatchAny(field string, values ...any) *MatchAnyCondition {
	validateHomogeneousTypes(values)
	return &MatchAnyCondition{Field: field, Values: values}
}

// NewMatchExcept creates a NOT IN condition. It panics on mixed value types.
func NewMatchExcept(field string, values ...any) *MatchExceptCondition {
	validateHomogeneousTypes(values)
	return &MatchExceptCondition{Field: field, Values: values}
}

func NewNumericRange(field string, r NumericRange) *NumericRangeCondition {
	return &NumericRangeCondition{Field: field, Range: r}
}

func NewTimeRange(field string, t TimeRange) *TimeRangeCondition {
	return &TimeRangeCondition{Field: field, Range: t}
}

func NewIsNull(field string) *IsNullCondition {
	return &IsNullCondition{Field: field, Null: true}
}

func NewIsEmpty(field string) *IsEmptyCondition {
	return &IsEmptyCondition{Field: field, Empty: true}
}

func NewContains(field, substring string) *ContainsCondition {
	return &ContainsCondition{Field: field, Substring: substring}
}

func NewNotContains(field, substring string) *ContainsCondition {
	return &ContainsCondition{Field: field, Substring: substring, Negate: true}
}

func NewNested(fs *FilterSet) *NestedCondition {
	return &NestedCondition{Filter: fs}
}

// ── JSON Serialization ───────────────────────────────────────────────────────

// MarshalJSON implements custom JSON marshaling for ConditionSet.
// This is needed because FilterCondition is an interface.
func (cs *ConditionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(cs.Conditions)
}

// UnmarshalJSON detects each condition's type from its JSON keys.
func (cs *ConditionSet) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	cs.Conditions = make([]FilterCondition, 0, len(raw))

	for _, r := range raw {
		cond, err := parseCondition(r)
		if err != nil {
			return err
		}
		cs.Conditions = append(cs.Conditions, cond)
	}

	return nil
}

// parseCondition detects and parses a single FilterCondition from JSON:
//   - "equalTo" → MatchCondition
//   - "anyOf" → MatchAnyCondition
//   - "noneOf" → MatchExceptCondition
//   - "greaterThan", "lessThan", etc. → NumericRangeCondition
//   - "after", "before", etc. → TimeRangeCondition
//   - "isNull" / "isEmpty" → IsNullCondition / IsEmptyCondition
//   - "contains" → ContainsCondition
//   - "filter" → NestedCondition
func parseCondition(data []byte) (FilterCondition, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	var target FilterCondition
	switch {
	case hasKey(fields, "equalTo"):
		target = &MatchCondition{}
	case hasKey(fields, "anyOf"):
		target = &MatchAnyCondition{}
	case hasKey(fields, "noneOf"):
		target = &MatchExceptCondition{}
	case hasKey(fields, "greaterThan"), hasKey(fields, "greaterThanOrEqualTo"),
		hasKey(fields, "lessThan"), hasKey(fields, "lessThanOrEqualTo"):
		target = &NumericRangeCondition{}
	case hasKey(fields, "after"), hasKey(fields, "atOrAfter"),
		hasKey(fields, "before"), hasKey(fields, "atOrBefore"):
		target = &TimeRangeCondition{}
	case hasKey(fields, "isNull"):
		target = &IsNullCondition{}
	case hasKey(fields, "isEmpty"):
		target = &IsEmptyCondition{}
	case hasKey(fields, "contains"):
		target = &ContainsCondition{}
	case hasKey(fields, "filter"):
		target = &NestedCondition{}
	default:
		return nil, fmt.Errorf("unknown filter condition type: %s", string(data))
	}

	if err := json.Unmarshal(data, target); err != nil {
		return nil, err
	}
	return target, nil
}

func hasKey(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}

// validateHomogeneousTypes ensures all values are of the same type category.
// Panics if mixed types are detected.
func validateHomogeneousTypes(values []any) {
	if err := checkHomogeneousTypes(values); err != nil {
		panic(err.Error())
	}
}

// checkHomogeneousTypes is the error-returning form used for user input.
func checkHomogeneousTypes(values []any) error {
	if len(values) == 0 {
		return nil
	}

	expectedType := getType(values[0])
	if expectedType == "" {
		return fmt.Errorf("vectordb: unsupported value type: %T", values[0])
	}

	for i, v := range values[1:] {
		actualType := getType(v)
		if actualType == "" {
			return fmt.Errorf("vectordb: unsupported value type at index %d: %T", i+1, v)
		}
		if actualType != expectedType {
			return fmt.Errorf("vectordb: mixed types not allowed in MatchAny/MatchExcept: expected %s but got %s at index %d", expectedType, actualType, i+1)
		}
	}
	return nil
}

func getType(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case int, int32, int64, float32, float64:
		return "numeric"
	case bool:
		return "boolean"
	}
	return ""
}
