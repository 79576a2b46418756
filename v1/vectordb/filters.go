package vectordb

import (
	"encoding/json"
	"time"
)

// FilterCondition is the interface all filter conditions must implement.
// Each database adapter converts these to its native filter format.
type FilterCondition interface {
	// isFilterCondition is a marker method to ensure type safety
	IsFilterCondition()
}

// FilterSet supports Must (AND), Should (OR), and MustNot (NOT) clauses.
// Field names address metadata keys. Use with QueryRequest.Filter and
// ScanOptions.Filter; ParseWhere builds one from a where map.
//
// Example:
//
//	filters := &FilterSet{
//	    Must: &ConditionSet{
//	        Conditions: []FilterCondition{
//	            &MatchCondition{Field: "city", Value: "London"},
//	        },
//	    },
//	}
type FilterSet struct {
	// Must: All conditions must match (AND)
	Must *ConditionSet `json:"must,omitempty"`
	// Should: At least one condition must match (OR)
	Should *ConditionSet `json:"should,omitempty"`
	// MustNot: None of the conditions should match (NOT)
	MustNot *ConditionSet `json:"mustNot,omitempty"`
}

// ConditionSet holds a group of conditions for a single clause.
type ConditionSet struct {
	Conditions []FilterCondition `json:"conditions,omitempty"`
}

// ── Match Conditions ─────────────────────────────────────────────────────────

// MatchCondition represents an exact match filter (WHERE field = value).
// Supports string, bool, and numeric values.
type MatchCondition struct {
	Field string `json:"field"`
	Value any    `json:"equalTo"`
}

func (c *MatchCondition) IsFilterCondition() {}

// MatchAnyCondition matches if value is one of the given values (IN operator).
// SQL equivalent: WHERE field IN (value1, value2, ...)
type MatchAnyCondition struct {
	Field  string `json:"field"`
	Values []any  `json:"anyOf"`
}

func (c *MatchAnyCondition) IsFilterCondition() {}

// MatchExceptCondition matches if value is NOT one of the given values (NOT IN).
// SQL equivalent: WHERE field NOT IN (value1, value2, ...)
type MatchExceptCondition struct {
	Field  string `json:"field"`
	Values []any  `json:"noneOf"`
}

func (c *MatchExceptCondition) IsFilterCondition() {}

// ── Range Types ──────────────────────────────────────────────────────────────

// NumericRange defines bounds for numeric filtering.
// Used with NewNumericRange for cleaner constructor calls.
type NumericRange struct {
	Gt  *float64 `json:"greaterThan,omitempty"`          // GreaterThan (exclusive)
	Gte *float64 `json:"greaterThanOrEqualTo,omitempty"` // GreaterThanOrEqualTo (inclusive)
	Lt  *float64 `json:"lessThan,omitempty"`             // LessThan (exclusive)
	Lte *float64 `json:"lessThanOrEqualTo,omitempty"`    // LessThanOrEqualTo (inclusive)
}

// TimeRange defines bounds for time filtering.
// Used with NewTimeRange for cleaner constructor calls.
type TimeRange struct {
	Gt  *time.Time `json:"after,omitempty"`      // After (exclusive)
	Gte *time.Time `json:"atOrAfter,omitempty"`  // AtOrAfter (inclusive)
	Lt  *time.Time `json:"before,omitempty"`     // Before (exclusive)
	Lte *time.Time `json:"atOrBefore,omitempty"` // AtOrBefore (inclusive)
}

// ── Range Conditions ─────────────────────────────────────────────────────────

// NumericRangeCondition filters by numeric range.
// SQL equivalent: WHERE field >= min AND field <= max
type NumericRangeCondition struct {
	Field string       `json:"field"`
	Range NumericRange `json:"-"`
}

func (c *NumericRangeCondition) IsFilterCondition() {}

// numericRangeJSON is the wire form of NumericRangeCondition: the bounds sit
// next to the field name.
type numericRangeJSON struct {
	Field string `json:"field"`
	NumericRange
}

func (c *NumericRangeCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(numericRangeJSON{Field: c.Field, NumericRange: c.Range})
}

func (c *NumericRangeCondition) UnmarshalJSON(data []byte) error {
	var w numericRangeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Field, c.Range = w.Field, w.NumericRange
	return nil
}

// TimeRangeCondition filters by datetime range.
// SQL equivalent: WHERE created_at >= '2024-01-01' AND created_at < '2025-01-01'
type TimeRangeCondition struct {
	Field string    `json:"field"`
	Range TimeRange `json:"-"`
}

func (c *TimeRangeCondition) IsFilterCondition() {}

type timeRangeJSON struct {
	Field string `json:"field"`
	TimeRange
}

func (c *TimeRangeCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeRangeJSON{Field: c.Field, TimeRange: c.Range})
}

func (c *TimeRangeCondition) UnmarshalJSON(data []byte) error {
	var w timeRangeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Field, c.Range = w.Field, w.TimeRange
	return nil
}

// ── Null/Empty Conditions ────────────────────────────────────────────────────

// IsNullCondition checks if a field has a NULL value.
// SQL equivalent: WHERE field IS NULL
type IsNullCondition struct {
	Field string `json:"field"`
	Null  bool   `json:"isNull"`
}

func (c *IsNullCondition) IsFilterCondition() {}

// IsEmptyCondition checks if a field is empty (doesn't exist, null, or []).
// SQL equivalent: WHERE field IS NULL OR field = ” OR field = []
type IsEmptyCondition struct {
	Field string `json:"field"`
	Empty bool   `json:"isEmpty"`
}

func (c *IsEmptyCondition) IsFilterCondition() {}

// ── Text Conditions ──────────────────────────────────────────────────────────

// ContainsCondition matches string fields containing Substring.
// With Negate set it matches fields that do not contain it.
// Most providers evaluate it client side.
type ContainsCondition struct {
	Field     string `json:"field"`
	Substring string `json:"contains"`
	Negate    bool   `json:"negate,omitempty"`
}

func (c *ContainsCondition) IsFilterCondition() {}

// ── Nested Conditions ────────────────────────────────────────────────────────

// NestedCondition embeds a complete FilterSet as a single condition, which
// allows OR groups inside AND groups and vice versa.
type NestedCondition struct {
	Filter *FilterSet `json:"filter"`
}

func (c *NestedCondition) IsFilterCondition() {}
