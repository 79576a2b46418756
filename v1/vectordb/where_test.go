package vectordb

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseWhere_Empty(t *testing.T) {
	fs, err := ParseWhere(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs != nil {
		t.Errorf("expected nil filter, got %+v", fs)
	}
}

func TestParseWhere_BareValueIsEquality(t *testing.T) {
	fs, err := ParseWhere(map[string]any{"category": "news"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.Must.Conditions) != 1 {
		t.Fatalf("expected 1 Must condition, got %d", len(fs.Must.Conditions))
	}
	m, ok := fs.Must.Conditions[0].(*MatchCondition)
	if !ok {
		t.Fatalf("expected *MatchCondition, got %T", fs.Must.Conditions[0])
	}
	if m.Field != "category" || m.Value != "news" {
		t.Errorf("unexpected condition %+v", m)
	}
}

func TestParseWhere_RangeOperatorsMerge(t *testing.T) {
	fs, err := ParseWhere(map[string]any{"year": map[string]any{"$gte": 2020.0, "$lt": 2024}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.Must.Conditions) != 1 {
		t.Fatalf("expected one range condition, got %d", len(fs.Must.Conditions))
	}
	r := fs.Must.Conditions[0].(*NumericRangeCondition).Range
	if r.Gte == nil || *r.Gte != 2020 || r.Lt == nil || *r.Lt != 2024 {
		t.Errorf("unexpected range %+v", r)
	}
}

func TestParseWhere_NotEqualGoesToMustNot(t *testing.T) {
	fs, err := ParseWhere(map[string]any{"lang": map[string]any{"$ne": "en"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Must != nil {
		t.Errorf("expected no Must clause, got %+v", fs.Must)
	}
	if len(fs.MustNot.Conditions) != 1 {
		t.Errorf("expected 1 MustNot condition, got %d", len(fs.MustNot.Conditions))
	}
}

func TestParseWhere_OrBecomesNestedShould(t *testing.T) {
	fs, err := ParseWhere(map[string]any{
		"$or": []any{
			map[string]any{"lang": "en"},
			map[string]any{"lang": "de"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nested, ok := fs.Must.Conditions[0].(*NestedCondition)
	if !ok {
		t.Fatalf("expected *NestedCondition, got %T", fs.Must.Conditions[0])
	}
	if len(nested.Filter.Should.Conditions) != 2 {
		t.Errorf("expected 2 Should conditions, got %d", len(nested.Filter.Should.Conditions))
	}
}

func TestParseWhere_Errors(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown operator":    {"a": map[string]any{"$regex": "x"}},
		"unknown logical":     {"$xor": []any{}},
		"non numeric range":   {"a": map[string]any{"$gt": "x"}},
		"in without list":     {"a": map[string]any{"$in": "x"}},
		"mixed in types":      {"a": map[string]any{"$in": []any{"x", 1.0}}},
		"and without list":    {"$and": "x"},
		"contains non string": {"a": map[string]any{"$contains": 3}},
	}
	for name, where := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWhere(where)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestFilterSet_JSONRoundTripKeepsConditionTypes(t *testing.T) {
	gte := 1.0
	fs := NewFilterSet(
		Must(NewMatch("a", "x"), NewNumericRange("n", NumericRange{Gte: &gte}), NewContains("t", "foo")),
		MustNot(NewIsNull("z")),
		Should(NewNested(NewFilterSet(Must(NewMatchAny("k", "p", "q"))))),
	)
	data, err := json.Marshal(fs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back FilterSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := back.Must.Conditions[2].(*ContainsCondition); !ok {
		t.Errorf("expected *ContainsCondition, got %T", back.Must.Conditions[2])
	}
	if _, ok := back.MustNot.Conditions[0].(*IsNullCondition); !ok {
		t.Errorf("expected *IsNullCondition, got %T", back.MustNot.Conditions[0])
	}
	if _, ok := back.Should.Conditions[0].(*NestedCondition); !ok {
		t.Errorf("expected *NestedCondition, got %T", back.Should.Conditions[0])
	}
}
