package milvus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func fp(f float64) *float64 { return &f }

func TestCompileExpr(t *testing.T) {
	tests := []struct {
		name   string
		filter *vectordb.FilterSet
		want   string
		ok     bool
	}{
		{name: "nil", ok: true},
		{
			name:   "match string",
			filter: vectordb.NewFilterSet(vectordb.Must(vectordb.NewMatch("lang", `e"n`))),
			want:   `metadata["lang"] == "e\"n"`,
			ok:     true,
		},
		{
			name: "must, should and must not",
			filter: vectordb.NewFilterSet(
				vectordb.Must(vectordb.NewMatch("year", 2024)),
				vectordb.Should(vectordb.NewMatch("a", true), vectordb.NewMatchAny("b", "x", "y")),
				vectordb.MustNot(vectordb.NewMatchExcept("c", 1.5)),
			),
			want: `metadata["year"] == 2024 and (metadata["a"] == true or metadata["b"] in ["x", "y"])` +
				` and not (metadata["c"] not in [1.5])`,
			ok: true,
		},
		{
			name: "range",
			filter: vectordb.NewFilterSet(vectordb.Must(
				vectordb.NewNumericRange("score", vectordb.NumericRange{Gt: fp(0.5), Lte: fp(10)}),
			)),
			want: `(metadata["score"] > 0.5 and metadata["score"] <= 10)`,
			ok:   true,
		},
		{
			name: "nested",
			filter: vectordb.NewFilterSet(vectordb.Must(vectordb.NewNested(
				vectordb.NewFilterSet(vectordb.Should(vectordb.NewMatch("k", "v"))),
			))),
			want: `((metadata["k"] == "v"))`,
			ok:   true,
		},
		{
			name:   "contains is local",
			filter: vectordb.NewFilterSet(vectordb.Must(vectordb.NewContains("title", "go"))),
			ok:     false,
		},
		{
			name: "time range is local",
			filter: vectordb.NewFilterSet(vectordb.Must(
				vectordb.NewTimeRange("at", vectordb.TimeRange{Gt: ptrTime(time.Unix(0, 0))}),
			)),
			ok: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := compileExpr(tt.filter)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestIDsExpr(t *testing.T) {
	assert.Equal(t, `id in ["a", "b\\c"]`, idsExpr([]string{"a", `b\c`}))
}

func TestLiteral(t *testing.T) {
	_, ok := literal(map[string]any{})
	assert.False(t, ok)
	l, ok := literal(int64(-3))
	assert.True(t, ok)
	assert.Equal(t, "-3", l)
}

func TestTranslateError(t *testing.T) {
	assert.ErrorIs(t, translateError("query", "c", errors.New("collection not found[collection=c]")), vectordb.ErrCollectionNotFound)
	assert.ErrorIs(t, translateError("create", "c", errors.New("collection c already exists")), vectordb.ErrCollectionExists)
	assert.ErrorIs(t, translateError("query", "c", errors.New("cannot parse expression: x ==")), vectordb.ErrInvalidArgument)
	assert.NoError(t, translateError("query", "c", nil))
}
