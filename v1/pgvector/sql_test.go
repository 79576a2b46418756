package pgvector

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func TestQuoteIdent(t *testing.T) {
	q, err := quoteIdent("documents_2024")
	require.NoError(t, err)
	assert.Equal(t, `"documents_2024"`, q)

	for _, bad := range []string{"", "1abc", `x"; DROP TABLE y; --`, "has space", "dash-name"} {
		_, err := quoteIdent(bad)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, bad)
	}
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "docs_embedding_idx", indexName("docs"))

	long := indexName("a123456789012345678901234567890123456789012345678901234567890")
	assert.Len(t, long, 63)
	_, err := quoteIdent(long)
	assert.NoError(t, err)
}

func TestMetricFromIndexDefs(t *testing.T) {
	assert.Equal(t, vectordb.DistanceCosine, metricFromIndexDefs(nil))
	assert.Equal(t, vectordb.DistanceEuclidean, metricFromIndexDefs([]string{
		"CREATE UNIQUE INDEX docs_pkey ON public.docs USING btree (id)",
		"CREATE INDEX docs_embedding_idx ON public.docs USING ivfflat (embedding vector_l2_ops) WITH (lists='100')",
	}))
	assert.Equal(t, vectordb.DistanceDot, metricFromIndexDefs([]string{"... (embedding vector_ip_ops)"}))
}

func TestOperators(t *testing.T) {
	assert.Equal(t, "<=>", distanceOperator(vectordb.DistanceCosine))
	assert.Equal(t, "<->", distanceOperator(vectordb.DistanceEuclidean))
	assert.Equal(t, "<#>", distanceOperator(vectordb.DistanceDot))
	assert.Equal(t, "vector_ip_ops", opClass(vectordb.DistanceDot))
}

func TestWhereClause(t *testing.T) {
	t.Run("empty filter", func(t *testing.T) {
		sql, args, err := whereClause(nil)
		require.NoError(t, err)
		assert.Empty(t, sql)
		assert.Nil(t, args)
	})

	t.Run("match uses containment", func(t *testing.T) {
		sql, args, err := whereClause(vectordb.NewFilterSet(vectordb.Must(vectordb.NewMatch("lang", "en"))))
		require.NoError(t, err)
		assert.Equal(t, "(metadata @> ?::jsonb)", sql)
		assert.Equal(t, []any{`{"lang":"en"}`}, args)
	})

	t.Run("must not treats missing keys as passing", func(t *testing.T) {
		sql, args, err := whereClause(vectordb.NewFilterSet(vectordb.MustNot(vectordb.NewMatch("status", "deleted"))))
		require.NoError(t, err)
		assert.Equal(t, "(NOT COALESCE(metadata @> ?::jsonb, FALSE))", sql)
		assert.Len(t, args, 1)
	})

	t.Run("should joins with OR", func(t *testing.T) {
		sql, args, err := whereClause(vectordb.NewFilterSet(vectordb.Should(
			vectordb.NewMatch("a", 1),
			vectordb.NewMatch("b", true),
		)))
		require.NoError(t, err)
		assert.Equal(t, "((metadata @> ?::jsonb OR metadata @> ?::jsonb))", sql)
		assert.Equal(t, []any{`{"a":1}`, `{"b":true}`}, args)
	})

	t.Run("numeric range", func(t *testing.T) {
		lo, hi := 1.0, 5.0
		sql, args, err := whereClause(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewNumericRange("n", vectordb.NumericRange{Gte: &lo, Lt: &hi}),
		)))
		require.NoError(t, err)
		assert.Contains(t, sql, "jsonb_typeof(metadata->?) = 'number'")
		assert.Contains(t, sql, ">= ?")
		assert.Contains(t, sql, "< ?")
		assert.Equal(t, []any{"n", "n", 1.0, 5.0}, args)
	})

	t.Run("contains", func(t *testing.T) {
		sql, args, err := whereClause(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewContains("title", "go"),
			vectordb.NewNotContains("title", "java"),
		)))
		require.NoError(t, err)
		assert.Equal(t, "(strpos(metadata->>?, ?) > 0 AND NOT COALESCE(strpos(metadata->>?, ?) > 0, FALSE))", sql)
		assert.Equal(t, []any{"title", "go", "title", "java"}, args)
	})

	t.Run("in and not in", func(t *testing.T) {
		sql, args, err := whereClause(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewMatchAny("tier", "gold", "silver"),
			vectordb.NewMatchExcept("n", 1),
		)))
		require.NoError(t, err)
		assert.Equal(t, "((metadata @> ?::jsonb OR metadata @> ?::jsonb) AND NOT COALESCE((metadata @> ?::jsonb), FALSE))", sql)
		assert.Len(t, args, 3)
	})

	t.Run("time range", func(t *testing.T) {
		after := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
		_, args, err := whereClause(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewTimeRange("created", vectordb.TimeRange{Gt: &after}),
		)))
		require.NoError(t, err)
		assert.Equal(t, []any{"created", "2024-01-02T02:04:05Z"}, args)
	})

	t.Run("nested or from where document", func(t *testing.T) {
		fs, err := vectordb.ParseWhere(map[string]any{
			"$or": []any{
				map[string]any{"a": "x"},
				map[string]any{"b": map[string]any{"$gt": 2.0}},
			},
		})
		require.NoError(t, err)
		sql, args, err := whereClause(fs)
		require.NoError(t, err)
		assert.Contains(t, sql, " OR ")
		assert.Len(t, args, 4)
	})

	t.Run("null and empty", func(t *testing.T) {
		sql, _, err := whereClause(vectordb.NewFilterSet(vectordb.Must(
			vectordb.NewIsNull("a"),
			vectordb.NewIsEmpty("b"),
		)))
		require.NoError(t, err)
		assert.Contains(t, sql, "jsonb_typeof(metadata->?) = 'null'")
		assert.Contains(t, sql, `'""'::jsonb`)
	})
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, TranslateError(nil))

	missing := fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01", Message: `relation "x" does not exist`})
	assert.True(t, vectordb.IsCollectionNotFoundError(TranslateError(missing)))

	dup := &pgconn.PgError{Code: "42P07", Message: "exists"}
	assert.ErrorIs(t, TranslateError(dup), vectordb.ErrCollectionExists)

	dim := &pgconn.PgError{Code: "22000", Message: "expected 3 dimensions, not 2"}
	assert.ErrorIs(t, TranslateError(dim), vectordb.ErrInvalidArgument)

	assert.ErrorIs(t, TranslateError(gorm.ErrDuplicatedKey), vectordb.ErrInvalidArgument)

	other := fmt.Errorf("boom")
	assert.Equal(t, other, TranslateError(other))

	assert.True(t, IsPermissionError(&pgconn.PgError{Code: "42501"}))
	assert.False(t, IsPermissionError(other))
}

func TestRowItem(t *testing.T) {
	doc := "text"
	it, err := row{ID: "a", Document: &doc, Metadata: []byte(`{"k":"v","n":2}`)}.item()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v", "n": float64(2)}, it.Metadata)
	assert.Nil(t, it.Embedding)

	it, err = row{ID: "b", Metadata: []byte("null")}.item()
	require.NoError(t, err)
	assert.Empty(t, it.Metadata)

	_, err = row{ID: "c", Metadata: []byte("{")}.item()
	assert.Error(t, err)
}

func TestConnectionParamsDSN(t *testing.T) {
	params := ConnectionParams{
		Host:     "db.internal",
		Port:     5433,
		User:     "inspector",
		Password: `s3cret pass'with\quote`,
		DbName:   "vectors",
		SSLMode:  "disable",
	}

	parsed, err := pgconn.ParseConfig(params.DSN())
	require.NoError(t, err)
	assert.Equal(t, "db.internal", parsed.Host)
	assert.EqualValues(t, 5433, parsed.Port)
	assert.Equal(t, "inspector", parsed.User)
	assert.Equal(t, `s3cret pass'with\quote`, parsed.Password)
	assert.Equal(t, "vectors", parsed.Database)

	assert.NotContains(t, ConnectionParams{Host: "h", Port: 1}.DSN(), "password")
}
