package pgvector

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

const (
	sqlCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	sqlCreateTable = `CREATE TABLE %s (id TEXT PRIMARY KEY, document TEXT, metadata JSONB, embedding vector(%d))`

	sqlCreateIndex = `CREATE INDEX %s ON %s USING ivfflat (embedding %s) WITH (lists = %d)`

	sqlListCollections = `
SELECT DISTINCT table_name FROM information_schema.columns
WHERE table_schema = 'public' AND udt_name = 'vector'
ORDER BY table_name`

	sqlListDatabases = `SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname`

	sqlTableExists = `
SELECT COUNT(*) FROM information_schema.tables
WHERE table_schema = 'public' AND table_name = ?`

	sqlDimension = `
SELECT a.atttypmod AS dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
JOIN pg_namespace n ON c.relnamespace = n.oid
WHERE n.nspname = 'public' AND c.relname = ? AND a.attname = 'embedding'`

	sqlIndexDefs = `SELECT indexdef FROM pg_indexes WHERE schemaname = 'public' AND tablename = ?`

	sqlUpsert = `
INSERT INTO %s (id, document, metadata, embedding) VALUES %s
ON CONFLICT (id) DO UPDATE SET
    document = EXCLUDED.document,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding`
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// quoteIdent validates name and returns it double-quoted.
func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return `"` + name + `"`, nil
}

// opClass returns the ivfflat operator class for a metric.
func opClass(d vectordb.Distance) string {
	switch d {
	case vectordb.DistanceEuclidean:
		return "vector_l2_ops"
	case vectordb.DistanceDot:
		return "vector_ip_ops"
	default:
		return "vector_cosine_ops"
	}
}

// distanceOperator returns the pgvector operator for a metric.
func distanceOperator(d vectordb.Distance) string {
	switch d {
	case vectordb.DistanceEuclidean:
		return "<->"
	case vectordb.DistanceDot:
		return "<#>"
	default:
		return "<=>"
	}
}

// metricFromIndexDefs inspects index definitions for an operator class.
// Tables without a vector index are treated as cosine.
func metricFromIndexDefs(defs []string) vectordb.Distance {
	for _, def := range defs {
		switch {
		case strings.Contains(def, "vector_l2_ops"):
			return vectordb.DistanceEuclidean
		case strings.Contains(def, "vector_ip_ops"):
			return vectordb.DistanceDot
		case strings.Contains(def, "vector_cosine_ops"):
			return vectordb.DistanceCosine
		}
	}
	return vectordb.DistanceCosine
}

// ── Filters ──────────────────────────────────────────────────────────────────

// whereClause compiles a filter into a SQL predicate over the metadata
// column with positional "?" arguments. An empty filter yields "".
func whereClause(fs *vectordb.FilterSet) (string, []any, error) {
	if fs.IsEmpty() {
		return "", nil, nil
	}
	var b predicateBuilder
	sql, err := b.filterSet(fs)
	if err != nil {
		return "", nil, err
	}
	return sql, b.args, nil
}

type predicateBuilder struct {
	args []any
}

func (b *predicateBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "?"
}

func (b *predicateBuilder) filterSet(fs *vectordb.FilterSet) (string, error) {
	var parts []string

	if fs.Must != nil {
		for _, c := range fs.Must.Conditions {
			p, err := b.condition(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
	}
	if fs.Should != nil && len(fs.Should.Conditions) > 0 {
		var alts []string
		for _, c := range fs.Should.Conditions {
			p, err := b.condition(c)
			if err != nil {
				return "", err
			}
			alts = append(alts, p)
		}
		parts = append(parts, "("+strings.Join(alts, " OR ")+")")
	}
	if fs.MustNot != nil {
		for _, c := range fs.MustNot.Conditions {
			p, err := b.condition(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, negate(p))
		}
	}

	if len(parts) == 0 {
		return "TRUE", nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

// negate treats an unknown (NULL) predicate as false before negating, so
// items lacking the key pass NOT clauses.
func negate(p string) string {
	return "NOT COALESCE(" + p + ", FALSE)"
}

func (b *predicateBuilder) condition(c vectordb.FilterCondition) (string, error) {
	switch cond := c.(type) {
	case *vectordb.MatchCondition:
		return b.contains(cond.Field, cond.Value)
	case *vectordb.MatchAnyCondition:
		return b.anyOf(cond.Field, cond.Values)
	case *vectordb.MatchExceptCondition:
		p, err := b.anyOf(cond.Field, cond.Values)
		if err != nil {
			return "", err
		}
		return negate(p), nil
	case *vectordb.NumericRangeCondition:
		return b.numericRange(cond), nil
	case *vectordb.TimeRangeCondition:
		return b.timeRange(cond), nil
	case *vectordb.IsNullCondition:
		k := b.arg(cond.Field)
		k2 := b.arg(cond.Field)
		return fmt.Sprintf("(metadata->%s IS NULL OR jsonb_typeof(metadata->%s) = 'null')", k, k2), nil
	case *vectordb.IsEmptyCondition:
		k := b.arg(cond.Field)
		k2 := b.arg(cond.Field)
		return fmt.Sprintf(`(metadata->%s IS NULL OR metadata->%s IN ('null'::jsonb, '""'::jsonb, '[]'::jsonb, '{}'::jsonb))`, k, k2), nil
	case *vectordb.ContainsCondition:
		k := b.arg(cond.Field)
		p := fmt.Sprintf("strpos(metadata->>%s, %s) > 0", k, b.arg(cond.Substring))
		if cond.Negate {
			return negate(p), nil
		}
		return p, nil
	case *vectordb.NestedCondition:
		if cond.Filter.IsEmpty() {
			return "TRUE", nil
		}
		return b.filterSet(cond.Filter)
	default:
		return "", fmt.Errorf("%w: unsupported condition %T", vectordb.ErrInvalidArgument, c)
	}
}

// contains matches through JSONB containment, which compares with the
// stored JSON type instead of its text form.
func (b *predicateBuilder) contains(field string, value any) (string, error) {
	doc, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return "", fmt.Errorf("%w: %v", vectordb.ErrInvalidArgument, err)
	}
	return fmt.Sprintf("metadata @> %s::jsonb", b.arg(string(doc))), nil
}

func (b *predicateBuilder) anyOf(field string, values []any) (string, error) {
	if len(values) == 0 {
		return "FALSE", nil
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		p, err := b.contains(field, v)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

func (b *predicateBuilder) numericRange(c *vectordb.NumericRangeCondition) string {
	k := b.arg(c.Field)
	k2 := b.arg(c.Field)
	value := fmt.Sprintf("(CASE WHEN jsonb_typeof(metadata->%s) = 'number' THEN (metadata->>%s)::double precision END)", k, k2)

	var parts []string
	add := func(op string, v *float64) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s %s %s", value, op, b.arg(*v)))
		}
	}
	add(">", c.Range.Gt)
	add(">=", c.Range.Gte)
	add("<", c.Range.Lt)
	add("<=", c.Range.Lte)
	if len(parts) == 0 {
		return "TRUE"
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

// timeRange compares RFC3339 strings in UTC, which order lexically.
func (b *predicateBuilder) timeRange(c *vectordb.TimeRangeCondition) string {
	var parts []string
	add := func(op string, t *time.Time) {
		if t != nil {
			k := b.arg(c.Field)
			parts = append(parts, fmt.Sprintf("metadata->>%s %s %s", k, op, b.arg(t.UTC().Format(time.RFC3339))))
		}
	}
	add(">", c.Range.Gt)
	add(">=", c.Range.Gte)
	add("<", c.Range.Lt)
	add("<=", c.Range.Lte)
	if len(parts) == 0 {
		return "TRUE"
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}
