package qdrant

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Payload keys reserved by the adapter. Everything else is item metadata.
const (
	PayloadDocument   = "document"
	PayloadOriginalID = "_original_id"
)

// ── Point IDs ────────────────────────────────────────────────────────────────

// toPointID maps an item id onto a Qdrant point id. Unsigned integers and
// UUIDs are used as-is; any other string becomes a UUIDv5 in the DNS
// namespace and mapped reports true so the original id is kept in the payload.
func toPointID(id string) (pid *qdrant.PointId, mapped bool) {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return qdrant.NewIDNum(n), false
	}
	if u, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(u.String()), false
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceDNS, []byte(id)).String()), true
}

// extractPointID extracts a string ID from Qdrant's PointId type.
func extractPointID(id *qdrant.PointId) (string, error) {
	if id == nil {
		return "", fmt.Errorf("%w: nil", ErrUnexpectedPointID)
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10), nil
	case *qdrant.PointId_Uuid:
		return v.Uuid, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnexpectedPointID, v)
	}
}

// ── Points ───────────────────────────────────────────────────────────────────

// buildPoint converts an item into an upsert point.
func buildPoint(it vectordb.Item) (*qdrant.PointStruct, error) {
	pid, mapped := toPointID(it.ID)
	payload := make(map[string]any, len(it.Metadata)+2)
	for k, v := range it.Metadata {
		payload[k] = v
	}
	if it.Document != nil {
		payload[PayloadDocument] = *it.Document
	}
	if mapped {
		payload[PayloadOriginalID] = it.ID
	}
	values, err := qdrant.TryValueMap(payload)
	if err != nil {
		return nil, fmt.Errorf("[Qdrant] invalid payload for item %s: %w", it.ID, err)
	}
	return &qdrant.PointStruct{
		Id:      pid,
		Vectors: qdrant.NewVectors(it.Embedding...),
		Payload: values,
	}, nil
}

// pointToItem converts a stored point back into an item.
func pointToItem(id *qdrant.PointId, payload map[string]*qdrant.Value, vectors *qdrant.VectorsOutput) (vectordb.Item, error) {
	raw, err := extractPointID(id)
	if err != nil {
		return vectordb.Item{}, err
	}
	md := convertPayload(payload)
	if md == nil {
		md = map[string]any{}
	}
	it := vectordb.Item{ID: raw, Metadata: md}
	if orig, ok := md[PayloadOriginalID].(string); ok && orig != "" {
		it.ID = orig
	}
	delete(md, PayloadOriginalID)
	if doc, ok := md[PayloadDocument].(string); ok {
		it.Document = &doc
	}
	delete(md, PayloadDocument)
	it.Embedding = extractVector(vectors)
	return it, nil
}

// extractVector returns the unnamed dense vector of a point.
func extractVector(v *qdrant.VectorsOutput) []float32 {
	vec := v.GetVector()
	if vec == nil {
		return nil
	}
	if dense := vec.GetDense(); dense != nil {
		return dense.GetData()
	}
	return vec.GetData()
}

// convertPayload converts Qdrant's protobuf payload to a generic map.
func convertPayload(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		result[k] = extractValue(v)
	}
	return result
}

// extractValue recursively converts a Qdrant Value to a Go native type.
func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_StructValue:
		if val.StructValue == nil {
			return nil
		}
		return convertPayload(val.StructValue.Fields)
	case *qdrant.Value_ListValue:
		if val.ListValue == nil {
			return nil
		}
		items := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			items[i] = extractValue(item)
		}
		return items
	default:
		return nil
	}
}

// ── Filter Conversion ────────────────────────────────────────────────────────

// convertFilterSet converts a vectordb.FilterSet to a Qdrant filter.
func convertFilterSet(filters *vectordb.FilterSet) *qdrant.Filter {
	if filters == nil {
		return nil
	}

	filter := &qdrant.Filter{}

	if filters.Must != nil {
		filter.Must = convertConditionSet(filters.Must)
	}
	if filters.Should != nil {
		filter.Should = convertConditionSet(filters.Should)
	}
	if filters.MustNot != nil {
		filter.MustNot = convertConditionSet(filters.MustNot)
	}

	// Return nil if no conditions were added
	if len(filter.Must) == 0 && len(filter.Should) == 0 && len(filter.MustNot) == 0 {
		return nil
	}

	return filter
}

func convertConditionSet(cs *vectordb.ConditionSet) []*qdrant.Condition {
	if cs == nil {
		return nil
	}

	var conditions []*qdrant.Condition
	for _, c := range cs.Conditions {
		for _, cond := range convertCondition(c) {
			if cond != nil {
				conditions = append(conditions, cond)
			}
		}
	}
	return conditions
}

func convertCondition(c vectordb.FilterCondition) []*qdrant.Condition {
	switch cond := c.(type) {
	case *vectordb.MatchCondition:
		return convertMatchCondition(cond)
	case *vectordb.MatchAnyCondition:
		return convertMatchAny(cond.Field, cond.Values, false)
	case *vectordb.MatchExceptCondition:
		return convertMatchAny(cond.Field, cond.Values, true)
	case *vectordb.NumericRangeCondition:
		return convertNumericRangeCondition(cond)
	case *vectordb.TimeRangeCondition:
		return convertTimeRangeCondition(cond)
	case *vectordb.IsNullCondition:
		return []*qdrant.Condition{qdrant.NewIsNull(cond.Field)}
	case *vectordb.IsEmptyCondition:
		return []*qdrant.Condition{qdrant.NewIsEmpty(cond.Field)}
	case *vectordb.ContainsCondition:
		text := matchText(cond.Field, cond.Substring)
		if cond.Negate {
			return []*qdrant.Condition{filterCondition(&qdrant.Filter{MustNot: []*qdrant.Condition{text}})}
		}
		return []*qdrant.Condition{text}
	case *vectordb.NestedCondition:
		nested := convertFilterSet(cond.Filter)
		if nested == nil {
			return nil
		}
		return []*qdrant.Condition{filterCondition(nested)}
	default:
		return nil
	}
}

func filterCondition(f *qdrant.Filter) *qdrant.Condition {
	return &qdrant.Condition{ConditionOneOf: &qdrant.Condition_Filter{Filter: f}}
}

// matchText needs a full-text index on the field for tokenized matching;
// without one Qdrant falls back to an exact substring check.
func matchText(field, text string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   field,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Text{Text: text}},
			},
		},
	}
}

func convertMatchCondition(c *vectordb.MatchCondition) []*qdrant.Condition {
	switch v := c.Value.(type) {
	case string:
		return []*qdrant.Condition{qdrant.NewMatch(c.Field, v)}
	case bool:
		return []*qdrant.Condition{qdrant.NewMatchBool(c.Field, v)}
	case int:
		return []*qdrant.Condition{qdrant.NewMatchInt(c.Field, int64(v))}
	case int64:
		return []*qdrant.Condition{qdrant.NewMatchInt(c.Field, v)}
	case float64:
		// JSON numbers arrive as float64; only integral values can use a match.
		if v == math.Trunc(v) {
			return []*qdrant.Condition{qdrant.NewMatchInt(c.Field, int64(v))}
		}
		return []*qdrant.Condition{qdrant.NewRange(c.Field, &qdrant.Range{Gte: &v, Lte: &v})}
	default:
		return nil
	}
}

func convertMatchAny(field string, values []any, except bool) []*qdrant.Condition {
	if len(values) == 0 {
		return nil
	}

	switch values[0].(type) {
	case string:
		strs := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.(string); ok {
				strs = append(strs, s)
			}
		}
		if except {
			return []*qdrant.Condition{qdrant.NewMatchExceptKeywords(field, strs...)}
		}
		return []*qdrant.Condition{qdrant.NewMatchKeywords(field, strs...)}
	case int, int64, float64:
		ints := make([]int64, 0, len(values))
		for _, v := range values {
			switch n := v.(type) {
			case int:
				ints = append(ints, int64(n))
			case int64:
				ints = append(ints, n)
			case float64:
				ints = append(ints, int64(n))
			}
		}
		if except {
			return []*qdrant.Condition{qdrant.NewMatchExceptInts(field, ints...)}
		}
		return []*qdrant.Condition{qdrant.NewMatchInts(field, ints...)}
	}
	return nil
}

func convertNumericRangeCondition(c *vectordb.NumericRangeCondition) []*qdrant.Condition {
	rangeFilter := &qdrant.Range{
		Gt:  c.Range.Gt,
		Gte: c.Range.Gte,
		Lt:  c.Range.Lt,
		Lte: c.Range.Lte,
	}

	if rangeFilter.Gt == nil && rangeFilter.Gte == nil &&
		rangeFilter.Lt == nil && rangeFilter.Lte == nil {
		return nil
	}

	return []*qdrant.Condition{qdrant.NewRange(c.Field, rangeFilter)}
}

func convertTimeRangeCondition(c *vectordb.TimeRangeCondition) []*qdrant.Condition {
	dateRange := &qdrant.DatetimeRange{
		Gt:  toTimestamp(c.Range.Gt),
		Gte: toTimestamp(c.Range.Gte),
		Lt:  toTimestamp(c.Range.Lt),
		Lte: toTimestamp(c.Range.Lte),
	}

	if dateRange.Gt == nil && dateRange.Gte == nil &&
		dateRange.Lt == nil && dateRange.Lte == nil {
		return nil
	}

	return []*qdrant.Condition{qdrant.NewDatetimeRange(c.Field, dateRange)}
}

func toTimestamp(t *time.Time) *timestamppb.Timestamp {
	if t == nil {
		return nil
	}
	return timestamppb.New(*t)
}
