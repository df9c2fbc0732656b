package resolver

import (
	"encoding/json"
	"strconv"
	"strings"
)

// AggregateKind selects the reduction applied over a table column
type AggregateKind string

const (
	AggregateSum AggregateKind = "sum"
	AggregateMax AggregateKind = "max"
	AggregateMin AggregateKind = "min"
)

// Aggregate reduces a table column to a scalar. Rows missing the column or
// holding a non-numeric value are skipped; when no row contributes, the
// aggregate is nil rather than zero so callers can tell "empty" from "0".
func Aggregate(rows []map[string]any, field string, kind AggregateKind) *float64 {
	var values []float64
	for _, row := range rows {
		v, ok := row[field]
		if !ok {
			continue
		}
		f, ok := ToFloat(v)
		if !ok {
			continue
		}
		values = append(values, f)
	}

	if len(values) == 0 {
		return nil
	}

	result := values[0]
	switch kind {
	case AggregateSum:
		result = 0
		for _, v := range values {
			result += v
		}
	case AggregateMax:
		for _, v := range values[1:] {
			if v > result {
				result = v
			}
		}
	case AggregateMin:
		for _, v := range values[1:] {
			if v < result {
				result = v
			}
		}
	default:
		return nil
	}

	return &result
}

// ToFloat converts scalar values to float64. Numeric strings may carry
// thousands separators ("1,168.70").
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
