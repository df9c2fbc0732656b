// Package resolver implements dotted field-path resolution over parsed
// document trees. Documents are heterogeneous (flat metadata, a nested
// "fields" map, line-item tables); the resolver gives rule authors one uniform
// addressing scheme across all of them.
package resolver

import (
	"strconv"
	"strings"
)

// Resolve walks a dot-separated path through the document tree and returns the
// value it lands on, or nil when any step misses. It never panics: missing
// keys, non-integer list indexes, out-of-range indexes, and segments applied
// to scalars all resolve to nil.
//
// At each mapping the segment is tried as a direct key first; if the mapping
// carries a "fields" sub-map the segment is then tried there, so
// "invoice.po_number" reaches invoice.fields.po_number without spelling out
// "fields" in every path. On a list the segment "*" returns the whole list
// (used by aggregation) and an integer segment indexes into it.
func Resolve(data map[string]any, path string) any {
	if path == "" {
		return nil
	}

	var current any = data
	for _, segment := range strings.Split(path, ".") {
		current = step(current, segment)
		if current == nil {
			return nil
		}
	}
	return current
}

func step(current any, segment string) any {
	switch node := current.(type) {
	case map[string]any:
		if v, ok := node[segment]; ok {
			return v
		}
		if fields, ok := node["fields"].(map[string]any); ok {
			if v, ok := fields[segment]; ok {
				return v
			}
		}
		return nil
	case []any:
		if segment == "*" {
			return node
		}
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil
		}
		return node[idx]
	case []map[string]any:
		return step(toAnySlice(node), segment)
	default:
		return nil
	}
}

func toAnySlice(rows []map[string]any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// Rows coerces a resolved value into a list of row maps, the shape line-item
// tables take after JSON decoding.
func Rows(v any) ([]map[string]any, bool) {
	switch rows := v.(type) {
	case []map[string]any:
		return rows, true
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			m, ok := r.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	default:
		return nil, false
	}
}
