package evaluator

import (
	"fmt"
	"strings"

	"github.com/auditkit/papertrail/pkg/resolver"
)

// OperandKind tags how a rule operand is resolved
type OperandKind string

const (
	// OperandLiteral is an inline value: a number, a numeric string, or any
	// non-string scalar
	OperandLiteral OperandKind = "literal"
	// OperandPath is a dotted document path
	OperandPath OperandKind = "path"
	// OperandReference addresses an allow-list in the reference document
	OperandReference OperandKind = "reference"
	// OperandAggregate sums a line-item column via the [*] wildcard
	OperandAggregate OperandKind = "aggregate"
)

const (
	aggregateMarker = "[*]."
	referencePrefix = "reference."
)

// Operand is a parsed rule operand. Parsing happens once, before dispatch, so
// operators never have to sniff string shapes themselves.
type Operand struct {
	Kind     OperandKind
	Raw      any
	Literal  any
	Path     string
	ListPath string
	Column   string
}

// ParseOperand classifies a raw right-hand operand. Detection order matters:
// a numeric string is a literal before it is anything else, and a string
// containing the aggregate marker is an aggregate before it is a path.
func ParseOperand(raw any) (Operand, error) {
	s, isString := raw.(string)
	if !isString {
		return Operand{Kind: OperandLiteral, Raw: raw, Literal: raw}, nil
	}

	if f, ok := resolver.ToFloat(s); ok {
		return Operand{Kind: OperandLiteral, Raw: raw, Literal: f}, nil
	}

	if strings.Contains(s, "[*]") {
		listPath, column, ok := splitAggregate(s)
		if !ok {
			return Operand{}, fmt.Errorf("malformed aggregate expression %q", s)
		}
		return Operand{Kind: OperandAggregate, Raw: raw, ListPath: listPath, Column: column}, nil
	}

	if name, ok := strings.CutPrefix(s, referencePrefix); ok && name != "" {
		return Operand{Kind: OperandReference, Raw: raw, Path: name}, nil
	}

	return Operand{Kind: OperandPath, Raw: raw, Path: s}, nil
}

// splitAggregate breaks "po.line_items[*].qty" into ("po.line_items", "qty").
func splitAggregate(s string) (string, string, bool) {
	idx := strings.Index(s, "[*]")
	listPath := s[:idx]
	rest := s[idx+3:]
	if listPath == "" || !strings.HasPrefix(rest, ".") {
		return "", "", false
	}
	column := rest[1:]
	if column == "" || strings.Contains(column, "[*]") {
		return "", "", false
	}
	return listPath, column, true
}

// Resolve produces the operand's value against a materialized document set.
func (o Operand) Resolve(docs map[string]any) any {
	switch o.Kind {
	case OperandLiteral:
		return o.Literal
	case OperandPath:
		return resolver.Resolve(docs, o.Path)
	case OperandReference:
		// Allow-lists live at the top level of the reference document, never
		// under a "fields" map. A missing list means "nothing is allowed",
		// so lookups against it fail instead of erroring.
		ref, _ := docs["reference"].(map[string]any)
		if v, ok := ref[o.Path]; ok {
			return v
		}
		return []any{}
	case OperandAggregate:
		rows, ok := resolver.Rows(resolver.Resolve(docs, o.ListPath))
		if !ok {
			return nil
		}
		if v := resolver.Aggregate(rows, o.Column, resolver.AggregateSum); v != nil {
			return *v
		}
		return nil
	default:
		return nil
	}
}
