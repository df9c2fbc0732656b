package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocuments() map[string]any {
	return map[string]any{
		"invoice": map[string]any{
			"doc_type": "invoice",
			"vendor":   "generic",
			"fields": map[string]any{
				"po_number":      "1002475",
				"invoice_number": "626867-ADS1-1",
				"invoice_date":   "12-Aug-2023",
				"currency":       "AED",
				"total_amount":   "168.70",
				"line_items": []any{
					map[string]any{"description": "Widget", "qty": 2.0, "unit_price": 10.0},
					map[string]any{"description": "Gadget", "qty": 3.0, "unit_price": 5.5},
				},
			},
		},
		"purchase_order": map[string]any{
			"doc_type": "purchase_order",
			"fields": map[string]any{
				"po_number": "1002475",
			},
		},
		"reference": map[string]any{
			"approved_vendors":   []any{"generic", "TechSupply Inc."},
			"allowed_currencies": []any{"AED", "USD"},
		},
	}
}

func TestResolve(t *testing.T) {
	docs := sampleDocuments()

	tests := []struct {
		name     string
		path     string
		expected any
	}{
		{
			name:     "top-level document key",
			path:     "invoice.vendor",
			expected: "generic",
		},
		{
			name:     "fields fallback without naming fields",
			path:     "invoice.po_number",
			expected: "1002475",
		},
		{
			name:     "explicit fields segment",
			path:     "invoice.fields.po_number",
			expected: "1002475",
		},
		{
			name:     "cross-document path",
			path:     "purchase_order.po_number",
			expected: "1002475",
		},
		{
			name:     "list index",
			path:     "invoice.line_items.0.description",
			expected: "Widget",
		},
		{
			name:     "reference list",
			path:     "reference.approved_vendors.0",
			expected: "generic",
		},
		{
			name:     "missing document type",
			path:     "goods_receipt.po_number",
			expected: nil,
		},
		{
			name:     "missing field",
			path:     "invoice.nonexistent",
			expected: nil,
		},
		{
			name:     "index out of range",
			path:     "invoice.line_items.9.description",
			expected: nil,
		},
		{
			name:     "non-integer index on list",
			path:     "invoice.line_items.first",
			expected: nil,
		},
		{
			name:     "segment applied to scalar",
			path:     "invoice.vendor.name",
			expected: nil,
		},
		{
			name:     "empty path",
			path:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(docs, tt.path))
		})
	}
}

func TestResolveWildcardReturnsList(t *testing.T) {
	docs := sampleDocuments()

	v := Resolve(docs, "invoice.line_items.*")
	rows, ok := Rows(v)
	require.True(t, ok)
	assert.Len(t, rows, 2)
	assert.Equal(t, "Widget", rows[0]["description"])
}

func TestResolveNeverPanics(t *testing.T) {
	shapes := []map[string]any{
		nil,
		{},
		{"doc": "scalar"},
		{"doc": []any{1, 2, 3}},
		{"doc": map[string]any{"fields": "not-a-map"}},
	}

	for _, data := range shapes {
		assert.NotPanics(t, func() {
			_ = Resolve(data, "doc.fields.anything.0.deep")
		})
	}
}

func TestAggregate(t *testing.T) {
	rows := []map[string]any{
		{"qty": 2.0},
		{"qty": 3.0},
		{"qty": "x"},
	}

	tests := []struct {
		name     string
		rows     []map[string]any
		field    string
		kind     AggregateKind
		expected *float64
	}{
		{
			name:     "sum skips non-numeric rows",
			rows:     rows,
			field:    "qty",
			kind:     AggregateSum,
			expected: floatPtr(5),
		},
		{
			name:     "max",
			rows:     rows,
			field:    "qty",
			kind:     AggregateMax,
			expected: floatPtr(3),
		},
		{
			name:     "min",
			rows:     rows,
			field:    "qty",
			kind:     AggregateMin,
			expected: floatPtr(2),
		},
		{
			name:     "missing column yields nil",
			rows:     rows,
			field:    "price",
			kind:     AggregateSum,
			expected: nil,
		},
		{
			name:     "empty rows yield nil",
			rows:     nil,
			field:    "qty",
			kind:     AggregateSum,
			expected: nil,
		},
		{
			name:     "unknown kind yields nil",
			rows:     rows,
			field:    "qty",
			kind:     AggregateKind("avg"),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.rows, tt.field, tt.kind)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 1e-9)
		})
	}
}

func TestAggregateNumericStrings(t *testing.T) {
	rows := []map[string]any{
		{"amount": "1,168.70"},
		{"amount": "31.30"},
	}

	got := Aggregate(rows, "amount", AggregateSum)
	require.NotNil(t, got)
	assert.InDelta(t, 1200.0, *got, 1e-9)
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected float64
		ok       bool
	}{
		{"float64", 42.5, 42.5, true},
		{"int", 7, 7, true},
		{"numeric string", "168.70", 168.7, true},
		{"thousands separator", "1,002,475", 1002475, true},
		{"padded string", " 12 ", 12, true},
		{"non-numeric string", "x", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
		{"map", map[string]any{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 1e-9)
			}
		})
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
