package evaluator

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditkit/papertrail/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func amountPtr(f float64) *float64 { return &f }

func testDocuments() models.DocumentSet {
	return models.DocumentSet{
		"invoice": &models.Document{
			DocType:        models.DocumentTypeInvoice,
			Vendor:         "generic",
			DocumentNumber: "626867-ADS1-1",
			TotalAmount:    amountPtr(168.70),
			Currency:       "AED",
			Fields: map[string]any{
				"po_number":    "1002475",
				"invoice_date": "12-Aug-2023",
				"po_date":      "01-Aug-2023",
				"total_amount": "168.70",
				"line_items": []any{
					map[string]any{"description": "Widget", "qty": 2.0, "unit_price": 10.0, "line_total": 20.0},
					map[string]any{"description": "Gadget", "qty": 3.0, "unit_price": 5.5, "line_total": 16.5},
				},
			},
		},
		"purchase_order": &models.Document{
			DocType: models.DocumentTypePurchaseOrder,
			Fields: map[string]any{
				"po_number":    "1002475",
				"total_amount": 170.0,
			},
		},
		"reference": &models.Document{
			DocType: models.DocumentTypeReference,
			Reference: map[string]any{
				"approved_vendors":   []any{"generic", "TechSupply Inc."},
				"allowed_currencies": []any{"AED", "USD"},
			},
		},
	}
}

func TestParseOperand(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected Operand
		wantErr  bool
	}{
		{
			name:     "numeric value",
			raw:      170.0,
			expected: Operand{Kind: OperandLiteral, Raw: 170.0, Literal: 170.0},
		},
		{
			name:     "numeric string",
			raw:      "170",
			expected: Operand{Kind: OperandLiteral, Raw: "170", Literal: 170.0},
		},
		{
			name:     "numeric string with thousands separators",
			raw:      "1,002,475",
			expected: Operand{Kind: OperandLiteral, Raw: "1,002,475", Literal: 1002475.0},
		},
		{
			name:     "aggregate expression",
			raw:      "invoice.line_items[*].qty",
			expected: Operand{Kind: OperandAggregate, Raw: "invoice.line_items[*].qty", ListPath: "invoice.line_items", Column: "qty"},
		},
		{
			name:     "reference lookup",
			raw:      "reference.approved_vendors",
			expected: Operand{Kind: OperandReference, Raw: "reference.approved_vendors", Path: "approved_vendors"},
		},
		{
			name:     "plain path",
			raw:      "purchase_order.po_number",
			expected: Operand{Kind: OperandPath, Raw: "purchase_order.po_number", Path: "purchase_order.po_number"},
		},
		{
			name:    "aggregate without column",
			raw:     "invoice.line_items[*]",
			wantErr: true,
		},
		{
			name:    "aggregate without list path",
			raw:     "[*].qty",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOperand(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOperandResolveReferenceDefaultsToEmptyList(t *testing.T) {
	docs := testDocuments().Materialize()

	op, err := ParseOperand("reference.approved_buyers")
	require.NoError(t, err)
	assert.Equal(t, []any{}, op.Resolve(docs))

	op, err = ParseOperand("reference.approved_vendors")
	require.NoError(t, err)
	assert.Equal(t, []any{"generic", "TechSupply Inc."}, op.Resolve(docs))
}

func TestEvaluateEquality(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "po-match",
		AppliesTo: []string{"invoice", "purchase_order"},
		Fields:    map[string]any{"invoice.po_number": "purchase_order.po_number"},
		CheckType: models.CheckTypeEquality,
		OnFail:    "PO number on invoice does not match purchase order",
	}

	result := e.Evaluate(rule, testDocuments())

	assert.Equal(t, models.EvaluationStatusPass, result.Result)
	assert.Nil(t, result.Reason)
	assert.Equal(t, "1002475", result.Details["invoice.po_number"])
	assert.Equal(t, "1002475", result.Details["purchase_order.po_number"])
}

func TestEvaluateFailCarriesOnFailReason(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "currency-check",
		Fields:    map[string]any{"invoice.currency": "EUR"},
		CheckType: models.CheckTypeEquality,
		OnFail:    "invoice currency is not the expected one",
	}

	result := e.Evaluate(rule, testDocuments())

	assert.Equal(t, models.EvaluationStatusFail, result.Result)
	require.NotNil(t, result.Reason)
	assert.Equal(t, rule.OnFail, *result.Reason)
}

func TestEvaluateTolerance(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:         "amount-tolerance",
		Fields:     map[string]any{"invoice.total_amount": "purchase_order.total_amount"},
		CheckType:  models.CheckTypeTolerance,
		Parameters: map[string]any{"tolerance_percent": 3.0},
		OnFail:     "invoice total deviates from PO total beyond tolerance",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusPass, result.Result)

	rule.Parameters = map[string]any{"tolerance_percent": 0.5}
	result = e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusFail, result.Result)
}

func TestEvaluateLookupAgainstReference(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "approved-vendor",
		Fields:    map[string]any{"invoice.vendor": "reference.approved_vendors"},
		CheckType: models.CheckTypeLookup,
		OnFail:    "vendor is not on the approved list",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusPass, result.Result)

	docs := testDocuments()
	docs["invoice"].Vendor = "Acme"
	result = e.Evaluate(rule, docs)
	assert.Equal(t, models.EvaluationStatusFail, result.Result)

	// a missing allow-list behaves as empty, so lookups fail instead of erroring
	delete(docs["reference"].Reference, "approved_vendors")
	result = e.Evaluate(rule, docs)
	assert.Equal(t, models.EvaluationStatusFail, result.Result)
}

func TestEvaluateAggregateOperand(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "qty-sum",
		Fields:    map[string]any{"purchase_order.total_amount": "invoice.line_items[*].line_total"},
		CheckType: models.CheckTypeLessThanOrEqual,
		OnFail:    "PO total is below the invoiced line totals",
	}

	docs := testDocuments()
	result := e.Evaluate(rule, docs)

	// 170.0 <= 36.5 is false
	assert.Equal(t, models.EvaluationStatusFail, result.Result)
	assert.Equal(t, 36.5, result.Details["invoice.line_items[*].line_total"])
}

func TestEvaluateDates(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "invoice-after-po",
		Fields:    map[string]any{"invoice.invoice_date": "invoice.po_date"},
		CheckType: models.CheckTypeDateAfter,
		OnFail:    "invoice is dated before its purchase order",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusPass, result.Result)
}

func TestEvaluateExpression(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID: "line-total",
		Fields: map[string]any{
			"invoice.line_items.0.line_total": []any{
				"invoice.line_items.0.qty",
				"invoice.line_items.0.unit_price",
			},
		},
		CheckType: models.CheckTypeExpression,
		OnFail:    "line total does not equal quantity times unit price",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusPass, result.Result)
	assert.Equal(t, 20.0, result.Details["computed_value"])

	docs := testDocuments()
	rows := docs["invoice"].Fields["line_items"].([]any)
	rows[0].(map[string]any)["line_total"] = 20.01
	result = e.Evaluate(rule, docs)
	assert.Equal(t, models.EvaluationStatusFail, result.Result)
}

func TestEvaluateExpressionMalformedOperand(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "bad-expression",
		Fields:    map[string]any{"invoice.total_amount": "invoice.line_items.0.qty"},
		CheckType: models.CheckTypeExpression,
		OnFail:    "unused",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusError, result.Result)
	require.NotNil(t, result.Reason)
}

func TestEvaluateCoercionFailureIsFailNotError(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "amount-le",
		Fields:    map[string]any{"invoice.vendor": "purchase_order.total_amount"},
		CheckType: models.CheckTypeLessThanOrEqual,
		OnFail:    "amount exceeds limit",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusFail, result.Result)
	require.NotNil(t, result.Reason)
	assert.Equal(t, rule.OnFail, *result.Reason)
}

func TestEvaluateMissingPathRecordsNullDetail(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "missing-field",
		Fields:    map[string]any{"invoice.grand_total": "purchase_order.total_amount"},
		CheckType: models.CheckTypeEquality,
		OnFail:    "totals differ",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusFail, result.Result)

	v, recorded := result.Details["invoice.grand_total"]
	assert.True(t, recorded)
	assert.Nil(t, v)
}

func TestEvaluateUnknownCheckType(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID:        "regex-rule",
		Fields:    map[string]any{"invoice.po_number": "1002475"},
		CheckType: models.CheckType("regex"),
		OnFail:    "unused",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusError, result.Result)
	require.NotNil(t, result.Reason)
	assert.Contains(t, *result.Reason, "regex")
}

func TestEvaluateBadFieldPair(t *testing.T) {
	e := New(testLogger())
	rule := &models.Rule{
		ID: "two-pairs",
		Fields: map[string]any{
			"invoice.po_number": "purchase_order.po_number",
			"invoice.currency":  "AED",
		},
		CheckType: models.CheckTypeEquality,
		OnFail:    "unused",
	}

	result := e.Evaluate(rule, testDocuments())
	assert.Equal(t, models.EvaluationStatusError, result.Result)
}

func TestApplicableFiltersMissingDocumentTypes(t *testing.T) {
	rules := []*models.Rule{
		{ID: "r1", AppliesTo: []string{"invoice", "purchase_order"}},
		{ID: "r2", AppliesTo: []string{"invoice", "goods_receipt"}},
		{ID: "r3", AppliesTo: []string{"invoice"}},
	}

	applicable := Applicable(rules, testDocuments())

	require.Len(t, applicable, 2)
	assert.Equal(t, "r1", applicable[0].ID)
	assert.Equal(t, "r3", applicable[1].ID)
}

func TestBatchEvaluateAll(t *testing.T) {
	e := New(testLogger())
	batch := NewBatch(e, 4, testLogger())

	rules := []*models.Rule{
		{
			ID:        "po-match",
			AppliesTo: []string{"invoice", "purchase_order"},
			Fields:    map[string]any{"invoice.po_number": "purchase_order.po_number"},
			CheckType: models.CheckTypeEquality,
			OnFail:    "PO mismatch",
		},
		{
			ID:        "currency-check",
			AppliesTo: []string{"invoice"},
			Fields:    map[string]any{"invoice.currency": "reference.allowed_currencies"},
			CheckType: models.CheckTypeLookup,
			OnFail:    "currency not allowed",
		},
		{
			ID:        "broken",
			AppliesTo: []string{"invoice"},
			Fields:    map[string]any{"invoice.currency": "invoice.line_items[*]"},
			CheckType: models.CheckTypeLookup,
			OnFail:    "unused",
		},
	}

	results := batch.EvaluateAll(context.Background(), rules, testDocuments())

	require.Len(t, results, 3)
	assert.Equal(t, "po-match", results[0].RuleID)
	assert.Equal(t, models.EvaluationStatusPass, results[0].Result)
	assert.Equal(t, models.EvaluationStatusPass, results[1].Result)
	assert.Equal(t, models.EvaluationStatusError, results[2].Result)

	summary := models.Summarize(results)
	assert.Equal(t, 3, summary.TotalRules)
	assert.Equal(t, 2, summary.PassedRules)
	assert.Equal(t, 1, summary.ErrorRules)
	assert.InDelta(t, 66.66, summary.PassRate, 0.1)
}
