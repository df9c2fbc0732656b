package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIsDeterministic(t *testing.T) {
	data := map[string]any{
		"vendor": "Acme Corp",
		"items": []any{
			map[string]any{"sku": "A-1", "qty": 2.0},
			map[string]any{"sku": "B-2", "qty": 1.0},
		},
	}

	first := Generate(data)
	second := Generate(data)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestGenerateIgnoresKeyOrder(t *testing.T) {
	a := map[string]any{"vendor": "Acme", "total": 100.0, "currency": "USD"}
	b := map[string]any{"currency": "USD", "vendor": "Acme", "total": 100.0}

	assert.Equal(t, Generate(a), Generate(b))
}

func TestGenerateDetectsContentChange(t *testing.T) {
	a := map[string]any{"vendor": "Acme", "total": 100.0}
	b := map[string]any{"vendor": "Acme", "total": 100.01}

	assert.True(t, HasChanged(Generate(a), Generate(b)))
}

func TestForDocumentIgnoresFilename(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	amount := 1250.0
	fields := map[string]any{"po_number": "PO-9001"}

	first := ForDocument("invoice", "Acme", "V-1", "INV-1001", "USD", &date, &amount, fields, nil)
	second := ForDocument("invoice", "Acme", "V-1", "INV-1001", "USD", &date, &amount, fields, nil)

	assert.Equal(t, first, second)
}

func TestForDocumentDistinguishesDocuments(t *testing.T) {
	amount := 1250.0
	first := ForDocument("invoice", "Acme", "V-1", "INV-1001", "USD", nil, &amount, nil, nil)
	second := ForDocument("invoice", "Acme", "V-1", "INV-1002", "USD", nil, &amount, nil, nil)

	assert.NotEqual(t, first, second)
}
