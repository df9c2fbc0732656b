package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		normalizer string
		input      string
		expected   string
	}{
		{"lowercase", "lowercase", "TechSupply", "techsupply"},
		{"uppercase", "uppercase", "aed", "AED"},
		{"trim", "trim", "  INV-1  ", "INV-1"},
		{"collapse whitespace", "collapse_whitespace", "  TechSupply   Inc.  ", "TechSupply Inc."},
		{"alphanumeric", "alphanumeric", "INV-2023/0042", "INV20230042"},
		{"document number", "document_number", "inv 2023-0042", "INV2023-0042"},
		{"vendor name", "vendor_name", " TechSupply   Inc. ", "TechSupply Inc."},
		{"currency", "currency", " usd ", "USD"},
		{"unknown passes through", "soundex", "value", "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Apply(tt.input, tt.normalizer))
		})
	}
}

func TestApplyChain(t *testing.T) {
	got := ApplyChain("  inv 2023-0042  ", "trim", "document_number")
	assert.Equal(t, "INV2023-0042", got)
}

func TestRegisterCustom(t *testing.T) {
	Register("reverse_test", func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})

	fn, ok := Get("reverse_test")
	assert.True(t, ok)
	assert.Equal(t, "cba", fn("abc"))
}
