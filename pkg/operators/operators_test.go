package operators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditkit/papertrail/pkg/models"
)

func TestCompareEquality(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		expected bool
	}{
		{"equal strings", "1002475", "1002475", true},
		{"unequal strings", "1002475", "1002476", false},
		{"equal floats", 168.7, 168.7, true},
		{"int vs float same value", 100, 100.0, true},
		{"string never equals number", "100", 100.0, false},
		{"number never equals string", 100.0, "100", false},
		{"equal lists", []any{"a", "b"}, []any{"a", "b"}, true},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(models.CheckTypeEquality, tt.a, tt.b, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompareLessThanOrEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		expected bool
		wantErr  bool
	}{
		{"less", 99.0, 100.0, true, false},
		{"equal boundary", 100.0, 100.0, true, false},
		{"greater", 100.01, 100.0, false, false},
		{"numeric strings coerced", "168.70", "200", true, false},
		{"non-numeric left", "abc", 100.0, false, true},
		{"non-numeric right", 100.0, []any{}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(models.CheckTypeLessThanOrEqual, tt.a, tt.b, Options{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompareTolerance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		pct      float64
		expected bool
	}{
		{"inside window", 101.0, 100.0, 3, true},
		{"exact boundary passes", 103.0, 100.0, 3, true},
		{"just outside", 103.01, 100.0, 3, false},
		{"below window boundary", 97.0, 100.0, 3, true},
		{"window relative to right operand", 100.0, 103.0, 3, true},
		{"zero right operand rejects nonzero", 0.5, 0.0, 50, false},
		{"zero right operand admits zero", 0.0, 0.0, 3, true},
		{"zero tolerance needs exact match", 100.0, 100.0, 0, true},
		{"zero tolerance rejects drift", 100.0001, 100.0, 0, false},
		{"negative amounts", -103.0, -100.0, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(models.CheckTypeTolerance, tt.a, tt.b, Options{TolerancePercent: tt.pct})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompareLookup(t *testing.T) {
	vendors := []any{"generic", "TechSupply Inc."}

	tests := []struct {
		name     string
		a, b     any
		expected bool
		wantErr  bool
	}{
		{"member", "generic", vendors, true, false},
		{"non-member", "Acme", vendors, false, false},
		{"empty list", "generic", []any{}, false, false},
		{"numeric member", 5.0, []any{1.0, 5.0}, true, false},
		{"target not a list", "generic", "generic", false, true},
		{"target nil", "generic", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(models.CheckTypeLookup, tt.a, tt.b, Options{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompareDates(t *testing.T) {
	tests := []struct {
		name     string
		check    models.CheckType
		a, b     any
		expected bool
		wantErr  bool
	}{
		{"after", models.CheckTypeDateAfter, "13-Aug-2023", "12-Aug-2023", true, false},
		{"not after when equal", models.CheckTypeDateAfter, "12-Aug-2023", "12-Aug-2023", false, false},
		{"before", models.CheckTypeDateBefore, "11-Aug-2023", "12-Aug-2023", true, false},
		{"not before when equal", models.CheckTypeDateBefore, "12-Aug-2023", "12-Aug-2023", false, false},
		{"mixed layouts", models.CheckTypeDateAfter, "2023-08-13", "12-Aug-2023", true, false},
		{"rfc3339", models.CheckTypeDateBefore, "2023-08-11T10:00:00Z", "12-Aug-2023", true, false},
		{"unparseable left", models.CheckTypeDateAfter, "someday", "12-Aug-2023", false, true},
		{"unparseable right", models.CheckTypeDateBefore, "12-Aug-2023", 42.0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.check, tt.a, tt.b, Options{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompareExpression(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		expected bool
	}{
		{"exact product", 30.0, 30.0, true},
		{"strict inequality", 30.0, 30.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(models.CheckTypeExpression, tt.a, tt.b, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompareUnknownCheckType(t *testing.T) {
	_, err := Compare(models.CheckType("regex"), "a", "b", Options{})
	require.ErrorIs(t, err, ErrUnknownCheckType)
}

func TestParseDate(t *testing.T) {
	ts := time.Date(2023, time.August, 12, 0, 0, 0, 0, time.UTC)

	got, err := ParseDate("12-Aug-2023")
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	got, err = ParseDate(ts)
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	got, err = ParseDate(&ts)
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	_, err = ParseDate((*time.Time)(nil))
	require.Error(t, err)

	_, err = ParseDate(nil)
	require.Error(t, err)
}
