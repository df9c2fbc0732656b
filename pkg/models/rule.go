package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CheckType names the comparison semantics applied to the rule's two operands
type CheckType string

const (
	CheckTypeEquality        CheckType = "equality"
	CheckTypeLessThanOrEqual CheckType = "less_than_or_equal"
	CheckTypeTolerance       CheckType = "tolerance"
	CheckTypeLookup          CheckType = "lookup"
	CheckTypeDateAfter       CheckType = "date_after"
	CheckTypeDateBefore      CheckType = "date_before"
	CheckTypeExpression      CheckType = "expression"
)

// Rule is a declarative compliance check over a document set.
//
// Fields holds exactly one left/right pair: the key is the left field path, the
// value is the right operand (a path, a literal, a list_path[*].column aggregate
// expression, a reference.<name> lookup, or for expression checks a two-element
// [quantity_path, unit_price_path] pair). Multi-condition checks are composed
// externally by issuing multiple rules.
type Rule struct {
	ID          string         `json:"rule_id" db:"id"`
	TenantID    string         `json:"tenant_id,omitempty" db:"tenant_id"`
	Description string         `json:"description,omitempty" db:"description"`
	AppliesTo   []string       `json:"applies_to" db:"-"`
	Fields      map[string]any `json:"fields" db:"-"`
	CheckType   CheckType      `json:"check_type" db:"check_type"`
	Parameters  map[string]any `json:"parameters,omitempty" db:"-"`
	OnFail      string         `json:"on_fail" db:"on_fail"`
	IsActive    bool           `json:"is_active" db:"is_active"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FieldPair returns the rule's single left path and right operand.
func (r *Rule) FieldPair() (string, any, error) {
	if len(r.Fields) != 1 {
		return "", nil, fmt.Errorf("rule %s: expected exactly one field pair, got %d", r.ID, len(r.Fields))
	}
	for left, right := range r.Fields {
		return left, right, nil
	}
	return "", nil, fmt.Errorf("rule %s: no field pair", r.ID)
}

// TolerancePercent reads the tolerance_percent parameter, 0 when absent.
func (r *Rule) TolerancePercent() float64 {
	if r.Parameters == nil {
		return 0
	}
	switch v := r.Parameters["tolerance_percent"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// CreateRuleRequest is the request to create a rule
type CreateRuleRequest struct {
	RuleID      string         `json:"rule_id" validate:"required"`
	Description string         `json:"description,omitempty"`
	AppliesTo   []string       `json:"applies_to" validate:"required,min=1"`
	Fields      map[string]any `json:"fields" validate:"required,len=1"`
	CheckType   CheckType      `json:"check_type" validate:"required"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	OnFail      string         `json:"on_fail" validate:"required"`
	IsActive    bool           `json:"is_active"`
}

// UpdateRuleRequest is the request to update a rule
type UpdateRuleRequest struct {
	Description *string        `json:"description,omitempty"`
	AppliesTo   []string       `json:"applies_to,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	CheckType   *CheckType     `json:"check_type,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	OnFail      *string        `json:"on_fail,omitempty"`
	IsActive    *bool          `json:"is_active,omitempty"`
}

// ValidCheckType reports whether the named check type is one this engine implements.
func ValidCheckType(ct CheckType) bool {
	switch ct {
	case CheckTypeEquality, CheckTypeLessThanOrEqual, CheckTypeTolerance,
		CheckTypeLookup, CheckTypeDateAfter, CheckTypeDateBefore, CheckTypeExpression:
		return true
	default:
		return false
	}
}
