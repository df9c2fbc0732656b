// Package evaluator applies compliance rules to document sets and produces
// structured verdicts. It never raises past its public entry points: every
// failure mode is folded into the result.
package evaluator

import (
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/operators"
	"github.com/auditkit/papertrail/pkg/resolver"
)

// Evaluator evaluates a single rule against a document set
type Evaluator struct {
	logger ectologger.Logger
}

// New creates a rule evaluator
func New(logger ectologger.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate produces the verdict for one rule over one document set.
//
// A false comparison or an operand that cannot be coerced yields "fail" with
// the rule's on_fail reason. A malformed rule (bad field pair, unknown check
// type, malformed aggregate expression) yields "error" with a reason naming
// what was wrong. Details always record every operand path and its resolved
// value, nulls included, so a verdict can be audited without re-running.
func (e *Evaluator) Evaluate(rule *models.Rule, docs models.DocumentSet) models.EvaluationResult {
	details := make(map[string]any)
	materialized := docs.Materialize()

	leftPath, right, err := rule.FieldPair()
	if err != nil {
		return errorResult(rule, err.Error(), details)
	}

	if !models.ValidCheckType(rule.CheckType) {
		return errorResult(rule, fmt.Sprintf("unknown check type %q", rule.CheckType), details)
	}

	if rule.CheckType == models.CheckTypeExpression {
		return e.evaluateExpression(rule, materialized, leftPath, right, details)
	}

	a := resolver.Resolve(materialized, leftPath)
	details[leftPath] = a

	operand, err := ParseOperand(right)
	if err != nil {
		return errorResult(rule, err.Error(), details)
	}

	b := operand.Resolve(materialized)
	if s, ok := right.(string); ok && operand.Kind != OperandLiteral {
		details[s] = b
	}

	passed, err := operators.Compare(rule.CheckType, a, b, operators.Options{
		TolerancePercent: rule.TolerancePercent(),
	})
	if err != nil {
		if errors.Is(err, operators.ErrUnknownCheckType) {
			return errorResult(rule, err.Error(), details)
		}
		// Coercion failures count as a failed comparison, not a broken rule.
		e.logger.WithFields(map[string]any{"rule_id": rule.ID}).WithError(err).Debug("operand coercion failed")
		passed = false
	}

	return verdict(rule, passed, details)
}

// evaluateExpression handles the expression check: the left path holds the
// value to validate and the right operand is a two-element list naming the
// quantity and unit price paths whose product it must equal.
func (e *Evaluator) evaluateExpression(rule *models.Rule, docs map[string]any, leftPath string, right any, details map[string]any) models.EvaluationResult {
	qtyPath, pricePath, err := expressionPaths(right)
	if err != nil {
		return errorResult(rule, err.Error(), details)
	}

	a := resolver.Resolve(docs, leftPath)
	qty := resolver.Resolve(docs, qtyPath)
	price := resolver.Resolve(docs, pricePath)
	details[leftPath] = a
	details[qtyPath] = qty
	details[pricePath] = price

	qf, qok := resolver.ToFloat(qty)
	pf, pok := resolver.ToFloat(price)
	if !qok || !pok {
		return verdict(rule, false, details)
	}
	product := qf * pf
	details["computed_value"] = product

	passed, err := operators.Compare(models.CheckTypeExpression, a, product, operators.Options{})
	if err != nil {
		e.logger.WithFields(map[string]any{"rule_id": rule.ID}).WithError(err).Debug("operand coercion failed")
		passed = false
	}
	return verdict(rule, passed, details)
}

func expressionPaths(right any) (string, string, error) {
	items, ok := right.([]any)
	if !ok || len(items) != 2 {
		return "", "", fmt.Errorf("expression check needs [quantity_path, unit_price_path], got %v", right)
	}
	qtyPath, qok := items[0].(string)
	pricePath, pok := items[1].(string)
	if !qok || !pok {
		return "", "", fmt.Errorf("expression operand paths must be strings, got %v", right)
	}
	return qtyPath, pricePath, nil
}

func verdict(rule *models.Rule, passed bool, details map[string]any) models.EvaluationResult {
	result := models.EvaluationResult{
		RuleID:  rule.ID,
		Result:  models.EvaluationStatusPass,
		Details: details,
	}
	if !passed {
		result.Result = models.EvaluationStatusFail
		reason := rule.OnFail
		result.Reason = &reason
	}
	return result
}

func errorResult(rule *models.Rule, reason string, details map[string]any) models.EvaluationResult {
	return models.EvaluationResult{
		RuleID:  rule.ID,
		Result:  models.EvaluationStatusError,
		Reason:  &reason,
		Details: details,
	}
}
