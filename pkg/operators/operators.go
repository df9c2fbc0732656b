// Package operators implements the comparison semantics behind each rule
// check type. Operand resolution happens in the evaluator; operators only see
// the two resolved values.
package operators

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/resolver"
)

// ErrUnknownCheckType is returned for a check type this engine does not implement.
var ErrUnknownCheckType = errors.New("unknown check type")

// Options carries check-type specific parameters.
type Options struct {
	// TolerancePercent is the allowed deviation for tolerance checks,
	// expressed as a percentage of the right operand.
	TolerancePercent float64
}

// Compare applies the named check to two resolved operands. Operands that
// cannot be coerced into the shape the check needs produce an error rather
// than a silent false; the caller decides how to fold that into a verdict.
func Compare(check models.CheckType, a, b any, opts Options) (bool, error) {
	switch check {
	case models.CheckTypeEquality:
		return equal(a, b), nil
	case models.CheckTypeLessThanOrEqual:
		af, bf, err := bothFloats(a, b)
		if err != nil {
			return false, err
		}
		return af <= bf, nil
	case models.CheckTypeTolerance:
		return withinTolerance(a, b, opts.TolerancePercent)
	case models.CheckTypeLookup:
		return lookup(a, b)
	case models.CheckTypeDateAfter:
		at, bt, err := bothDates(a, b)
		if err != nil {
			return false, err
		}
		return at.After(bt), nil
	case models.CheckTypeDateBefore:
		at, bt, err := bothDates(a, b)
		if err != nil {
			return false, err
		}
		return at.Before(bt), nil
	case models.CheckTypeExpression:
		af, bf, err := bothFloats(a, b)
		if err != nil {
			return false, err
		}
		return af == bf, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownCheckType, check)
	}
}

// equal compares without cross-type coercion: the string "100" never equals
// the number 100. Numeric values of different widths still compare by value
// since decoded JSON is not guaranteed to carry a single numeric type.
func equal(a, b any) bool {
	if af, aok := numeric(a); aok {
		bf, bok := numeric(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// withinTolerance checks |a-b| <= pct% of |b|. The window is relative to the
// right operand and boundary values pass. A zero right operand admits no
// window at all, so anything but an exact zero fails.
func withinTolerance(a, b any, pct float64) (bool, error) {
	af, bf, err := bothFloats(a, b)
	if err != nil {
		return false, err
	}
	if bf == 0 {
		return af == 0, nil
	}
	return math.Abs(af-bf) <= pct/100*math.Abs(bf), nil
}

// lookup reports whether a appears in the list b.
func lookup(a, b any) (bool, error) {
	items, ok := b.([]any)
	if !ok {
		return false, fmt.Errorf("lookup target is %T, expected a list", b)
	}
	for _, item := range items {
		if equal(a, item) {
			return true, nil
		}
	}
	return false, nil
}

func bothFloats(a, b any) (float64, float64, error) {
	af, ok := resolver.ToFloat(a)
	if !ok {
		return 0, 0, fmt.Errorf("left operand %v (%T) is not numeric", a, a)
	}
	bf, ok := resolver.ToFloat(b)
	if !ok {
		return 0, 0, fmt.Errorf("right operand %v (%T) is not numeric", b, b)
	}
	return af, bf, nil
}

// numeric is like resolver.ToFloat but rejects strings, which must not
// silently equal numbers under equality checks.
func numeric(v any) (float64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return resolver.ToFloat(v)
}
