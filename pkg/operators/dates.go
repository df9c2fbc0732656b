package operators

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order when coercing a string operand to a date.
// "02-Jan-2006" matches how scanned invoices usually print dates.
var dateLayouts = []string{
	"02-Jan-2006",
	time.RFC3339,
	"2006-01-02",
}

// ParseDate coerces an operand into a date. Accepts time values directly and
// strings in any of the supported layouts.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case *time.Time:
		if d == nil {
			return time.Time{}, fmt.Errorf("nil date")
		}
		return *d, nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", d)
	default:
		return time.Time{}, fmt.Errorf("operand %v (%T) is not a date", v, v)
	}
}

func bothDates(a, b any) (time.Time, time.Time, error) {
	at, err := ParseDate(a)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("left operand: %w", err)
	}
	bt, err := ParseDate(b)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("right operand: %w", err)
	}
	return at, bt, nil
}
