package migrate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layouts tried, in order, when a legacy date arrives as text.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// text renders a legacy value as a trimmed string; nil becomes "".
// Integral floats lose their ".0" so numeric ids read like ids.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return text(float64(x))
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// textOr returns text(v), or def when that is empty.
func textOr(v any, def string) string {
	if s := text(v); s != "" {
		return s
	}
	return def
}

// truthy follows the legacy scripts: any present, non-zero, non-false value counts.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case int32:
		return x != 0
	case int:
		return x != 0
	case float64:
		return x != 0
	default:
		switch strings.ToLower(text(x)) {
		case "", "0", "false", "no", "n":
			return false
		}
		return true
	}
}

// intID parses a legacy key. Missing and fractional values are errors.
func intID(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing id")
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("id %v is not whole", x)
		}
		return int64(x), nil
	default:
		s := text(x)
		if s == "" {
			return 0, fmt.Errorf("missing id")
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("invalid id %q", s)
		}
		return int64(f), nil
	}
}

// money parses an amount; a missing value is zero.
func money(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case float64:
		return decimal.NewFromFloat(x).Round(2), nil
	case float32:
		return decimal.NewFromFloat32(x).Round(2), nil
	case decimal.Decimal:
		return x, nil
	default:
		s := strings.ReplaceAll(text(x), ",", "")
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q", s)
		}
		return d.Round(2), nil
	}
}

// optMoney is money for nullable columns: a missing or zero value stays null.
func optMoney(v any) decimal.NullDecimal {
	d, err := money(v)
	if err != nil || d.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// optDate parses a legacy date, returning nil when absent or unreadable.
func optDate(v any) *time.Time {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return &x
	default:
		s := text(x)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
		return nil
	}
}

// dateOr parses a legacy date, falling back to def.
func dateOr(v any, def time.Time) time.Time {
	if t := optDate(v); t != nil {
		return *t
	}
	return def
}

// period reads a loan period in weeks; missing or non-positive values become one week.
func period(v any) int {
	n, err := intID(v)
	if err != nil {
		f, ferr := money(v)
		if ferr != nil {
			return 1
		}
		n = f.IntPart()
	}
	if n < 1 {
		return 1
	}
	return int(n)
}
