package validator

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// String reports v as a string when it is one. Surrounding whitespace is trimmed.
func String(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// Int converts a decoded JSON scalar to an int. It accepts json.Number,
// float64 and numeric strings, and rejects anything with a fractional part.
func Int(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		return parseInt(n.String())
	case string:
		return parseInt(strings.TrimSpace(n))
	case float64:
		return floatToInt(n)
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt(f)
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
