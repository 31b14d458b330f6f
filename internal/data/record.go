package data

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Record is one row of a table keyed by column name. Values are nil,
// int64, float64 or string.
type Record map[string]any

// String returns the value as a string and whether the column is set.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return cast.ToString(v), true
}

// StringOr returns the string value or def when the column is unset.
func (r Record) StringOr(key, def string) string {
	if s, ok := r.String(key); ok {
		return s
	}
	return def
}

// Float returns the value as a float64. Non-numeric values report false.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FloatOr returns the numeric value or def.
func (r Record) FloatOr(key string, def float64) float64 {
	if f, ok := r.Float(key); ok {
		return f
	}
	return def
}

// Clone returns a shallow copy so callers can't mutate cached rows.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// parseCell converts a raw CSV cell the way a dataframe loader would:
// blanks become nil, then integers, then floats, then strings.
func parseCell(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		lower := strings.ToLower(s)
		if lower == "nan" {
			return nil
		}
		if strings.Contains(lower, "inf") {
			return raw
		}
		return f
	}
	return raw
}

// valuesEqual compares numerically when both sides are numbers and as
// strings otherwise.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	af, aerr := numeric(a)
	bf, berr := numeric(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	return cast.ToString(a) == cast.ToString(b)
}

func numeric(v any) (float64, error) {
	switch v.(type) {
	case string, bool:
		return 0, strconv.ErrSyntax
	}
	return cast.ToFloat64E(v)
}
