package schema

import (
	"fmt"
	"math"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// The coercion helpers read loosely typed frontmatter records as produced
// by the YAML and TOML decoders. They never fail; callers that need strict
// typing inspect the raw value themselves.

// String returns fm[key] when it holds a string, else "".
func String(fm map[string]interface{}, key string) string {
	s, _ := fm[key].(string)
	return s
}

// Strings returns fm[key] when it holds a list, keeping only the string
// items.
func Strings(fm map[string]interface{}, key string) []string {
	items, ok := fm[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Bool returns fm[key] when it holds a boolean, else false.
func Bool(fm map[string]interface{}, key string) bool {
	b, _ := fm[key].(bool)
	return b
}

// Int returns an integer for any numeric width the decoders produce.
// Fractional floats are rejected.
func Int(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// Date coerces a frontmatter value into a calendar date. Unquoted YAML
// timestamps arrive as time.Time, TOML dates as toml.LocalDate or
// toml.LocalDateTime, and quoted values as "2006-01-02" strings.
func Date(v interface{}) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case toml.LocalDate:
		return d.AsTime(time.UTC), nil
	case toml.LocalDateTime:
		return d.AsTime(time.UTC), nil
	case string:
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date", d)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("%v is not a date", v)
	}
}
