package metrics

import (
	"fmt"
	"strconv"
)

// Params carries the string-keyed configuration of one metric request. Values
// come from JSON, so numbers arrive as float64; the accessors tolerate the
// int/float64/string encodings a hand-written config is likely to contain.
type Params map[string]interface{}

// Has reports whether the key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Float returns the value at key as a float64, or def when absent or not
// numeric.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the value at key as an int, or def.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the value at key as a bool, or def.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// String returns the value at key as a string, or def.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Strings returns the value at key as a string slice. Scalar strings and
// JSON arrays of strings or numbers are accepted; numbers are formatted so
// numeric species codes can be written unquoted.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			switch ev := e.(type) {
			case string:
				out = append(out, ev)
			case float64:
				out = append(out, strconv.FormatFloat(ev, 'f', -1, 64))
			default:
				out = append(out, fmt.Sprintf("%v", ev))
			}
		}
		return out
	}
	return nil
}
