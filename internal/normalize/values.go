package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Map returns v as a JSON object
func Map(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

// Maps returns the object elements of a JSON array; other elements are dropped
func Maps(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := Map(el); ok {
			out = append(out, m)
		}
	}
	return out
}

// IsArray reports whether v is a JSON array
func IsArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

// Truthy mirrors loose JSON truthiness: null, false, 0, "" are false
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// String renders a truthy scalar as text; falsy and composite values yield false
func String(v any) (string, bool) {
	if !Truthy(v) {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// StringPtr is String returning nil when there is no value
func StringPtr(v any) *string {
	s, ok := String(v)
	if !ok {
		return nil
	}
	return &s
}

// Int reads a JSON number, or a numeric string, as an integer
func Int(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// IntPtr is Int returning nil when there is no value
func IntPtr(v any) *int {
	n, ok := Int(v)
	if !ok {
		return nil
	}
	i := int(n)
	return &i
}

// Float reads a JSON number, or a numeric string, as a float
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// NumberIs reports whether v is a JSON number equal to want
func NumberIs(v any, want float64) bool {
	switch v.(type) {
	case float64, json.Number, int, int64:
		f, ok := Float(v)
		return ok && f == want
	default:
		return false
	}
}

// IsTrue reports whether v is the JSON literal true
func IsTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
