package plan

import (
	"encoding/json"
	"strconv"
)

// Values is the raw configuration of a resource. Keys vary per resource
// type, so every accessor returns a default instead of failing when a key
// is missing or holds an unexpected type.
type Values map[string]any

// String returns the string value of key, or "" when absent or not a string.
func (v Values) String(key string) string {
	return v.StringOr(key, "")
}

// StringOr returns the string value of key, or def.
func (v Values) StringOr(key, def string) string {
	s, ok := v[key].(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// Bool returns the boolean value of key and whether it was explicitly set.
func (v Values) Bool(key string) (value, ok bool) {
	b, ok := v[key].(bool)
	return b, ok
}

// Int returns key as an integer, or def when absent or not numeric.
func (v Values) Int(key string, def int) int {
	f, ok := toFloat(v[key])
	if !ok {
		return def
	}
	return int(f)
}

// Float returns key as a float64, or def when absent or not numeric.
func (v Values) Float(key string, def float64) float64 {
	f, ok := toFloat(v[key])
	if !ok {
		return def
	}
	return f
}

// List returns key as a list, or nil.
func (v Values) List(key string) []any {
	l, _ := v[key].([]any)
	return l
}

// Blocks returns the nested blocks stored under key. Terraform renders
// nested blocks as a list of objects; non-object entries are skipped.
func (v Values) Blocks(key string) []Values {
	var out []Values
	for _, item := range v.List(key) {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Values(m))
		}
	}
	return out
}

// Strings returns key as a list of strings, skipping non-string entries.
func (v Values) Strings(key string) []string {
	var out []string
	for _, item := range v.List(key) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Subset copies the given keys into a new map, omitting absent ones.
func (v Values) Subset(keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if val, ok := v[k]; ok && val != nil {
			out[k] = val
		}
	}
	return out
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
