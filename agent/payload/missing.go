package payload

import (
	"reflect"
	"strings"
)

// Present reports whether v counts as supplied: not nil, not an empty string,
// not an empty sequence.
func Present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// Missing returns the required fields that are not present in p, in the order
// they were declared.
func Missing(required []string, p map[string]any) []string {
	missing := make([]string, 0, len(required))
	for _, field := range required {
		if !Present(p[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

// Compact drops keys whose values are not present.
func Compact(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if Present(v) {
			out[k] = v
		}
	}
	return out
}
