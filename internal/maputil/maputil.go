// Package maputil provides helpers for the nested map[string]any trees
// that configuration providers exchange with the core.
package maputil

// Copy returns a deep copy of a nested configuration tree. Nested
// map[string]any, []any and []string values are duplicated; scalars are
// shared (the value domain treats them as immutable).
func Copy(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CopyValue(v)
	}
	return out
}

// CopyValue deep-copies a single configuration value.
func CopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return Copy(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = CopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(tv))
		copy(out, tv)
		return out
	default:
		return v
	}
}

// IsSection reports whether a value is a nested mapping.
func IsSection(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}
