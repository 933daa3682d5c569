package confstack

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseBoolToken parses the boolean tokens accepted across untyped
// sources: 1/t/true/y/yes/on and 0/f/false/n/no/off, case-insensitive.
func parseBoolToken(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, true
	case "0", "f", "false", "n", "no", "off":
		return false, true
	}
	return false, false
}

// convertToType coerces a raw string from an untyped source to the
// runtime type of typed, a value found for the same key in a typed
// source. Unparseable booleans fall back to the raw string; unparseable
// numbers are errors. List-shaped targets split on commas, but the
// elements stay strings since their intended type is unknown.
func convertToType(raw string, typed any) (any, error) {
	switch typed.(type) {
	case nil, string:
		return raw, nil
	case bool:
		if b, ok := parseBoolToken(raw); ok {
			return b, nil
		}
		return raw, nil
	case int:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("confstack: cannot convert %q to int: %w", raw, err)
		}
		return n, nil
	case int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("confstack: cannot convert %q to int64: %w", raw, err)
		}
		return n, nil
	case float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("confstack: cannot convert %q to float64: %w", raw, err)
		}
		return f, nil
	case complex128:
		c, err := strconv.ParseComplex(strings.TrimSpace(raw), 128)
		if err != nil {
			return nil, fmt.Errorf("confstack: cannot convert %q to complex128: %w", raw, err)
		}
		return c, nil
	case time.Duration:
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("confstack: cannot convert %q to duration: %w", raw, err)
		}
		return d, nil
	case time.Time:
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("confstack: cannot convert %q to time: %w", raw, err)
		}
		return t, nil
	case []any, []string:
		return splitList(raw), nil
	default:
		return raw, nil
	}
}

// splitList turns a comma-separated string into a slice of trimmed
// string elements, the shape typed sources use for lists.
func splitList(raw string) []any {
	parts := strings.Split(raw, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
