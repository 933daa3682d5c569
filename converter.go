package confstack

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ConvertFunc transforms a configuration value. The input may be a
// scalar, a composite, or a whole subsection (*Source); returning a
// value of a different type is allowed and common.
type ConvertFunc func(value any) (any, error)

// Converter presents a stored value in a different representation
// without changing the underlying storage type. Customize is applied on
// reads (stored to user-facing), Reset on writes (user-facing back to
// stored). Well-behaved converters round-trip: Reset(Customize(v))
// yields v again. This is expected but not enforced.
type Converter struct {
	// Pattern is an exact key or a glob pattern (*, ?, [...]) matched
	// against the full dotted key path below the source root. A single *
	// matches within one path level; ** spans levels. A pattern without
	// a dot also matches the bare leaf key at any depth, so "debug"
	// converts both "debug" and "server.debug".
	Pattern string

	Customize ConvertFunc
	Reset     ConvertFunc
}

// NewConverter builds a Converter for the given pattern. Either function
// may be nil, in which case the value passes through unchanged for that
// direction. The pattern is validated when the converter is registered
// on a Source or StackedConfig.
func NewConverter(pattern string, customize, reset ConvertFunc) Converter {
	return Converter{Pattern: pattern, Customize: customize, Reset: reset}
}

// matches reports whether the converter applies to key at the given
// keychain. Registration order decides ties; callers take the first
// match.
func (c Converter) matches(keychain []string, key string) bool {
	path := strings.Join(append(append([]string{}, keychain...), key), ".")
	if ok, err := doublestar.Match(globPath(c.Pattern), globPath(path)); err == nil && ok {
		return true
	}
	if !strings.Contains(c.Pattern, ".") {
		ok, err := doublestar.Match(c.Pattern, key)
		return err == nil && ok
	}
	return false
}

func (c Converter) customize(v any) (any, error) {
	if c.Customize == nil {
		return v, nil
	}
	return c.Customize(v)
}

func (c Converter) reset(v any) (any, error) {
	if c.Reset == nil {
		return v, nil
	}
	return c.Reset(v)
}

// globPath rewrites a dotted pattern or key path to the slash-separated
// form the glob matcher works on, keeping * scoped to a single level.
func globPath(s string) string {
	return strings.ReplaceAll(s, ".", "/")
}

// matchConverter returns the first registered converter whose pattern
// matches, preserving registration order as the priority tie-break.
func matchConverter(converters []Converter, keychain []string, key string) (Converter, bool) {
	for _, c := range converters {
		if c.matches(keychain, key) {
			return c, true
		}
	}
	return Converter{}, false
}

// validateConverters rejects malformed glob patterns at registration.
func validateConverters(op string, converters []Converter) error {
	for _, c := range converters {
		if !doublestar.ValidatePattern(globPath(c.Pattern)) {
			return &ValidationError{Op: op, Reason: fmt.Sprintf("malformed converter pattern %q", c.Pattern)}
		}
	}
	return nil
}

// Bools converts between the string tokens of untyped sources and real
// booleans. Accepted tokens match the typed-inference rules: 1/t/true/
// y/yes/on and 0/f/false/n/no/off, case-insensitive. Reset stores
// "true" or "false".
func Bools(pattern string) Converter {
	return Converter{
		Pattern: pattern,
		Customize: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("confstack: bools converter: expected string, got %T", v)
			}
			b, ok := parseBoolToken(s)
			if !ok {
				return nil, fmt.Errorf("confstack: bools converter: invalid boolean %q", s)
			}
			return b, nil
		},
		Reset: func(v any) (any, error) {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("confstack: bools converter: expected bool, got %T", v)
			}
			return strconv.FormatBool(b), nil
		},
	}
}

// Dates converts between date strings and time.Time values. The default
// layout is "2006-01-02"; pass an alternative layout as the optional
// second argument.
func Dates(pattern string, layout ...string) Converter {
	return timeConverter(pattern, "dates", pickLayout("2006-01-02", layout))
}

// Datetimes converts between timestamp strings and time.Time values.
// The default layout is "2006-01-02T15:04:05".
func Datetimes(pattern string, layout ...string) Converter {
	return timeConverter(pattern, "datetimes", pickLayout("2006-01-02T15:04:05", layout))
}

func pickLayout(def string, layout []string) string {
	if len(layout) > 0 && layout[0] != "" {
		return layout[0]
	}
	return def
}

func timeConverter(pattern, kind, layout string) Converter {
	return Converter{
		Pattern: pattern,
		Customize: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("confstack: %s converter: expected string, got %T", kind, v)
			}
			t, err := time.Parse(layout, s)
			if err != nil {
				return nil, fmt.Errorf("confstack: %s converter: %w", kind, err)
			}
			return t, nil
		},
		Reset: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("confstack: %s converter: expected time.Time, got %T", kind, v)
			}
			return t.Format(layout), nil
		},
	}
}
