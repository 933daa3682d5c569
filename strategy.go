package confstack

import "fmt"

// Strategy combines the values a key resolves to across several sources
// instead of letting the highest-priority source shadow the rest. The
// stacking engine folds values in priority order (highest first):
//
//	result = strategy(result, next)
//
// A registered strategy forces a full scan of all sources for its key.
type Strategy func(acc Accumulated, next any) (any, error)

// Accumulated carries the running result of a strategy fold. It
// distinguishes "no value folded yet" from a fold that legitimately
// produced nil, so nil stays a valid merged value.
type Accumulated struct {
	value any
	set   bool
}

// Empty reports whether no value has been folded yet. The first call of
// a fold always receives an empty accumulator.
func (a Accumulated) Empty() bool {
	return !a.set
}

// Value returns the running result. It is nil while Empty.
func (a Accumulated) Value() any {
	return a.value
}

func accumulate(v any) Accumulated {
	return Accumulated{value: v, set: true}
}

// Add sums numeric values and concatenates strings and slices.
func Add(acc Accumulated, next any) (any, error) {
	if acc.Empty() {
		return next, nil
	}
	return addValues(acc.Value(), next)
}

// Merge concatenates values the same way Add does; the name reads better
// when combining lists.
func Merge(acc Accumulated, next any) (any, error) {
	return Add(acc, next)
}

// Collect gathers each source's value into a slice, keeping composite
// values intact as single elements.
func Collect(acc Accumulated, next any) (any, error) {
	if acc.Empty() {
		return []any{next}, nil
	}
	prev, ok := acc.Value().([]any)
	if !ok {
		return nil, fmt.Errorf("confstack: collect strategy: accumulator is %T, not []any", acc.Value())
	}
	return append(prev, next), nil
}

// Join returns a strategy that joins string values with the given
// separator, highest-priority value first.
func Join(separator string) Strategy {
	return func(acc Accumulated, next any) (any, error) {
		s, ok := next.(string)
		if !ok {
			return nil, fmt.Errorf("confstack: join strategy: expected string, got %T", next)
		}
		if acc.Empty() {
			return s, nil
		}
		prev, ok := acc.Value().(string)
		if !ok {
			return nil, fmt.Errorf("confstack: join strategy: accumulator is %T, not string", acc.Value())
		}
		return prev + separator + s, nil
	}
}

func addValues(a, b any) (any, error) {
	if as, ok := a.([]string); ok {
		if bs, ok := b.([]string); ok {
			return append(append([]string{}, as...), bs...), nil
		}
	}
	if as, aOK := toAnySlice(a); aOK {
		if bs, bOK := toAnySlice(b); bOK {
			return append(as, bs...), nil
		}
	}

	switch av := a.(type) {
	case int:
		switch bv := b.(type) {
		case int:
			return av + bv, nil
		case int64:
			return int64(av) + bv, nil
		case float64:
			return float64(av) + bv, nil
		}
	case int64:
		switch bv := b.(type) {
		case int:
			return av + int64(bv), nil
		case int64:
			return av + bv, nil
		case float64:
			return float64(av) + bv, nil
		}
	case float64:
		switch bv := b.(type) {
		case int:
			return av + float64(bv), nil
		case int64:
			return av + float64(bv), nil
		case float64:
			return av + bv, nil
		}
	case string:
		if bv, ok := b.(string); ok {
			return av + bv, nil
		}
	}
	return nil, fmt.Errorf("confstack: add strategy: cannot combine %T and %T", a, b)
}

// toAnySlice copies slice values into a fresh []any so folds never
// mutate source-owned data.
func toAnySlice(v any) ([]any, bool) {
	switch tv := v.(type) {
	case []any:
		return append([]any{}, tv...), true
	case []string:
		out := make([]any, len(tv))
		for i, s := range tv {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
