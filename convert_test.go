package confstack

import (
	"reflect"
	"testing"
	"time"
)

// TestParseBoolToken verifies the accepted truthy and falsy tokens.
func TestParseBoolToken(t *testing.T) {
	truthy := []string{"1", "t", "true", "True", "TRUE", "y", "yes", "on", " on "}
	for _, s := range truthy {
		v, ok := parseBoolToken(s)
		if !ok || !v {
			t.Errorf("parseBoolToken(%q) = %v, %v, want true, true", s, v, ok)
		}
	}

	falsy := []string{"0", "f", "false", "False", "n", "no", "NO", "off"}
	for _, s := range falsy {
		v, ok := parseBoolToken(s)
		if !ok || v {
			t.Errorf("parseBoolToken(%q) = %v, %v, want false, true", s, v, ok)
		}
	}

	for _, s := range []string{"", "2", "maybe", "yess"} {
		if _, ok := parseBoolToken(s); ok {
			t.Errorf("parseBoolToken(%q) should not parse", s)
		}
	}
}

// TestConvertToType verifies coercion of raw strings against every
// supported model type.
func TestConvertToType(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		model any
		want  any
	}{
		{"int", "10", 1, 10},
		{"int with spaces", " 10 ", 1, 10},
		{"int64", "10", int64(1), int64(10)},
		{"float", "20.01", 1.0, 20.01},
		{"complex", "(5+6i)", complex(1, 1), complex(5, 6)},
		{"string", "s", "model", "s"},
		{"nil model", "s", nil, "s"},
		{"bool true", "yes", false, true},
		{"bool false", "off", true, false},
		{"bool fallback", "nope", true, "nope"},
		{"duration", "1h", time.Minute, time.Hour},
		{"time", "2017-10-22T10:00:20Z", time.Time{}, time.Date(2017, 10, 22, 10, 0, 20, 0, time.UTC)},
		{"any list", "3, 4", []any{}, []any{"3", "4"}},
		{"string list", "3,4", []string{}, []any{"3", "4"}},
		{"unknown model", "s", struct{}{}, "s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertToType(tt.raw, tt.model)
			if err != nil {
				t.Fatalf("convertToType(%q, %T) error = %v", tt.raw, tt.model, err)
			}
			if want, ok := tt.want.(time.Time); ok {
				if !want.Equal(got.(time.Time)) {
					t.Fatalf("convertToType() = %v, want %v", got, want)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("convertToType(%q, %T) = %v (%T), want %v (%T)", tt.raw, tt.model, got, got, tt.want, tt.want)
			}
		})
	}
}

// TestConvertToTypeErrors verifies that unparseable numerics fail
// instead of passing through.
func TestConvertToTypeErrors(t *testing.T) {
	models := []any{1, int64(1), 1.0, complex(1, 1), time.Minute}
	for _, model := range models {
		if _, err := convertToType("not a number", model); err == nil {
			t.Errorf("convertToType(garbage, %T) should fail", model)
		}
	}
}

// TestSplitList verifies comma splitting with whitespace trimming.
func TestSplitList(t *testing.T) {
	got := splitList(" a ,b,  c d ")
	want := []any{"a", "b", "c d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitList() = %v, want %v", got, want)
	}

	if got := splitList("single"); !reflect.DeepEqual(got, []any{"single"}) {
		t.Errorf("splitList(single) = %v, want [single]", got)
	}
}
