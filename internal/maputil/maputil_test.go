package maputil

import (
	"reflect"
	"testing"
)

func TestCopyDetachesNestedValues(t *testing.T) {
	original := map[string]any{
		"scalar": 1,
		"section": map[string]any{
			"list": []any{"a", "b"},
		},
		"names": []string{"x"},
	}

	copied := Copy(original)
	if !reflect.DeepEqual(original, copied) {
		t.Fatalf("Copy() = %#v, want %#v", copied, original)
	}

	copied["section"].(map[string]any)["list"].([]any)[0] = "mutated"
	copied["names"].([]string)[0] = "mutated"

	if original["section"].(map[string]any)["list"].([]any)[0] != "a" {
		t.Error("mutating the copy leaked into the original nested list")
	}
	if original["names"].([]string)[0] != "x" {
		t.Error("mutating the copy leaked into the original string slice")
	}
}

func TestCopyNil(t *testing.T) {
	if Copy(nil) != nil {
		t.Error("Copy(nil) should stay nil")
	}
}

func TestIsSection(t *testing.T) {
	if !IsSection(map[string]any{}) {
		t.Error("IsSection(map) = false, want true")
	}
	if IsSection([]any{}) || IsSection("x") || IsSection(nil) {
		t.Error("IsSection should be false for non-mappings")
	}
}
