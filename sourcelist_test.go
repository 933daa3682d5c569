package confstack

import (
	"errors"
	"reflect"
	"testing"
)

// TestSourceListOrdering verifies declaration order access and the
// default last-wins traversal order.
func TestSourceListOrdering(t *testing.T) {
	source1 := mustMapSource(t, map[string]any{"a": 1})
	source2 := mustMapSource(t, map[string]any{"a": 2})

	list, err := NewSourceList(source1, source2)
	if err != nil {
		t.Fatalf("NewSourceList() error = %v", err)
	}

	if list.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", list.Len())
	}
	if list.At(0) != source1 || list.At(1) != source2 {
		t.Error("At() should keep declaration order")
	}

	traversed, err := list.Traverse()
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if traversed[0] != source2 || traversed[1] != source1 {
		t.Error("Traverse() should yield the last declared source first")
	}
}

// TestSourceListAppend verifies that an appended source becomes the
// highest-priority one.
func TestSourceListAppend(t *testing.T) {
	source1 := mustMapSource(t, map[string]any{"a": 1})
	source2 := mustMapSource(t, map[string]any{"a": 2})

	list, err := NewSourceList(source1)
	if err != nil {
		t.Fatalf("NewSourceList() error = %v", err)
	}
	if err := list.Append(source2); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if list.At(1) != source2 {
		t.Error("Append() should add behind the existing sources")
	}
	traversed, err := list.Traverse()
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if traversed[0] != source2 {
		t.Error("appended source should rank highest")
	}
}

// TestSourceListInsert verifies index clamping and that inserting at
// the front yields the lowest priority.
func TestSourceListInsert(t *testing.T) {
	source1 := mustMapSource(t, map[string]any{"a": 1})
	source2 := mustMapSource(t, map[string]any{"a": 2})
	source3 := mustMapSource(t, map[string]any{"a": 3})

	list, err := NewSourceList(source1)
	if err != nil {
		t.Fatalf("NewSourceList() error = %v", err)
	}
	if err := list.Insert(0, source2); err != nil {
		t.Fatalf("Insert(0) error = %v", err)
	}
	if err := list.Insert(99, source3); err != nil {
		t.Fatalf("Insert(99) error = %v", err)
	}

	want := []*Source{source2, source1, source3}
	for i, src := range want {
		if list.At(i) != src {
			t.Fatalf("At(%d) is the wrong source", i)
		}
	}

	traversed, err := list.Traverse()
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if traversed[len(traversed)-1] != source2 {
		t.Error("source inserted at the front should rank lowest")
	}
}

// TestSourceListSetRemove verifies replacement, removal and the index
// range checks.
func TestSourceListSetRemove(t *testing.T) {
	source1 := mustMapSource(t, map[string]any{"a": 1})
	source2 := mustMapSource(t, map[string]any{"a": 2})
	source3 := mustMapSource(t, map[string]any{"a": 3})

	list, err := NewSourceList(source1, source2)
	if err != nil {
		t.Fatalf("NewSourceList() error = %v", err)
	}

	if err := list.Set(0, source3); err != nil {
		t.Fatalf("Set(0) error = %v", err)
	}
	if list.At(0) != source3 {
		t.Error("Set(0) should replace the first source")
	}

	if err := list.Remove(1); err != nil {
		t.Fatalf("Remove(1) error = %v", err)
	}
	if list.Len() != 1 || list.At(0) != source3 {
		t.Error("Remove(1) should drop the second source")
	}

	var verr *ValidationError
	if err := list.Set(5, source1); !errors.As(err, &verr) {
		t.Errorf("Set(5) error = %v, want *ValidationError", err)
	}
	if err := list.Remove(5); !errors.As(err, &verr) {
		t.Errorf("Remove(5) error = %v, want *ValidationError", err)
	}
}

// TestSourceListValidation verifies that nil sources are rejected on
// construction and on every mutation.
func TestSourceListValidation(t *testing.T) {
	source1 := mustMapSource(t, map[string]any{"a": 1})

	var verr *ValidationError
	if _, err := NewSourceList(source1, nil); !errors.As(err, &verr) {
		t.Errorf("NewSourceList(nil) error = %v, want *ValidationError", err)
	}

	list, err := NewSourceList(source1)
	if err != nil {
		t.Fatalf("NewSourceList() error = %v", err)
	}
	if err := list.Append(nil); !errors.As(err, &verr) {
		t.Errorf("Append(nil) error = %v, want *ValidationError", err)
	}
	if err := list.Insert(0, nil); !errors.As(err, &verr) {
		t.Errorf("Insert(nil) error = %v, want *ValidationError", err)
	}
	if err := list.Set(0, nil); !errors.As(err, &verr) {
		t.Errorf("Set(nil) error = %v, want *ValidationError", err)
	}
}

// TestSourceListImmutableSublevel verifies that the list of a sublevel
// configuration rejects every mutation.
func TestSourceListImmutableSublevel(t *testing.T) {
	source := mustMapSource(t, map[string]any{"b": map[string]any{"c": 2}})
	stack, err := NewStack(WithSources(source))
	if err != nil {
		t.Fatalf("NewStack() error = %v", err)
	}
	sub, err := stack.Section("b")
	if err != nil {
		t.Fatalf("Section(b) error = %v", err)
	}

	list := sub.Sources()
	if !reflect.DeepEqual(list.Keychain(), []string{"b"}) {
		t.Fatalf("Keychain() = %v, want [b]", list.Keychain())
	}

	other := mustMapSource(t, nil)
	if err := list.Append(other); !errors.Is(err, ErrImmutableSourceList) {
		t.Errorf("Append() error = %v, want ErrImmutableSourceList", err)
	}
	if err := list.Insert(0, other); !errors.Is(err, ErrImmutableSourceList) {
		t.Errorf("Insert() error = %v, want ErrImmutableSourceList", err)
	}
	if err := list.Set(0, other); !errors.Is(err, ErrImmutableSourceList) {
		t.Errorf("Set() error = %v, want ErrImmutableSourceList", err)
	}
	if err := list.Remove(0); !errors.Is(err, ErrImmutableSourceList) {
		t.Errorf("Remove() error = %v, want ErrImmutableSourceList", err)
	}
}

// TestSourceListTraverseKeychain verifies that traversal descends the
// keychain in every source and keeps priority order.
func TestSourceListTraverseKeychain(t *testing.T) {
	source1 := mustMapSource(t, map[string]any{"b": map[string]any{"c": 1}})
	source2 := mustMapSource(t, map[string]any{"b": map[string]any{"c": 2}})

	list, err := newSourceList([]*Source{source1, source2}, []string{"b"}, false)
	if err != nil {
		t.Fatalf("newSourceList() error = %v", err)
	}
	traversed, err := list.Traverse()
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if len(traversed) != 2 {
		t.Fatalf("Traverse() returned %d sources, want 2", len(traversed))
	}
	if v, err := traversed[0].Get("c"); err != nil || v != 2 {
		t.Errorf("first traversed source c = %v, %v, want 2", v, err)
	}
	if v, err := traversed[1].Get("c"); err != nil || v != 1 {
		t.Errorf("second traversed source c = %v, %v, want 1", v, err)
	}
}

// TestSourceListTraverseErrors verifies fail-fast behavior for missing
// segments and for segments holding plain values.
func TestSourceListTraverseErrors(t *testing.T) {
	missing := mustMapSource(t, map[string]any{"x": 1})
	list, err := newSourceList([]*Source{missing}, []string{"b"}, false)
	if err != nil {
		t.Fatalf("newSourceList() error = %v", err)
	}
	if _, err := list.Traverse(); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Traverse() error = %v, want ErrKeyNotFound", err)
	}

	scalar := mustMapSource(t, map[string]any{"b": 5})
	list, err = newSourceList([]*Source{scalar}, []string{"b"}, false)
	if err != nil {
		t.Fatalf("newSourceList() error = %v", err)
	}
	if _, err := list.Traverse(); !errors.Is(err, ErrNotSection) {
		t.Errorf("Traverse() error = %v, want ErrNotSection", err)
	}
}

// TestSourceListFilters verifies the typed and writable selections.
func TestSourceListFilters(t *testing.T) {
	typed := mustMapSource(t, map[string]any{"a": 1})
	untyped, err := New(&untypedProvider{data: map[string]any{"a": "1"}})
	if err != nil {
		t.Fatalf("New(untyped) error = %v", err)
	}
	locked := mustMapSource(t, map[string]any{"a": 3}, Locked())

	list, err := NewSourceList(typed, untyped, locked)
	if err != nil {
		t.Fatalf("NewSourceList() error = %v", err)
	}

	typedSources, err := list.Typed()
	if err != nil {
		t.Fatalf("Typed() error = %v", err)
	}
	if len(typedSources) != 2 {
		t.Fatalf("Typed() returned %d sources, want 2", len(typedSources))
	}
	for _, src := range typedSources {
		if !src.IsTyped() {
			t.Error("Typed() returned an untyped source")
		}
	}

	writable, err := list.Writable()
	if err != nil {
		t.Fatalf("Writable() error = %v", err)
	}
	if len(writable) != 2 {
		t.Fatalf("Writable() returned %d sources, want 2", len(writable))
	}
	for _, src := range writable {
		if !src.IsWritable() {
			t.Error("Writable() returned a non-writable source")
		}
	}
}
