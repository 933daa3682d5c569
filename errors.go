package confstack

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by sources and stacked configurations.
// Wrapped errors carry key or source context; match with errors.Is.
var (
	// ErrKeyNotFound is returned when a key is absent from a source or
	// from every source in a stack.
	ErrKeyNotFound = errors.New("confstack: key not found")

	// ErrReadOnly is returned when writing to a source whose provider
	// has no write capability.
	ErrReadOnly = errors.New("confstack: source is read-only")

	// ErrLocked is returned when writing to a source that was
	// constructed with an explicit lock.
	ErrLocked = errors.New("confstack: source is locked")

	// ErrNoWritableSource is returned when a stacked write finds no
	// source that accepts writes.
	ErrNoWritableSource = errors.New("confstack: no writable source")

	// ErrImmutableSourceList is returned when mutating the source list
	// of a sublevel configuration. Only the top-level list can change.
	ErrImmutableSourceList = errors.New("confstack: source list of a sublevel configuration cannot be mutated")

	// ErrNotSection is returned when a path descends through a value
	// that is not a subsection.
	ErrNotSection = errors.New("confstack: value is not a subsection")
)

// ConflictError reports a key whose shape disagrees between sources: one
// source declares it as a subsection while another declares it as a
// plain value. Conflicts surface during union iteration (Items, Dump)
// and are never silently resolved.
type ConflictError struct {
	Key         string
	SourceName  string // source that disagrees with the shape seen first
	WantSection bool   // shape seen in higher prioritized sources
}

func (e *ConflictError) Error() string {
	if e.WantSection {
		return fmt.Sprintf("confstack: %s in source %s specifies a plain value which conflicts with a higher prioritized source that declares the same key as a subsection", e.Key, e.SourceName)
	}
	return fmt.Sprintf("confstack: %s in source %s specifies a subsection which conflicts with a higher prioritized source that declares the same key as a plain value", e.Key, e.SourceName)
}

// ValidationError reports invalid construction or mutation arguments,
// raised immediately rather than deferred to first use.
type ValidationError struct {
	Op     string // operation that rejected the argument
	Reason string // description, naming the offending concrete type where useful
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("confstack: %s: %s", e.Op, e.Reason)
}

func notFound(key string) error {
	return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

func notSection(key string) error {
	return fmt.Errorf("%w: %q", ErrNotSection, key)
}
