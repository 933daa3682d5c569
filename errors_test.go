package confstack

import (
	"errors"
	"strings"
	"testing"
)

// TestErrorWrapping verifies that key context wraps around the
// sentinels without breaking errors.Is.
func TestErrorWrapping(t *testing.T) {
	err := notFound("database")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("notFound() does not match ErrKeyNotFound: %v", err)
	}
	if !strings.Contains(err.Error(), `"database"`) {
		t.Errorf("error %q should quote the key", err)
	}

	err = notSection("port")
	if !errors.Is(err, ErrNotSection) {
		t.Errorf("notSection() does not match ErrNotSection: %v", err)
	}
	if !strings.Contains(err.Error(), `"port"`) {
		t.Errorf("error %q should quote the key", err)
	}
}

// TestConflictErrorMessage verifies both directions of the shape
// mismatch report.
func TestConflictErrorMessage(t *testing.T) {
	err := &ConflictError{Key: "db", SourceName: "file:app.yaml", WantSection: true}
	msg := err.Error()
	if !strings.Contains(msg, "db") || !strings.Contains(msg, "file:app.yaml") {
		t.Errorf("message %q should name key and source", msg)
	}
	if !strings.Contains(msg, "plain value which conflicts") {
		t.Errorf("message %q should blame the plain value", msg)
	}

	err = &ConflictError{Key: "db", SourceName: "env", WantSection: false}
	if !strings.Contains(err.Error(), "subsection which conflicts") {
		t.Errorf("message %q should blame the subsection", err.Error())
	}
}

// TestValidationErrorMessage verifies the operation/reason format.
func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Op: "new source list", Reason: "a source must be a non-nil *Source"}
	want := "confstack: new source list: a source must be a non-nil *Source"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
