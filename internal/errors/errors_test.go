package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestTextcapError_Error(t *testing.T) {
	err := &TextcapError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "session not found: abc",
	}

	expected := "NOT_FOUND: session not found: abc"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("query is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "query is required" {
		t.Errorf("Message = %q, want %q", err.Message, "query is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("session", "01HX")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "01HX" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01HX")
	}
	if err.Message != "session not found: 01HX" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/missing.docx")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Details["path"] != "/tmp/missing.docx" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q, want %q", err.Message, "export cancelled")
	}
}

func TestNewDocument_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewDocument("capture.docx", cause)

	if err.Code != ErrDocument {
		t.Errorf("Code = %q, want %q", err.Code, ErrDocument)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected document error to wrap its cause")
	}
	if err.Details["path"] != "capture.docx" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("database connection failed"))

	if err.Code != ErrInternal {
		t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
	}
	if err.Message != "database connection failed" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)

	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("entry", "x")

	if !Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) should be true")
	}
	if Is(err, ErrInternal) {
		t.Error("Is(err, ErrInternal) should be false")
	}

	wrapped := fmt.Errorf("lookup: %w", err)
	if !Is(wrapped, ErrNotFound) {
		t.Error("Is should see through wrapping")
	}

	if Is(fmt.Errorf("plain"), ErrNotFound) {
		t.Error("Is should be false for plain errors")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is should be false for nil")
	}
}
