// Package errs defines the error taxonomy shared by the report, segmentation
// and session packages. Each typed error unwraps to a sentinel so callers can
// branch with errors.Is and inspect details with errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrValidation indicates a malformed annotation (shape/coordinate mismatch).
	ErrValidation = errors.New("validation failed")
	// ErrSchema indicates a missing required key or a broken indirection link.
	ErrSchema = errors.New("schema error")
	// ErrDecode indicates corrupt run-length data or an unusable bounding box.
	ErrDecode = errors.New("decode error")
	// ErrEncode indicates the volume image could not be produced.
	ErrEncode = errors.New("encode error")
	// ErrNotFound indicates a lookup chain ended without a result.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a field that violated an annotation invariant.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrValidation
}

// Is lets a ValidationError wrapping another cause still match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SchemaError reports a missing key or a broken link in a document.
type SchemaError struct {
	Document string // e.g. "manifest", "session", "inference response"
	Path     string // key path that was missing or broken
	Message  string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s schema error at %s: %s", e.Document, e.Path, e.Message)
	}
	return fmt.Sprintf("%s schema error: %s", e.Document, e.Message)
}

func (e *SchemaError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSchema
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// DecodeError reports a segmented object that could not be decoded or placed.
type DecodeError struct {
	Index   int // position of the object in the input list
	ClassID int
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("object %d (class %d): %s", e.Index, e.ClassID, e.Message)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// EncodeError reports why a volume image could not be encoded.
type EncodeError struct {
	Message string
	Err     error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("encode failed: %s", e.Message)
}

func (e *EncodeError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrEncode
}

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewSchema creates a SchemaError
func NewSchema(document, path, message string) *SchemaError {
	return &SchemaError{Document: document, Path: path, Message: message}
}

// NewNotFound creates a SchemaError for a broken lookup chain that also
// matches ErrNotFound.
func NewNotFound(document, path, message string) *SchemaError {
	return &SchemaError{Document: document, Path: path, Message: message, Err: ErrNotFound}
}

// NewDecode creates a DecodeError
func NewDecode(index, classID int, format string, args ...any) *DecodeError {
	return &DecodeError{Index: index, ClassID: classID, Message: fmt.Sprintf(format, args...)}
}

// NewEncode creates an EncodeError
func NewEncode(message string) *EncodeError {
	return &EncodeError{Message: message}
}
