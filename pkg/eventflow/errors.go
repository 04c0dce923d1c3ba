package eventflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for model construction.
var (
	// ErrInvalidDeclaration indicates a declaration with a missing name
	// or namespace was passed to Build().
	ErrInvalidDeclaration = errors.New("invalid declaration")

	// ErrNilModel indicates a Detector was created without a model.
	ErrNilModel = errors.New("model cannot be nil")
)

// Sentinel errors for detection.
var (
	// ErrDetectionFailed indicates an anomaly detection run did not
	// complete. The returned error can be unwrapped to this sentinel.
	ErrDetectionFailed = errors.New("anomaly detection failed")
)

// ValidationError identifies a malformed declaration rejected at model
// construction. Build() returns one ValidationError per offending
// declaration, joined together; no partial model is produced.
type ValidationError struct {
	// Index is the position of the declaration in the batch.
	Index int
	// Declaration is the offending declaration.
	Declaration Declaration
	// Reason describes which field is missing.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("declaration %d (%s %s %s): %s",
		e.Index, e.Declaration.Agent, e.Declaration.Role,
		e.Declaration.Event, e.Reason)
}

// Unwrap returns ErrInvalidDeclaration for errors.Is support.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidDeclaration
}

// DetectionError captures a failure inside DetectAll, including panics
// recovered from the detection passes. Callers integrating detection as
// best-effort can match it with errors.Is(err, ErrDetectionFailed).
type DetectionError struct {
	// Stage is the detection pass that failed ("orphans", "isolated",
	// "cycles").
	Stage string
	// Value is the recovered panic value.
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *DetectionError) Error() string {
	return fmt.Sprintf("detection stage %s panicked: %v", e.Stage, e.Value)
}

// Unwrap returns ErrDetectionFailed for errors.Is support.
func (e *DetectionError) Unwrap() error {
	return ErrDetectionFailed
}
