package eventflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestValidationError verifies message content and sentinel unwrapping.
func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Index: 3,
		Declaration: Declaration{
			Agent: Item{Name: "A", Namespace: "ns"},
			Event: Item{Name: "E"},
			Role:  RoleSubscribe,
		},
		Reason: "event namespace is empty",
	}

	assert.Contains(t, err.Error(), "declaration 3")
	assert.Contains(t, err.Error(), "A@ns")
	assert.Contains(t, err.Error(), "subscribe")
	assert.Contains(t, err.Error(), "event namespace is empty")
	assert.True(t, errors.Is(err, ErrInvalidDeclaration))
}

// TestDetectionError verifies stage context and sentinel unwrapping.
func TestDetectionError(t *testing.T) {
	err := &DetectionError{Stage: "cycles", Value: "boom", Stack: "stack"}

	assert.Contains(t, err.Error(), "cycles")
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, errors.Is(err, ErrDetectionFailed))

	var dErr *DetectionError
	assert.True(t, errors.As(err, &dErr))
	assert.Equal(t, "stack", dErr.Stack)
}
