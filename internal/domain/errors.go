package domain

import (
	"errors"
	"fmt"
)

// Error classes surfaced by the engine. Use errors.Is to classify.
var (
	ErrValidation    = errors.New("validation error")
	ErrInference     = errors.New("inference error")
	ErrConfiguration = errors.New("configuration error")
)

// ValidationError is a raw field that cannot be coerced and has no default path.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InferenceError is a classifier call that failed or returned an unusable result.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference error: %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() []error { return []error{ErrInference, e.Err} }

// ConfigurationError is a startup failure, such as an unloadable classifier artifact.
type ConfigurationError struct {
	Component string
	Err       error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Component, e.Err)
}

func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// NewInferenceError wraps err as an InferenceError for op.
func NewInferenceError(op string, err error) error {
	return &InferenceError{Op: op, Err: err}
}

// NewConfigurationError wraps err as a ConfigurationError for component.
func NewConfigurationError(component string, err error) error {
	return &ConfigurationError{Component: component, Err: err}
}
