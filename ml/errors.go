package ml

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrModelNotFound  = errors.New("model artifact not found")
	ErrModelCorrupt   = errors.New("model artifact corrupt")
	ErrInference      = errors.New("inference failed")
	ErrInvalidProfile = errors.New("invalid patient profile")
)

// ModelLoadError is returned by LoadModel. Kind is ErrModelNotFound or
// ErrModelCorrupt.
type ModelLoadError struct {
	Path string
	Kind error
	Err  error
}

func (e *ModelLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load model %s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("load model %s: %v: %v", e.Path, e.Kind, e.Err)
}

func (e *ModelLoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(path string, err error) error {
	return &ModelLoadError{Path: path, Kind: ErrModelNotFound, Err: err}
}

func corrupt(path string, err error) error {
	return &ModelLoadError{Path: path, Kind: ErrModelCorrupt, Err: err}
}

// InferenceError wraps a failure raised while the model was predicting.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInference, e.Err)
}

func (e *InferenceError) Unwrap() []error {
	return []error{ErrInference, e.Err}
}

// FieldError describes one rejected profile field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidProfile, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidProfile
}
