package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Typed errors below match these with errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrReferentialIntegrity = errors.New("referential integrity violated")
)

// ValidationError is returned when an aggregate invariant or a filter
// constraint is violated. Fields names the offending input fields.
type ValidationError struct {
	Fields []string
	Reason string
	Value  interface{}
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid %s: %s (got %v)", strings.Join(e.Fields, ", "), e.Reason, e.Value)
	}
	return fmt.Sprintf("invalid %s: %s", strings.Join(e.Fields, ", "), e.Reason)
}

// Is allows errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Field returns the first offending field
func (e *ValidationError) Field() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0]
}

// NotFoundError is returned when a referenced product, brand or category does not exist
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned when a concurrent modification was detected.
// Callers may retry with fresh state.
type ConflictError struct {
	Resource string
	Key      string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s conflict: %s", e.Resource, e.Key, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ReferentialIntegrityError is a ValidationError variant naming a missing reference
type ReferentialIntegrityError struct {
	Field    string
	Resource string
	Key      string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s does not exist", e.Field, e.Resource, e.Key)
}

func (e *ReferentialIntegrityError) Is(target error) bool {
	return target == ErrReferentialIntegrity || target == ErrValidation
}

// NewValidationError creates a ValidationError for a single field
func NewValidationError(field, reason string, value interface{}) error {
	return &ValidationError{Fields: []string{field}, Reason: reason, Value: value}
}

// NewFieldsValidationError creates a ValidationError spanning several fields
func NewFieldsValidationError(fields []string, reason string) error {
	return &ValidationError{Fields: fields, Reason: reason}
}

func NewNotFoundError(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

func NewConflictError(resource, key, reason string) error {
	return &ConflictError{Resource: resource, Key: key, Reason: reason}
}

func NewReferentialIntegrityError(field, resource, key string) error {
	return &ReferentialIntegrityError{Field: field, Resource: resource, Key: key}
}

// IsValidation reports whether err is a ValidationError or one of its variants
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// ValidationFields extracts the offending field names from a validation error
func ValidationFields(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return append([]string(nil), ve.Fields...)
	}
	var re *ReferentialIntegrityError
	if errors.As(err, &re) {
		return []string{re.Field}
	}
	return nil
}
