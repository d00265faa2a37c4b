package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrInvalidSchema        = errors.New("invalid schema")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrUnknownField         = errors.New("unknown field")
	ErrDuplicateValue       = errors.New("duplicate value")
	ErrUnknownSchema        = errors.New("unknown schema")
)

// ErrorKind classifies a ValidationError.
type ErrorKind int

const (
	MissingRequiredField ErrorKind = iota
	TypeMismatch
	UnknownField
	DuplicateValue
)

func (k ErrorKind) String() string {
	switch k {
	case MissingRequiredField:
		return "MissingRequiredField"
	case TypeMismatch:
		return "TypeMismatch"
	case UnknownField:
		return "UnknownField"
	case DuplicateValue:
		return "DuplicateValue"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case MissingRequiredField:
		return ErrMissingRequiredField
	case TypeMismatch:
		return ErrTypeMismatch
	case UnknownField:
		return ErrUnknownField
	case DuplicateValue:
		return ErrDuplicateValue
	default:
		return nil
	}
}

// ValidationError reports the first problem found in a record.
type ValidationError struct {
	Kind     ErrorKind
	Schema   string
	Field    string
	Expected string // declared type, for TypeMismatch
	Actual   string // runtime type or offending value
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingRequiredField:
		return fmt.Sprintf("%s.%s: required field is missing", e.Schema, e.Field)
	case TypeMismatch:
		return fmt.Sprintf("%s.%s: expected %s, got %s", e.Schema, e.Field, e.Expected, e.Actual)
	case UnknownField:
		return fmt.Sprintf("%s.%s: field is not declared", e.Schema, e.Field)
	case DuplicateValue:
		return fmt.Sprintf("%s.%s: value %s is not unique", e.Schema, e.Field, e.Actual)
	default:
		return fmt.Sprintf("%s.%s: invalid", e.Schema, e.Field)
	}
}

// Is matches the sentinel for the error kind.
func (e *ValidationError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func invalidSchema(name, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidSchema, name, fmt.Sprintf(format, args...))
}
