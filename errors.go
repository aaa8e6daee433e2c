package dynamodel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrItemNotFound is returned when a point read finds no item.
	ErrItemNotFound = errors.New("dynamodel: item not found")
	// ErrValidation matches any *ValidationError with errors.Is.
	ErrValidation = errors.New("dynamodel: invalid attribute value")
	// ErrNullAttribute matches any *NullAttributeError with errors.Is.
	ErrNullAttribute = errors.New("dynamodel: required attribute missing")
	// ErrConditionNotRecognized matches any *ConditionNotRecognizedError with errors.Is.
	ErrConditionNotRecognized = errors.New("dynamodel: condition not recognized")
	// ErrUnprocessed is returned when a batch request still has unprocessed items
	// after the batch retry budget has been spent.
	ErrUnprocessed = errors.New("dynamodel: batch items left unprocessed")
	// ErrNoInput is returned when a batch request has nothing to do.
	ErrNoInput = errors.New("dynamodel: no input items")
	// ErrUnbound is returned by Record.Save and Record.Delete for records
	// that were not created through a Model.
	ErrUnbound = errors.New("dynamodel: record is not bound to a model")
)

// ValidationError is returned when a value is not acceptable for a field's kind.
type ValidationError struct {
	Field   string
	Value   any
	Kind    Kind
	Accepts []string
	// Reason is set for problems other than a type mismatch.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("dynamodel: %v is not valid for %s: %s", e.Value, e.fieldName(), e.Reason)
	}
	if e.Kind.IsSet() {
		return fmt.Sprintf("dynamodel: %v is not valid for %s. The type of value must be a set of a type in (%s)",
			e.Value, e.fieldName(), strings.Join(e.Accepts, ", "))
	}
	return fmt.Sprintf("dynamodel: %v is not valid for %s. The type of value must be in (%s)",
		e.Value, e.fieldName(), strings.Join(e.Accepts, ", "))
}

func (e *ValidationError) fieldName() string {
	if e.Field == "" {
		return "value"
	}
	return e.Field
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NullAttributeError is returned when a required field has no value at write time.
type NullAttributeError struct {
	Field string
}

func (e *NullAttributeError) Error() string {
	return fmt.Sprintf("dynamodel: attribute %s cannot be null", e.Field)
}

func (e *NullAttributeError) Is(target error) bool {
	return target == ErrNullAttribute
}

// ConditionNotRecognizedError is returned when a condition key has an unknown operator suffix,
// or an operator that is not allowed in the requested vocabulary.
type ConditionNotRecognizedError struct {
	Operator string
	Key      string
}

func (e *ConditionNotRecognizedError) Error() string {
	return fmt.Sprintf("dynamodel: operator '%s' from '%s' is not recognized", e.Operator, e.Key)
}

func (e *ConditionNotRecognizedError) Is(target error) bool {
	return target == ErrConditionNotRecognized
}

type unprocessedError struct {
	table string
	count int
	last  error
}

func (e *unprocessedError) Error() string {
	msg := fmt.Sprintf("dynamodel: %d items left unprocessed for table %s", e.count, e.table)
	if e.last != nil {
		msg += ": " + e.last.Error()
	}
	return msg
}

func (e *unprocessedError) Is(target error) bool {
	return target == ErrUnprocessed
}

func (e *unprocessedError) Unwrap() error {
	return e.last
}
