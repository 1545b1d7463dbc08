package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ValidationError reports malformed subscribe/send input, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	verr := &ValidationError{}
	verr.Add(field, message)
	return verr
}

// Add records a field failure, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = message
}

// OrNil returns nil when no field failed so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StorageError wraps persistence failures. The operation is aborted.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err, returning nil for nil errors.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var serr *StorageError
	if errors.As(err, &serr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage: %s failed", e.Op)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DeliveryError captures a per-recipient push failure.
type DeliveryError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("delivery: %v", e.Err)
	case e.Body != "":
		return fmt.Sprintf("delivery: push service responded %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("delivery: push service responded %d", e.StatusCode)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Gone reports whether the push service considers the subscription expired.
func (e *DeliveryError) Gone() bool {
	return e.StatusCode == http.StatusGone || e.StatusCode == http.StatusNotFound
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var serr *StorageError
	return errors.As(err, &serr)
}

// IsDeliveryError reports whether err carries a DeliveryError.
func IsDeliveryError(err error) bool {
	var derr *DeliveryError
	return errors.As(err, &derr)
}

// IsGone reports whether err is a DeliveryError for an expired endpoint.
func IsGone(err error) bool {
	var derr *DeliveryError
	return errors.As(err, &derr) && derr.Gone()
}
