package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy shared by services, adapters and the API layer.
// Callers match with errors.Is; wrapped messages add context.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrProvider         = errors.New("travel time provider error")
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrInvalidFormat    = errors.New("invalid data format")
)

// ValidationError collects per-field problems with a route submission.
// It matches ErrValidation via errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
}

// Set records a message for field, replacing any earlier one.
func (e *ValidationError) Set(field, msg string) {
	e.Fields[field] = msg
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// OrNil returns nil when no field failed so it can be returned directly.
func (e *ValidationError) OrNil() error {
	if e == nil || e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
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

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UserMessage renders err as a human-readable sentence suitable for display.
// Unknown errors collapse to a generic message so raw internals never leak.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "Please correct the highlighted fields: " + strings.TrimPrefix(ve.Error(), "validation failed: ")
	case errors.Is(err, ErrNotFound):
		return "The requested item could not be found."
	case errors.Is(err, ErrPermissionDenied):
		return "Notification permission denied. Please enable notifications in your settings."
	case errors.Is(err, ErrInvalidFormat):
		return "Invalid data format. The import file must contain a routes list."
	case errors.Is(err, ErrProvider):
		return "Unable to calculate route. Please check your locations and try again."
	default:
		return "Something went wrong. Please try again."
	}
}
