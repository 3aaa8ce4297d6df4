// Package apperr holds the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FieldError is one failed rule on one request field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) String() string {
	if f.Param != "" {
		return f.Field + ": " + f.Rule + "=" + f.Param
	}
	return f.Field + ": " + f.Rule
}

// ValidationError reports malformed or missing request fields
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a ValidationError for a single field
func Invalid(field, rule string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule}}}
}

// NotFoundError means a referenced id does not exist
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func NotFound(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidTransitionError rejects an order status change the state machine forbids
type InvalidTransitionError struct {
	From    string
	To      string
	Allowed string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s → %s is not allowed. Valid transitions from %s are: %s",
		e.From, e.To, e.From, e.Allowed)
}

// ConflictError is a request that clashes with current state (stock, busy driver)
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// UnauthorizedError is a failed login or a missing identity
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string { return e.Reason }

func Unauthorized(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

// UpstreamError wraps a failure of an external collaborator
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Service + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// InternalError is a server side failure. Unclassified errors are treated
// the same way by Status.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error { return e.Err }

func Internal(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}

// Status maps an error onto the HTTP status the API reports for it
func Status(err error) int {
	var (
		verr *ValidationError
		nerr *NotFoundError
		terr *InvalidTransitionError
		cerr *ConflictError
		aerr *UnauthorizedError
		uerr *UpstreamError
		ierr *InternalError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ierr):
		return http.StatusInternalServerError
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &nerr):
		return http.StatusNotFound
	case errors.As(err, &terr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &cerr):
		return http.StatusConflict
	case errors.As(err, &aerr):
		return http.StatusUnauthorized
	case errors.As(err, &uerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
