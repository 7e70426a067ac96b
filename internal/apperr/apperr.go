// Package apperr holds the error taxonomy shared by the engine, the store and the API.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrComputation = errors.New("computation failed")
	ErrBlocked     = errors.New("blocked by guardrail")
	ErrConflict    = errors.New("conflict")
)

// ValidationError collects every problem found in one input so callers can fix them together.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation returns nil when there are no problems.
func Validation(problems ...string) error {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &ValidationError{Problems: out}
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NotFound(kind string, id any) error {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

// ComputationError marks a defect: scoring and capping are total over validated input.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation error in %s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() []error { return []error{ErrComputation, e.Err} }

func Computation(op string, err error) error {
	return &ComputationError{Op: op, Err: err}
}

// BlockedError is returned when enforcement mode "block" rejects an action.
type BlockedError struct {
	Rule    string
	Message string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBlocked):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrComputation):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
