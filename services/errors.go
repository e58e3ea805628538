package services

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is implemented by errors that map onto a response status.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors, use with errors.Is().
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUpstream     = errors.New("upstream failure")
	ErrStore        = errors.New("store failure")
)

type (
	// NotFoundError reports a folder, photo or section with no record.
	NotFoundError struct {
		Resource string
		ID       string
	}

	// ValidationError reports unusable input.
	ValidationError struct {
		Message string
	}

	// UpstreamError wraps a failed Drive call.
	UpstreamError struct {
		Op  string
		Err error
	}

	// StoreError wraps a failed record store read or write.
	StoreError struct {
		Op  string
		Err error
	}
)

func (e *NotFoundError) Error() string   { return fmt.Sprintf("%s not found", e.Resource) }
func (e *ValidationError) Error() string { return e.Message }
func (e *UpstreamError) Error() string   { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StoreError) Error() string      { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *UpstreamError) StatusCode() int   { return http.StatusBadGateway }
func (e *StoreError) StatusCode() int      { return http.StatusInternalServerError }

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *UpstreamError) Is(target error) bool   { return target == ErrUpstream }
func (e *StoreError) Is(target error) bool      { return target == ErrStore }

func (e *UpstreamError) Unwrap() error { return e.Err }
func (e *StoreError) Unwrap() error    { return e.Err }

func notFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func upstreamErr(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
