package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited indicates rate limit exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Load failures
var (
	// ErrEmptyExtraction indicates the naive text extraction produced nothing
	ErrEmptyExtraction = errors.New("could not extract text from document")
	// ErrReadFailure indicates the uploaded file could not be read
	ErrReadFailure = errors.New("failed to read file")
)

// Service failures
var (
	// ErrInvalidInput indicates a request that was rejected before any external call
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamFailure indicates the external capability returned an error
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrBusy indicates another operation is already in flight
	ErrBusy = errors.New("another request is in progress")
	// ErrSuperseded indicates an answer was discarded because a new document replaced the old one
	ErrSuperseded = errors.New("question superseded by a new document")
)

// Validation failures
var (
	// ErrTooShort indicates a question below the minimum length
	ErrTooShort = errors.New("question must be at least 2 characters")
	// ErrNoDocument indicates an operation that needs an uploaded document
	ErrNoDocument = errors.New("please upload a document first")
)

// LoadError is returned by the document loader.
type LoadError struct {
	Kind error
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ServiceError is returned by the suggestion, answer and summary clients.
// Message carries the upstream message unchanged.
type ServiceError struct {
	Kind    error
	Message string
	Err     error
}

// NewUpstreamError wraps a failure reported by an external capability.
func NewUpstreamError(err error) *ServiceError {
	return &ServiceError{Kind: ErrUpstreamFailure, Message: err.Error(), Err: err}
}

// NewInvalidInputError reports a precondition failure.
func NewInvalidInputError(message string) *ServiceError {
	return &ServiceError{Kind: ErrInvalidInput, Message: message}
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *ServiceError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ValidationError is a local precondition failure of the conversation.
type ValidationError struct {
	Kind error
}

func (e *ValidationError) Error() string {
	return e.Kind.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}
