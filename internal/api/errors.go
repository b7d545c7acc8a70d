package api

import (
	"errors"
	"fmt"
)

// ErrProgressNotInitialized reports that the backend has no progress record
// for the learner yet; callers initialize it and read again.
var ErrProgressNotInitialized = errors.New("progress not initialized")

// AuthError reports invalid credentials or a rejected bearer token.
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a connectivity failure or timeout.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out", e.Op)
	}
	return fmt.Sprintf("%s: cannot reach server: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError reports a missing lesson, day or child profile.
type NotFoundError struct {
	Resource string
	Message  string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Message)
	}
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ValidationError reports a rejected input, either client-side before any
// request is sent or echoed back by the server.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExecutionError reports that submitted code failed to run to completion.
// It is run output, not a system fault.
type ExecutionError struct {
	Status  int
	Message string
	Output  string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Message == "" {
		return "execution failed"
	}
	return "execution failed: " + e.Message
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// SchemaError reports a response that could not be normalized into the
// typed entities the client works with.
type SchemaError struct {
	Endpoint string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unexpected response from %s: %v", e.Endpoint, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ServerError reports any other non-success status.
type ServerError struct {
	Status  int
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (%d)", e.Status)
}

func (e *ServerError) Unwrap() error { return e.Err }

// ErrorKind classifies an error for display.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindAuth       ErrorKind = "auth"
	KindNetwork    ErrorKind = "network"
	KindNotFound   ErrorKind = "not_found"
	KindValidation ErrorKind = "validation"
	KindExecution  ErrorKind = "execution"
	KindSchema     ErrorKind = "schema"
	KindServer     ErrorKind = "server"
	KindOther      ErrorKind = "other"
)

// Kind returns the taxonomy kind of err, looking through wrapping.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		authErr   *AuthError
		netErr    *NetworkError
		nfErr     *NotFoundError
		valErr    *ValidationError
		execErr   *ExecutionError
		schemaErr *SchemaError
		srvErr    *ServerError
	)
	switch {
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &nfErr):
		return KindNotFound
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &execErr):
		return KindExecution
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &srvErr):
		return KindServer
	}
	return KindOther
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool { return Kind(err) == KindAuth }

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool { return Kind(err) == KindNetwork }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return Kind(err) == KindNotFound }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return Kind(err) == KindValidation }
