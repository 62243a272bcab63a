// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for Dirigent.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Dirigent errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates bad caller input, such as a missing agent name.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates an unknown agent or conversation id.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUpstream indicates the completion service or a tool transport failed.
	CodeUpstream ErrorCode = "UPSTREAM_ERROR"

	// CodeTimeout indicates a run exceeded its deadline.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeParse indicates completion output did not match the expected shape.
	// Parse errors are always recovered locally with deterministic fallbacks.
	CodeParse ErrorCode = "PARSE_ERROR"

	// CodeToolFailure indicates a tool invocation failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"
)

// DirigentError is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type DirigentError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *DirigentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *DirigentError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *DirigentError) MarshalJSON() ([]byte, error) {
	type Alias DirigentError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new DirigentError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *DirigentError {
	return &DirigentError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *DirigentError) WithContext(key string, value interface{}) *DirigentError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *DirigentError) WithRecoverable(recoverable bool) *DirigentError {
	e.Recoverable = recoverable
	return e
}

// As attempts to convert an error to a DirigentError.
// Returns the error as DirigentError if it is one, or wraps it as internal.
func As(err error) *DirigentError {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DirigentError); ok {
		return de
	}
	return New(CodeInternal, "wrapped error", err)
}

// IsCode reports whether err is a DirigentError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	de, ok := err.(*DirigentError)
	return ok && de.Code == code
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput:
		return 400
	case CodeTimeout:
		return 408
	case CodeUpstream:
		return 502
	default:
		return 500
	}
}
