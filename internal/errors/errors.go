/*
Copyright 2026 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package errors implements the single structured error taxonomy used
// by this service (§7). An *AppError that reaches the API surface maps to
// the right HTTP status without re-inspecting error strings; components
// off that path may return plain errors.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorType names one of the taxonomy categories from §7.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeLifecycle  ErrorType = "lifecycle"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation: http.StatusBadRequest,
	ErrorTypeAuth:       http.StatusUnauthorized,
	ErrorTypeNotFound:   http.StatusNotFound,
	ErrorTypeConflict:   http.StatusConflict,
	ErrorTypeTimeout:    http.StatusRequestTimeout,
	ErrorTypeRateLimit:  http.StatusTooManyRequests,
	ErrorTypeDatabase:   http.StatusInternalServerError,
	ErrorTypeNetwork:    http.StatusInternalServerError,
	ErrorTypeLifecycle:  http.StatusConflict,
	ErrorTypeConfig:     http.StatusUnprocessableEntity,
	ErrorTypeInternal:   http.StatusInternalServerError,
}

// AppError is a structured error carrying enough context for the API
// surface to render {error, message, path} (§7) without string sniffing.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

// New creates an AppError of the given type with no cause.
func New(t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: statusCodes[t],
	}
}

// Newf creates an AppError with a formatted message.
func Newf(t ErrorType, format string, args ...any) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

// Wrap creates an AppError of the given type around an existing error.
func Wrap(cause error, t ErrorType, message string) *AppError {
	err := New(t, message)
	err.Cause = cause
	return err
}

// Wrapf creates a wrapped AppError with a formatted message.
func Wrapf(cause error, t ErrorType, format string, args ...any) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap lets errors.Is/As see through to the underlying cause.
func (e *AppError) Unwrap() error { return e.Cause }

// WithDetails attaches free-form details to the error in place and
// returns it, so call sites can chain: errors.New(...).WithDetails(...).
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf attaches formatted details in place.
func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// Predefined constructors for the most common cases.

func Validation(message string) *AppError { return New(ErrorTypeValidation, message) }
func NotFound(message string) *AppError   { return New(ErrorTypeNotFound, message) }
func Conflict(message string) *AppError   { return New(ErrorTypeConflict, message) }
func Internal(message string) *AppError   { return New(ErrorTypeInternal, message) }

// Lifecycle reports an illegal WarningEvent/WorkOrder state transition.
func Lifecycle(message string) *AppError { return New(ErrorTypeLifecycle, message) }

// ConfigMissing reports configuration required by the warning engine that
// was not found; this is the strict-failure half of ConfigurationMissing
// (§7) — calibration/validation missing-config is permissive pass-through
// and is not represented as an error at all.
func ConfigMissing(message string) *AppError { return New(ErrorTypeConfig, message) }
