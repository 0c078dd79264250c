// Copyright 2025 James Ross
// Package ignitererr defines the stable error taxonomy shared across the
// jobs runtime: every error raised by a builder, backend, or the runtime
// manager carries one of the Code values below.
package ignitererr

import (
	"errors"
	"fmt"
)

// Code is a stable, user-facing error identifier.
type Code string

const (
	CodeAdapterRequired       Code = "JOBS_ADAPTER_REQUIRED"
	CodeServiceRequired       Code = "JOBS_SERVICE_REQUIRED"
	CodeContextRequired       Code = "JOBS_CONTEXT_REQUIRED"
	CodeConfigurationInvalid  Code = "JOBS_CONFIGURATION_INVALID"
	CodeQueueNotFound         Code = "JOBS_QUEUE_NOT_FOUND"
	CodeQueueDuplicate        Code = "JOBS_QUEUE_DUPLICATE"
	CodeQueueOperationFailed  Code = "JOBS_QUEUE_OPERATION_FAILED"
	CodeInvalidDefinition     Code = "JOBS_INVALID_DEFINITION"
	CodeHandlerRequired       Code = "JOBS_HANDLER_REQUIRED"
	CodeDuplicateJob          Code = "JOBS_DUPLICATE_JOB"
	CodeNotFound              Code = "JOBS_NOT_FOUND"
	CodeNotRegistered         Code = "JOBS_NOT_REGISTERED"
	CodeExecutionFailed       Code = "JOBS_EXECUTION_FAILED"
	CodeTimeout               Code = "JOBS_TIMEOUT"
	CodeContextFactoryFailed  Code = "JOBS_CONTEXT_FACTORY_FAILED"
	CodeValidationFailed      Code = "JOBS_VALIDATION_FAILED"
	CodeInvalidInput          Code = "JOBS_INVALID_INPUT"
	CodeInvalidCron           Code = "JOBS_INVALID_CRON"
	CodeInvalidSchedule       Code = "JOBS_INVALID_SCHEDULE"
	CodeScopeAlreadyDefined   Code = "JOBS_SCOPE_ALREADY_DEFINED"
	CodeScopeNotDeclared      Code = "JOBS_SCOPE_NOT_DECLARED"
	CodeWorkerFailed          Code = "JOBS_WORKER_FAILED"
	CodeAdapterError          Code = "JOBS_ADAPTER_ERROR"
	CodeAdapterConnectionFail Code = "JOBS_ADAPTER_CONNECTION_FAILED"
	CodeSubscribeFailed       Code = "JOBS_SUBSCRIBE_FAILED"
)

// defaultStatus maps a code to the HTTP-ish status an API layer would
// surface it as. Codes outside this table default to 500.
var defaultStatus = map[Code]int{
	CodeAdapterRequired:       500,
	CodeServiceRequired:       500,
	CodeContextRequired:       500,
	CodeConfigurationInvalid:  400,
	CodeQueueNotFound:         404,
	CodeQueueDuplicate:        409,
	CodeQueueOperationFailed:  500,
	CodeInvalidDefinition:     400,
	CodeHandlerRequired:       400,
	CodeDuplicateJob:          409,
	CodeNotFound:              404,
	CodeNotRegistered:         500,
	CodeExecutionFailed:       500,
	CodeTimeout:               504,
	CodeContextFactoryFailed:  500,
	CodeValidationFailed:      400,
	CodeInvalidInput:          400,
	CodeInvalidCron:           400,
	CodeInvalidSchedule:       400,
	CodeScopeAlreadyDefined:   409,
	CodeScopeNotDeclared:      400,
	CodeWorkerFailed:          500,
	CodeAdapterError:          502,
	CodeAdapterConnectionFail: 503,
	CodeSubscribeFailed:       502,
}

// Error is the single error type used across the core. Details carries
// structured, code-specific context (e.g. validation issues).
type Error struct {
	Code    Code
	Message string
	Status  int
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error for code with the default status for that code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusFor(code)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap builds an Error that chains an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	e := New(code, message)
	e.Err = err
	return e
}

// WithDetails attaches structured details and returns the same *Error for
// chaining at the call site.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func statusFor(code Code) int {
	if s, ok := defaultStatus[code]; ok {
		return s
	}
	return 500
}

// Is reports whether err (or anything it wraps) carries code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Unwrap()
	}
	return false
}

// CodeOf extracts the Code from err, returning "" if err is not (or does
// not wrap) an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
