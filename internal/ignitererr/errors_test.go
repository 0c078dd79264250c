// Copyright 2025 James Ross
package ignitererr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSetsDefaultStatus(t *testing.T) {
	err := New(CodeNotFound, "job missing")
	require.Equal(t, CodeNotFound, err.Code)
	require.Equal(t, 404, err.Status)
	require.Equal(t, "job missing", err.Message)
}

func TestNewUnknownCodeDefaultsTo500(t *testing.T) {
	err := New(Code("JOBS_MADE_UP"), "whatever")
	require.Equal(t, 500, err.Status)
}

func TestNewfFormats(t *testing.T) {
	err := Newf(CodeDuplicateJob, "job %q already exists in %q", "send", "emails")
	require.Equal(t, `job "send" already exists in "emails"`, err.Message)
}

func TestWrapChainsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeAdapterConnectionFail, "redis dial failed", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "connection refused")
}

func TestWithDetailsReturnsSameError(t *testing.T) {
	err := New(CodeValidationFailed, "bad input").WithDetails(map[string]any{"field": "email"})
	require.Equal(t, "email", err.Details["field"])
}

func TestIsMatchesCode(t *testing.T) {
	err := New(CodeQueueNotFound, "no such queue")
	require.True(t, Is(err, CodeQueueNotFound))
	require.False(t, Is(err, CodeNotFound))
	require.False(t, Is(errors.New("plain"), CodeNotFound))
}

func TestCodeOfExtractsCode(t *testing.T) {
	err := New(CodeTimeout, "deadline exceeded")
	require.Equal(t, CodeTimeout, CodeOf(err))
	require.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestIsUnwrapsWrappedError(t *testing.T) {
	inner := New(CodeNotRegistered, "job not registered")
	outer := Wrap(CodeExecutionFailed, "handler panicked", inner)
	require.True(t, Is(outer, CodeExecutionFailed))
	require.True(t, Is(outer, CodeNotRegistered))
}
