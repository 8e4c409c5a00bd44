// Package errors provides error handling for vanadev.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "run 'vanadev env create' first")
//
//	// Check errors
//	if errors.Is(err, errors.ErrEnvNotFound) {
//	    // handle missing environment
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Combining errors
var (
	CombineErrors = crdb.CombineErrors
	Join          = crdb.Join
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Common sentinel errors for use across vanadev.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrEnvNotFound indicates the named test environment is not declared
	// in the project manifest
	ErrEnvNotFound = New("environment not found")

	// ErrInterpreterNotFound indicates no suitable Python interpreter was
	// found on PATH for an environment
	ErrInterpreterNotFound = New("interpreter not found")

	// ErrPlatformMismatch indicates an environment is gated to a different
	// platform than the current one
	ErrPlatformMismatch = New("platform mismatch")

	// ErrHookFailed indicates a pre-commit hook exited non-zero
	ErrHookFailed = New("hook failed")

	// ErrInvalidSpec indicates a VCS install spec string does not conform
	// to the git+<url>@<ref>#egg=<name>[<extras>] scheme
	ErrInvalidSpec = New("invalid install spec")

	// ErrNotARepository indicates the working directory is not inside a
	// git repository
	ErrNotARepository = New("not a git repository")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")

	// ErrConflict indicates a resource conflict (e.g., duplicate key)
	ErrConflict = New("resource conflict")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound or one of the
// more specific not-found sentinels.
func IsNotFoundError(err error) bool {
	return err != nil && IsAny(err, ErrNotFound, ErrEnvNotFound, ErrInterpreterNotFound)
}

// NewEnvNotFoundError creates an env-not-found error naming the environment
func NewEnvNotFoundError(name string) error {
	return WithHintf(Wrapf(ErrEnvNotFound, "environment %q", name),
		"run 'vanadev list' to see declared environments")
}

// NewInvalidSpecError creates an invalid-spec error with a formatted message
func NewInvalidSpecError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidSpec, Newf(format, args...).Error())
}
