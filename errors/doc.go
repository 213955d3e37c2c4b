// Package errors provides structured error types for stencil finalization.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the script name, a field path and a cause
// chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInit, errors.KindInvalidInput).
//		Script("outer.inner").
//		Detail("context not complete").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed(errors.PhasePack, size, 4, cause)
//
// Allocation failure is the only error the finalization core returns.
// Precondition violations are programming errors and are raised with
// Violate, which panics with a *Error of KindPrecondition.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
