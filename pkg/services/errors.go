// Package services implements the onboarding request operations behind the
// HTTP API: submission, evaluation, review decisions and task callbacks.
package services

import (
	"errors"
	"fmt"

	"github.com/clearway/clearway/pkg/approval"
	"github.com/clearway/clearway/pkg/compliance"
	"github.com/clearway/clearway/pkg/orchestrator"
	"github.com/clearway/clearway/pkg/persistence"
	"github.com/clearway/clearway/pkg/risk"
)

// Business logic errors. Validation errors map to 400 responses, conflicts to
// 409.
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrRequestNotFound = persistence.ErrRequestNotFound
	ErrTaskNotFound    = persistence.ErrTaskNotFound

	// ErrNotReviewable is returned for a decision on a request that is not
	// waiting on one.
	ErrNotReviewable = errors.New("request is not under review")

	// ErrNotResubmittable is returned when resubmission is attempted outside
	// the needs_changes state.
	ErrNotResubmittable = errors.New("request does not need changes")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: message, Err: err}
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, risk.ErrInvalidInput) ||
		errors.Is(err, persistence.ErrInvalidRequestStatus)
}

// IsConflictError checks if an error should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNotReviewable) ||
		errors.Is(err, ErrNotResubmittable) ||
		errors.Is(err, approval.ErrInvalidTransition) ||
		errors.Is(err, orchestrator.ErrInvalidTaskTransition) ||
		errors.Is(err, orchestrator.ErrDependenciesIncomplete) ||
		errors.Is(err, orchestrator.ErrRequestNotActive)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, persistence.ErrRequestNotFound) ||
		errors.Is(err, persistence.ErrTaskNotFound)
}

// IsOperatorError checks for configuration faults that need an operator, not
// the caller.
func IsOperatorError(err error) bool {
	return errors.Is(err, compliance.ErrUnknownFramework)
}
