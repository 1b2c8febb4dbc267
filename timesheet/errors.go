/*
errors.go - Centralized error types for the timesheet engine

PURPOSE:
  All domain errors in one place. The HTTP layer maps these onto status
  codes (400/403/404/409); anything else propagates as an opaque 500.

ERROR CATEGORIES:
  1. Validation errors - missing or malformed submission fields
  2. Lock errors - mutation attempted on a non-Draft entry
  3. Not-found errors - entry or sub-record id does not resolve
  4. Conflict errors - uniqueness violation on concurrent creation

Dangling milestone/leave/consultant references are deliberately NOT errors:
aggregation substitutes fallback labels so reports never fail outright.

SEE ALSO:
  - mutator.go: Raises lock / not-found errors
  - status.go: Raises transition errors
  - api/handlers.go: Maps errors to HTTP status codes
*/
package timesheet

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the base error for missing/invalid submission fields.
	ErrValidation = errors.New("validation failed")

	// ErrEntryLocked is returned when a mutation targets an entry whose
	// status has left Draft.
	ErrEntryLocked = errors.New("timesheet entry has been submitted and cannot be modified")

	// ErrEntryNotFound is returned when an entry id does not resolve.
	ErrEntryNotFound = errors.New("timesheet entry not found")

	// ErrMilestoneWorkNotFound is returned when a milestone sub-record id
	// does not resolve within its entry.
	ErrMilestoneWorkNotFound = errors.New("milestone entry not found")

	// ErrLeaveNotFound is returned when a leave sub-record id does not
	// resolve within its entry.
	ErrLeaveNotFound = errors.New("leave entry not found")

	// ErrDuplicateEntry is returned when creating an entry for a
	// (consultant, year, month, day) that already has one. Surfaces the
	// uniqueness index on concurrent submissions.
	ErrDuplicateEntry = errors.New("entry already exists for this day")

	// ErrInvalidTransition is returned for a (from, to) pair that is not
	// a single workflow step.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTransitionDenied is returned when the injected transition policy
	// rejects the acting identity.
	ErrTransitionDenied = errors.New("transition not permitted for this role")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// LockedEntryError carries the entry and its blocking status.
type LockedEntryError struct {
	EntryID string
	Status  Status
}

func (e *LockedEntryError) Error() string {
	return fmt.Sprintf("entry %s is %s and cannot be modified", e.EntryID, e.Status)
}

func (e *LockedEntryError) Unwrap() error { return ErrEntryLocked }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrMilestoneWorkNotFound) ||
		errors.Is(err, ErrLeaveNotFound)
}

// IsForbidden reports whether the error should surface as a 403.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrEntryLocked) ||
		errors.Is(err, ErrTransitionDenied)
}
