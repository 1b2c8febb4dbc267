/*
status.go - Status transition engine

PURPOSE:
  The finite state machine advancing or reverting a consultant-month's
  entries between Draft, Submitted, Approved, and Processed. Each named
  transition is a single atomic bulk update scoped by consultant + year +
  month and conditioned on the current status, so a retried transition
  matches zero entries instead of double-applying.

STATE MACHINE:
  Draft -> Submitted -> Approved -> Processed
  with single-step reverts only. No skipping in either direction.

AUTHORIZATION:
  The engine itself is authorization-agnostic. Callers inject a
  TransitionPolicy predicate; the HTTP layer supplies one derived from the
  authenticated identity's role. A nil policy permits everything.

SEE ALSO:
  - store.go: BulkSetStatus contract
  - api/auth.go: Role-based policy used in production
*/
package timesheet

import (
	"context"
	"fmt"
)

// =============================================================================
// TRANSITIONS
// =============================================================================

// Transition is a named single-step move in the status workflow.
type Transition struct {
	Name string
	From Status
	To   Status
}

var (
	Submit          = Transition{Name: "submit", From: StatusDraft, To: StatusSubmitted}
	Revert          = Transition{Name: "revert", From: StatusSubmitted, To: StatusDraft}
	Approve         = Transition{Name: "approve", From: StatusSubmitted, To: StatusApproved}
	RevertApproved  = Transition{Name: "revertApproved", From: StatusApproved, To: StatusSubmitted}
	Process         = Transition{Name: "process", From: StatusApproved, To: StatusProcessed}
	RevertProcessed = Transition{Name: "revertProcessed", From: StatusProcessed, To: StatusApproved}
)

// Transitions lists every legal transition, keyed by endpoint name.
var Transitions = map[string]Transition{
	Submit.Name:          Submit,
	Revert.Name:          Revert,
	Approve.Name:         Approve,
	RevertApproved.Name:  RevertApproved,
	Process.Name:         Process,
	RevertProcessed.Name: RevertProcessed,
}

// Validate checks that the transition moves exactly one step.
func (t Transition) Validate() error {
	fromPos, fromOK := statusOrder[t.From]
	toPos, toOK := statusOrder[t.To]
	if !fromOK || !toOK {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.From, t.To)
	}
	if diff := toPos - fromPos; diff != 1 && diff != -1 {
		return fmt.Errorf("%w: %s -> %s skips states", ErrInvalidTransition, t.From, t.To)
	}
	return nil
}

// IsRevert reports whether the transition moves backwards.
func (t Transition) IsRevert() bool {
	return statusOrder[t.To] < statusOrder[t.From]
}

// =============================================================================
// ACTOR & POLICY
// =============================================================================

// Actor is the already-authenticated identity performing a transition.
// Authentication itself is an external collaborator's concern.
type Actor struct {
	ConsultantID string
	Role         string
}

// TransitionPolicy decides whether an actor may apply a transition.
// Return ErrTransitionDenied (or a wrapper) to reject.
type TransitionPolicy func(actor Actor, t Transition) error

// =============================================================================
// ENGINE
// =============================================================================

// TransitionEngine applies bulk status transitions to a consultant-month.
type TransitionEngine struct {
	Store  EntryStore
	Policy TransitionPolicy // nil permits everything
}

func NewTransitionEngine(store EntryStore, policy TransitionPolicy) *TransitionEngine {
	return &TransitionEngine{Store: store, Policy: policy}
}

// Apply moves every entry for (consultantID, year, month) currently in
// t.From to t.To and returns the number of entries changed. Zero is a
// valid, non-error outcome: either nothing was in t.From, or the same
// transition already ran.
func (e *TransitionEngine) Apply(ctx context.Context, actor Actor, t Transition, consultantID string, year, month int) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	if consultantID == "" {
		return 0, &ValidationError{Field: "consultantId", Message: "required"}
	}
	if year <= 0 {
		return 0, &ValidationError{Field: "year", Message: "must be positive"}
	}
	if month < 1 || month > 12 {
		return 0, &ValidationError{Field: "month", Message: "must be 1-12"}
	}
	if e.Policy != nil {
		if err := e.Policy(actor, t); err != nil {
			return 0, err
		}
	}

	return e.Store.BulkSetStatus(ctx, consultantID, year, month, t.From, t.To)
}
