/*
mutator.go - Draft-only mutation rules for timesheet entries

PURPOSE:
  Enforces the invariant that a day's entry cannot be edited once its
  status has left Draft, and owns the find-or-create logic for daily
  submissions: milestone work is appended (never replaced), leaves are
  replaced wholesale when a non-empty payload is supplied, and the daily
  worked-hours total is recomputed after every mutation.

CONCURRENCY:
  AddWork is a read-check-then-write sequence. The store's uniqueness
  index on (consultant, year, month, day) turns the create race between
  two concurrent submissions into ErrDuplicateEntry instead of a silent
  duplicate; callers retry or surface a conflict.

SEE ALSO:
  - store.go: EntryStore operations used here
  - aggregate.go: Read-side merging of entries
*/
package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT TYPES
// =============================================================================

// WorkItem is one milestone-work line in a submission.
type WorkItem struct {
	MilestoneID string
	Hours       decimal.Decimal
	Status      string // defaults to "worked"
}

// LeaveItem is one leave line in a submission.
type LeaveItem struct {
	LeaveTypeID string
	Period      LeavePeriod
}

// AddWorkInput is a daily submission: work lines plus optional leaves.
type AddWorkInput struct {
	ConsultantID string
	UserID       string
	Year         int
	Month        int // 1-based
	Day          int
	Work         []WorkItem
	Leaves       []LeaveItem
	Weekend      bool
}

func (in *AddWorkInput) validate() error {
	switch {
	case in.ConsultantID == "":
		return &ValidationError{Field: "consultantId", Message: "required"}
	case in.Year <= 0:
		return &ValidationError{Field: "year", Message: "must be positive"}
	case in.Month < 1 || in.Month > 12:
		return &ValidationError{Field: "month", Message: "must be 1-12"}
	case in.Day < 1 || in.Day > 31:
		return &ValidationError{Field: "day", Message: "must be 1-31"}
	case len(in.Work) == 0:
		return &ValidationError{Field: "milestones", Message: "at least one milestone entry is required"}
	}
	for _, w := range in.Work {
		if w.MilestoneID == "" {
			return &ValidationError{Field: "milestones.milestoneId", Message: "required"}
		}
		if w.Hours.IsNegative() {
			return &ValidationError{Field: "milestones.hours", Message: "must not be negative"}
		}
	}
	for _, l := range in.Leaves {
		if l.LeaveTypeID == "" {
			return &ValidationError{Field: "leaves.leaveTypeId", Message: "required"}
		}
		if !l.Period.Valid() {
			return &ValidationError{Field: "leaves.period", Message: `must be "Full Day" or "Half Day"`}
		}
	}
	return nil
}

// =============================================================================
// MUTATOR
// =============================================================================

// Mutator applies draft-only mutations to entries.
type Mutator struct {
	Store EntryStore

	// now is injectable for deterministic ids in tests.
	now func() time.Time
}

func NewMutator(store EntryStore) *Mutator {
	return &Mutator{Store: store, now: time.Now}
}

// AddWork records work (and optionally leaves) for one consultant-day.
//  1. Rejects with ErrEntryLocked if any existing entry for the day has
//     left Draft.
//  2. If a Draft entry exists, appends the new work items to it and
//     replaces its leaves when a non-empty leave payload is supplied.
//  3. Otherwise creates a fresh Draft entry.
//
// The boolean result reports whether a new entry was created.
func (m *Mutator) AddWork(ctx context.Context, in AddWorkInput) (*Entry, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	existing, err := m.Store.FindDayEntries(ctx, in.ConsultantID, in.Year, in.Month, in.Day)
	if err != nil {
		return nil, false, err
	}
	for i := range existing {
		if existing[i].Status != StatusDraft {
			return nil, false, &LockedEntryError{EntryID: existing[i].ID, Status: existing[i].Status}
		}
	}

	if len(existing) > 0 {
		entry := existing[0]
		for _, w := range in.Work {
			entry.MilestoneWork = append(entry.MilestoneWork, m.newWork(w, len(entry.MilestoneWork)))
		}
		if len(in.Leaves) > 0 {
			entry.Leaves = m.newLeaves(in.Leaves)
		}
		if err := m.Store.SaveEntry(ctx, entry); err != nil {
			return nil, false, err
		}
		return &entry, false, nil
	}

	entry := Entry{
		ID:           m.newID("entry"),
		ConsultantID: in.ConsultantID,
		UserID:       in.UserID,
		Year:         in.Year,
		Month:        in.Month,
		Day:          in.Day,
		Weekend:      in.Weekend,
		Status:       StatusDraft,
	}
	for i, w := range in.Work {
		entry.MilestoneWork = append(entry.MilestoneWork, m.newWork(w, i))
	}
	entry.Leaves = m.newLeaves(in.Leaves)

	if err := m.Store.InsertEntry(ctx, entry); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

// UpdateMilestoneHours sets hours (and optionally the work status) on one
// milestone sub-record of a Draft entry, located by entry id + sub-record id.
func (m *Mutator) UpdateMilestoneHours(ctx context.Context, entryID, workID string, hours decimal.Decimal, status string) (*Entry, error) {
	if hours.IsNegative() {
		return nil, &ValidationError{Field: "hours", Message: "must not be negative"}
	}

	entry, err := m.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if entry.Status != StatusDraft {
		return nil, &LockedEntryError{EntryID: entry.ID, Status: entry.Status}
	}

	found := false
	for i := range entry.MilestoneWork {
		if entry.MilestoneWork[i].ID == workID {
			entry.MilestoneWork[i].Hours = hours
			if status != "" {
				entry.MilestoneWork[i].Status = status
			}
			found = true
			break
		}
	}
	if !found {
		return nil, ErrMilestoneWorkNotFound
	}

	if err := m.Store.SaveEntry(ctx, *entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveMilestone deletes one milestone sub-record from a Draft entry.
func (m *Mutator) RemoveMilestone(ctx context.Context, entryID, workID string) (*Entry, error) {
	entry, err := m.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if entry.Status != StatusDraft {
		return nil, &LockedEntryError{EntryID: entry.ID, Status: entry.Status}
	}

	kept := entry.MilestoneWork[:0]
	found := false
	for _, w := range entry.MilestoneWork {
		if w.ID == workID {
			found = true
			continue
		}
		kept = append(kept, w)
	}
	if !found {
		return nil, ErrMilestoneWorkNotFound
	}
	entry.MilestoneWork = kept

	if err := m.Store.SaveEntry(ctx, *entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveLeave deletes one leave sub-record from a Draft entry.
func (m *Mutator) RemoveLeave(ctx context.Context, entryID, leaveID string) (*Entry, error) {
	entry, err := m.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if entry.Status != StatusDraft {
		return nil, &LockedEntryError{EntryID: entry.ID, Status: entry.Status}
	}

	kept := entry.Leaves[:0]
	found := false
	for _, l := range entry.Leaves {
		if l.ID == leaveID {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return nil, ErrLeaveNotFound
	}
	entry.Leaves = kept

	if err := m.Store.SaveEntry(ctx, *entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Mutator) newWork(w WorkItem, seq int) MilestoneWork {
	status := w.Status
	if status == "" {
		status = WorkStatusWorked
	}
	return MilestoneWork{
		ID:          fmt.Sprintf("%s-%d", m.newID("work"), seq),
		MilestoneID: w.MilestoneID,
		Hours:       w.Hours,
		Status:      status,
	}
}

func (m *Mutator) newLeaves(items []LeaveItem) []Leave {
	var leaves []Leave
	for i, l := range items {
		leaves = append(leaves, Leave{
			ID:          fmt.Sprintf("%s-%d", m.newID("leave"), i),
			LeaveTypeID: l.LeaveTypeID,
			Period:      l.Period,
		})
	}
	return leaves
}

func (m *Mutator) newID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, m.now().UnixNano())
}
