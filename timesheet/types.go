/*
Package timesheet contains the timesheet lifecycle and aggregation engine.

PURPOSE:
  This package holds the domain model and algorithms for per-day timesheet
  entries: the status workflow (Draft -> Submitted -> Approved -> Processed),
  the mutation rules for milestone-work and leave sub-records, and the
  read-only aggregation that rolls daily entries up into consultant,
  milestone, and period level reports.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: one consultant's timesheet record for a single calendar day
  - MilestoneWork: hours logged against a project deliverable
  - Leave: a Full Day / Half Day absence attached to a day
  - Status: the workflow stage of an entry

CONVENTIONS:
  1. Months are 1-based everywhere (1 = January), matching time.Month.
     Period comparisons use a linear month index (year*12 + month) so that
     ranges spanning a year boundary reduce to a single inequality.
  2. Hours use decimal.Decimal. Conversion to float64 happens only at the
     API boundary, and day conversions (hours/8) are rounded to two
     decimals at the point of display, never earlier.
  3. At most one entry exists per (consultant, year, month, day). The
     store enforces this; the day aggregation still merges duplicates as a
     compatibility shim for legacy data.

SEE ALSO:
  - status.go: Transition definitions and the bulk transition engine
  - mutator.go: Draft-only mutation rules
  - aggregate.go: Day / month / period aggregation algorithms
  - store.go: EntryStore persistence interface
*/
package timesheet

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Workflow stage of an entry
// =============================================================================

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSubmitted Status = "Submitted"
	StatusApproved  Status = "Approved"
	StatusProcessed Status = "Processed"
)

// statusOrder gives the position of each status in the workflow.
// Transitions may only move one step in either direction.
var statusOrder = map[Status]int{
	StatusDraft:     0,
	StatusSubmitted: 1,
	StatusApproved:  2,
	StatusProcessed: 3,
}

func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// =============================================================================
// LEAVE PERIOD
// =============================================================================

type LeavePeriod string

const (
	FullDay LeavePeriod = "Full Day"
	HalfDay LeavePeriod = "Half Day"
)

// DayValue returns the day-count contribution of a leave period:
// a full day counts 1.0, a half day 0.5.
func (p LeavePeriod) DayValue() decimal.Decimal {
	if p == HalfDay {
		return decimal.NewFromFloat(0.5)
	}
	return decimal.NewFromInt(1)
}

func (p LeavePeriod) Valid() bool {
	return p == FullDay || p == HalfDay
}

// =============================================================================
// ENTRY - One consultant-day timesheet record
// =============================================================================

// MilestoneWork is one milestone-work sub-record inside an entry.
// MilestoneName is resolved at read time; it is empty when the referenced
// milestone no longer exists (aggregation substitutes a fallback label).
type MilestoneWork struct {
	ID            string
	MilestoneID   string
	MilestoneName string
	Hours         decimal.Decimal
	Status        string // always "worked" today; kept for forward compat
}

// WorkStatusWorked is the only milestone-work status currently in use.
const WorkStatusWorked = "worked"

// Leave is one leave sub-record inside an entry.
type Leave struct {
	ID          string
	LeaveTypeID string
	TypeName    string // resolved at read time, empty if dangling
	Period      LeavePeriod
}

// Entry is a consultant's timesheet record for a single calendar day.
// ConsultantName/ConsultantRole are resolved at read time and may be empty.
type Entry struct {
	ID             string
	ConsultantID   string
	ConsultantName string
	ConsultantRole string
	UserID         string
	Year           int
	Month          int // 1-based
	Day            int
	MilestoneWork  []MilestoneWork
	Leaves         []Leave
	Weekend        bool
	Status         Status

	// Processed mirrors Status == Processed. Older records carried only
	// this flag; it is kept in sync by the transition engine.
	Processed bool
}

// TotalWorkedHours is the sum of all milestone-work hours for the day.
// It is derived, never stored.
func (e *Entry) TotalWorkedHours() decimal.Decimal {
	total := decimal.Zero
	for _, w := range e.MilestoneWork {
		total = total.Add(w.Hours)
	}
	return total
}

// MonthIndex returns the entry's position on the linear month axis.
func (e *Entry) MonthIndex() int {
	return MonthIndex(e.Year, e.Month)
}

// MonthIndex maps (year, month) to a single comparable integer so that an
// inclusive [from, to] window spanning a year boundary is one inequality.
func MonthIndex(year, month int) int {
	return year*12 + month
}

// MonthRef names one end of a reporting window. Month is 1-based.
type MonthRef struct {
	Year  int
	Month int
}

// Index returns the reference's position on the linear month axis.
func (m MonthRef) Index() int {
	return MonthIndex(m.Year, m.Month)
}

// =============================================================================
// FALLBACK LABELS - Substituted when a reference no longer resolves
// =============================================================================

const (
	UnknownMilestone  = "Unknown Milestone"
	UnknownLeave      = "Unknown Leave"
	UnknownConsultant = "Unknown Consultant"

	// DefaultRole is used in period reports when a consultant has no role.
	DefaultRole = "Consultant"
)

// HoursPerDay converts worked hours to worked days in summaries.
var HoursPerDay = decimal.NewFromInt(8)
