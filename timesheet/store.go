/*
store.go - Persistence interface for timesheet entries

PURPOSE:
  Defines the EntryStore interface the mutator, transition engine, and
  HTTP layer depend on. Implementations:
  - store/sqlite: production SQLite store
  - timesheet/store: in-memory store for tests and dev

OWNERSHIP:
  The store is the sole writer of entry records. Aggregation treats
  fetched entries as immutable snapshots.

NAME RESOLUTION:
  All fetch operations resolve milestone, leave-type, and consultant
  display names at read time (LEFT JOIN in SQLite). A reference that no
  longer resolves yields an empty name, never an error; the aggregation
  layer substitutes the Unknown* fallback labels.
*/
package timesheet

import "context"

// EntryStore is the persistence abstraction for timesheet entries.
type EntryStore interface {
	// GetEntry returns the entry with the given id, or nil if absent.
	GetEntry(ctx context.Context, id string) (*Entry, error)

	// FindDayEntries returns all entries for one consultant-day. The
	// uniqueness index makes more than one a legacy artifact, but callers
	// must tolerate duplicates.
	FindDayEntries(ctx context.Context, consultantID string, year, month, day int) ([]Entry, error)

	// FindConsultantMonth returns one consultant's entries for a month.
	FindConsultantMonth(ctx context.Context, consultantID string, year, month int) ([]Entry, error)

	// FindMonth returns all consultants' entries for a month, optionally
	// filtered to the given statuses (nil = all).
	FindMonth(ctx context.Context, year, month int, statuses []Status) ([]Entry, error)

	// FindPeriod returns entries whose linear month index falls inside the
	// inclusive [fromIndex, toIndex] window, optionally status-filtered.
	FindPeriod(ctx context.Context, fromIndex, toIndex int, statuses []Status) ([]Entry, error)

	// InsertEntry creates a new entry. Returns ErrDuplicateEntry when an
	// entry already exists for the same (consultant, year, month, day).
	InsertEntry(ctx context.Context, e Entry) error

	// SaveEntry rewrites an existing entry and its sub-records atomically.
	SaveEntry(ctx context.Context, e Entry) error

	// BulkSetStatus moves every entry matching (consultantID, year, month,
	// status == from) to `to` in a single conditional update, and returns
	// the number of entries changed. Entries not in `from` are untouched,
	// which makes retried transitions idempotent.
	BulkSetStatus(ctx context.Context, consultantID string, year, month int, from, to Status) (int64, error)

	// BackfillStatus normalizes legacy entries that predate the status
	// field: anything without a status becomes Draft (or Processed when
	// the old processed flag is set). Returns the number updated.
	BackfillStatus(ctx context.Context) (int64, error)
}
