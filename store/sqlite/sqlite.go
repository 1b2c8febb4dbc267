/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements timesheet.EntryStore plus the directory tables (consultants,
  milestones, leave types) the engine resolves display names from. The
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  entries:          One row per (consultant, calendar day)
  entry_milestones: Ordered milestone-work sub-records
  entry_leaves:     Ordered leave sub-records
  consultants, milestones, leave_types: referenced directories

INVARIANTS ENFORCED HERE:
  - idx_entries_consultant_day: at most one entry per consultant-day.
    A create race between two concurrent submissions surfaces as
    timesheet.ErrDuplicateEntry instead of a silent duplicate.
  - BulkSetStatus is a single conditional UPDATE, so the retried
    transition matches zero rows and reports a zero count.

NAME RESOLUTION:
  Every fetch LEFT JOINs the directory tables. A dangling reference scans
  as an empty name; the aggregation layer substitutes its fallback
  labels. Fetches never fail on dangling references.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

MIGRATION:
  Schema is versioned with golang-migrate; migrations are embedded and
  applied on New().

SEE ALSO:
  - timesheet/store.go: Interface definition
  - timesheet/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/timesheet-engine/timesheet"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements timesheet.EntryStore and the directory stores.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// MigrationVersion returns the current schema version and dirty flag.
func (s *Store) MigrationVersion() (uint, bool, error) {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return 0, false, err
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, false, err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}
	return version, dirty, err
}

// =============================================================================
// ENTRY STORE (timesheet.EntryStore interface)
// =============================================================================

const entrySelect = `
	SELECT e.id, e.consultant_id, COALESCE(c.name, ''), COALESCE(c.role, ''),
	       COALESCE(e.user_id, ''), e.year, e.month, e.day, e.weekend,
	       COALESCE(e.status, ''), e.processed
	FROM entries e
	LEFT JOIN consultants c ON c.id = e.consultant_id
`

// GetEntry returns the entry with the given id, or nil if absent.
func (s *Store) GetEntry(ctx context.Context, id string) (*timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.queryEntries(ctx, entrySelect+" WHERE e.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// FindDayEntries returns all entries for one consultant-day; the unique
// index makes more than one a legacy artifact.
func (s *Store) FindDayEntries(ctx context.Context, consultantID string, year, month, day int) ([]timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEntries(ctx,
		entrySelect+` WHERE e.consultant_id = ? AND e.year = ? AND e.month = ? AND e.day = ?
		ORDER BY e.created_at ASC, e.id ASC`,
		consultantID, year, month, day)
}

// FindConsultantMonth returns one consultant's entries for a month.
func (s *Store) FindConsultantMonth(ctx context.Context, consultantID string, year, month int) ([]timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEntries(ctx,
		entrySelect+` WHERE e.consultant_id = ? AND e.year = ? AND e.month = ?
		ORDER BY e.day ASC, e.id ASC`,
		consultantID, year, month)
}

// FindMonth returns all consultants' entries for a month, optionally
// filtered to the given statuses.
func (s *Store) FindMonth(ctx context.Context, year, month int, statuses []timesheet.Status) ([]timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := entrySelect + " WHERE e.year = ? AND e.month = ?"
	args := []any{year, month}
	query, args = appendStatusFilter(query, args, statuses)
	query += " ORDER BY e.consultant_id ASC, e.day ASC, e.id ASC"

	return s.queryEntries(ctx, query, args...)
}

// FindPeriod returns entries inside the inclusive [fromIndex, toIndex]
// linear month-index window.
func (s *Store) FindPeriod(ctx context.Context, fromIndex, toIndex int, statuses []timesheet.Status) ([]timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := entrySelect + " WHERE (e.year * 12 + e.month) BETWEEN ? AND ?"
	args := []any{fromIndex, toIndex}
	query, args = appendStatusFilter(query, args, statuses)
	query += " ORDER BY e.year ASC, e.month ASC, e.day ASC, e.id ASC"

	return s.queryEntries(ctx, query, args...)
}

// InsertEntry creates a new entry with its sub-records in one transaction.
func (s *Store) InsertEntry(ctx context.Context, e timesheet.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (id, consultant_id, user_id, year, month, day, weekend, status, processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ConsultantID, nullString(e.UserID), e.Year, e.Month, e.Day,
		boolInt(e.Weekend), string(e.Status), boolInt(e.Processed),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return timesheet.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	if err := insertSubRecords(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveEntry rewrites an existing entry and its sub-records atomically.
func (s *Store) SaveEntry(ctx context.Context, e timesheet.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE entries SET user_id = ?, weekend = ?, status = ?, processed = ?
		WHERE id = ?`,
		nullString(e.UserID), boolInt(e.Weekend), string(e.Status), boolInt(e.Processed), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return timesheet.ErrEntryNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entry_milestones WHERE entry_id = ?", e.ID); err != nil {
		return fmt.Errorf("failed to clear milestone sub-records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entry_leaves WHERE entry_id = ?", e.ID); err != nil {
		return fmt.Errorf("failed to clear leave sub-records: %w", err)
	}
	if err := insertSubRecords(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// BulkSetStatus conditionally moves a consultant-month between statuses.
// The processed flag is kept mirrored for records consumed by older
// clients that predate the status field.
func (s *Store) BulkSetStatus(ctx context.Context, consultantID string, year, month int, from, to timesheet.Status) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE entries SET status = ?, processed = ?
		WHERE consultant_id = ? AND year = ? AND month = ? AND status = ?`,
		string(to), boolInt(to == timesheet.StatusProcessed),
		consultantID, year, month, string(from),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update statuses: %w", err)
	}
	return res.RowsAffected()
}

// BackfillStatus normalizes legacy entries missing a status: processed
// rows become Processed, the rest Draft.
func (s *Store) BackfillStatus(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET status = CASE WHEN processed = 1 THEN 'Processed' ELSE 'Draft' END
		WHERE status IS NULL OR status = ''`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill statuses: %w", err)
	}
	return res.RowsAffected()
}

// =============================================================================
// ENTRY QUERY HELPERS
// =============================================================================

func appendStatusFilter(query string, args []any, statuses []timesheet.Status) (string, []any) {
	if len(statuses) == 0 {
		return query, args
	}
	placeholders := make([]string, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	return query + " AND e.status IN (" + strings.Join(placeholders, ", ") + ")", args
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]timesheet.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []timesheet.Entry
	var ids []string
	for rows.Next() {
		var (
			e                  timesheet.Entry
			weekend, processed int
			status             string
		)
		if err := rows.Scan(
			&e.ID, &e.ConsultantID, &e.ConsultantName, &e.ConsultantRole,
			&e.UserID, &e.Year, &e.Month, &e.Day, &weekend, &status, &processed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Weekend = weekend != 0
		e.Processed = processed != 0
		e.Status = timesheet.Status(status)
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if err := s.loadSubRecords(ctx, entries, ids); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) loadSubRecords(ctx context.Context, entries []timesheet.Entry, ids []string) error {
	byID := make(map[string]*timesheet.Entry, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &entries[i]
	}
	placeholders := "?" + strings.Repeat(", ?", len(ids)-1)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	workRows, err := s.db.QueryContext(ctx, `
		SELECT em.id, em.entry_id, em.milestone_id, COALESCE(m.name, ''), em.hours, em.work_status
		FROM entry_milestones em
		LEFT JOIN milestones m ON m.id = em.milestone_id
		WHERE em.entry_id IN (`+placeholders+`)
		ORDER BY em.entry_id, em.seq`, args...)
	if err != nil {
		return fmt.Errorf("failed to query milestone sub-records: %w", err)
	}
	defer workRows.Close()
	for workRows.Next() {
		var (
			w       timesheet.MilestoneWork
			entryID string
			hours   string
		)
		if err := workRows.Scan(&w.ID, &entryID, &w.MilestoneID, &w.MilestoneName, &hours, &w.Status); err != nil {
			return fmt.Errorf("failed to scan milestone sub-record: %w", err)
		}
		w.Hours = mustDecimal(hours)
		if e := byID[entryID]; e != nil {
			e.MilestoneWork = append(e.MilestoneWork, w)
		}
	}
	if err := workRows.Err(); err != nil {
		return err
	}

	leaveRows, err := s.db.QueryContext(ctx, `
		SELECT el.id, el.entry_id, el.leave_type_id, COALESCE(lt.type, ''), el.period
		FROM entry_leaves el
		LEFT JOIN leave_types lt ON lt.id = el.leave_type_id
		WHERE el.entry_id IN (`+placeholders+`)
		ORDER BY el.entry_id, el.seq`, args...)
	if err != nil {
		return fmt.Errorf("failed to query leave sub-records: %w", err)
	}
	defer leaveRows.Close()
	for leaveRows.Next() {
		var (
			l       timesheet.Leave
			entryID string
			period  string
		)
		if err := leaveRows.Scan(&l.ID, &entryID, &l.LeaveTypeID, &l.TypeName, &period); err != nil {
			return fmt.Errorf("failed to scan leave sub-record: %w", err)
		}
		l.Period = timesheet.LeavePeriod(period)
		if e := byID[entryID]; e != nil {
			e.Leaves = append(e.Leaves, l)
		}
	}
	return leaveRows.Err()
}

func insertSubRecords(ctx context.Context, tx *sql.Tx, e timesheet.Entry) error {
	for i, w := range e.MilestoneWork {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entry_milestones (id, entry_id, milestone_id, hours, work_status, seq)
			VALUES (?, ?, ?, ?, ?, ?)`,
			w.ID, e.ID, w.MilestoneID, w.Hours.String(), w.Status, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert milestone sub-record: %w", err)
		}
	}
	for i, l := range e.Leaves {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entry_leaves (id, entry_id, leave_type_id, period, seq)
			VALUES (?, ?, ?, ?, ?)`,
			l.ID, e.ID, l.LeaveTypeID, string(l.Period), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert leave sub-record: %w", err)
		}
	}
	return nil
}

// =============================================================================
// DIRECTORY STORES - consultants, milestones, leave types
// =============================================================================

// Consultant is a directory record; the engine reads name/role only.
type Consultant struct {
	ID        string
	Name      string
	Role      string
	CreatedAt time.Time
}

// Milestone is a directory record for a project deliverable.
type Milestone struct {
	ID        string
	Name      string
	Status    string // Active / Inactive
	ProjectID string
	CreatedAt time.Time
}

// LeaveType is a directory record for an absence category.
type LeaveType struct {
	ID              string
	Type            string
	HalfdayEligible bool
	CreatedAt       time.Time
}

// SaveConsultant inserts or updates a consultant.
func (s *Store) SaveConsultant(ctx context.Context, c Consultant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consultants (id, name, role, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role`,
		c.ID, c.Name, c.Role, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListConsultants returns all consultants ordered by name.
func (s *Store) ListConsultants(ctx context.Context) ([]Consultant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, role, created_at FROM consultants ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consultant
	for rows.Next() {
		var c Consultant
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Role, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveMilestone inserts or updates a milestone.
func (s *Store) SaveMilestone(ctx context.Context, m Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Status == "" {
		m.Status = "Active"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO milestones (id, name, milestone_status, project_id, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			milestone_status = excluded.milestone_status,
			project_id = excluded.project_id`,
		m.ID, m.Name, m.Status, nullString(m.ProjectID), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListMilestones returns milestones, optionally only active ones.
func (s *Store) ListMilestones(ctx context.Context, activeOnly bool) ([]Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, name, milestone_status, COALESCE(project_id, ''), created_at FROM milestones"
	if activeOnly {
		query += " WHERE milestone_status = 'Active'"
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Milestone
	for rows.Next() {
		var m Milestone
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Name, &m.Status, &m.ProjectID, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveLeaveType inserts or updates a leave type.
func (s *Store) SaveLeaveType(ctx context.Context, lt LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_types (id, type, halfday_eligible, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			halfday_eligible = excluded.halfday_eligible`,
		lt.ID, lt.Type, boolInt(lt.HalfdayEligible), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListLeaveTypes returns all leave types ordered by display type.
func (s *Store) ListLeaveTypes(ctx context.Context) ([]LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, halfday_eligible, created_at FROM leave_types ORDER BY type ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveType
	for rows.Next() {
		var lt LeaveType
		var halfday int
		var createdAt string
		if err := rows.Scan(&lt.ID, &lt.Type, &halfday, &createdAt); err != nil {
			return nil, err
		}
		lt.HalfdayEligible = halfday != 0
		lt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, lt)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
