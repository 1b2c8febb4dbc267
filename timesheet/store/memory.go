// Package store provides an in-memory EntryStore for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[string]timesheet.Entry // by entry id

	// Directories emulate the SQL LEFT JOINs that resolve display names.
	milestones  map[string]string    // milestone id -> name
	leaveTypes  map[string]string    // leave type id -> display type
	consultants map[string][2]string // consultant id -> {name, role}
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[string]timesheet.Entry),
		milestones:  make(map[string]string),
		leaveTypes:  make(map[string]string),
		consultants: make(map[string][2]string),
	}
}

// RegisterMilestone makes a milestone id resolvable to a display name.
func (m *Memory) RegisterMilestone(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.milestones[id] = name
}

// RegisterLeaveType makes a leave type id resolvable to a display type.
func (m *Memory) RegisterLeaveType(id, displayType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveTypes[id] = displayType
}

// RegisterConsultant makes a consultant id resolvable to name + role.
func (m *Memory) RegisterConsultant(id, name, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consultants[id] = [2]string{name, role}
}

// =============================================================================
// ENTRY STORE (timesheet.EntryStore interface)
// =============================================================================

func (m *Memory) GetEntry(_ context.Context, id string) (*timesheet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	resolved := m.resolveLocked(e)
	return &resolved, nil
}

func (m *Memory) FindDayEntries(_ context.Context, consultantID string, year, month, day int) ([]timesheet.Entry, error) {
	return m.find(func(e *timesheet.Entry) bool {
		return e.ConsultantID == consultantID && e.Year == year && e.Month == month && e.Day == day
	}, nil)
}

func (m *Memory) FindConsultantMonth(_ context.Context, consultantID string, year, month int) ([]timesheet.Entry, error) {
	return m.find(func(e *timesheet.Entry) bool {
		return e.ConsultantID == consultantID && e.Year == year && e.Month == month
	}, nil)
}

func (m *Memory) FindMonth(_ context.Context, year, month int, statuses []timesheet.Status) ([]timesheet.Entry, error) {
	return m.find(func(e *timesheet.Entry) bool {
		return e.Year == year && e.Month == month
	}, statuses)
}

func (m *Memory) FindPeriod(_ context.Context, fromIndex, toIndex int, statuses []timesheet.Status) ([]timesheet.Entry, error) {
	return m.find(func(e *timesheet.Entry) bool {
		idx := e.MonthIndex()
		return idx >= fromIndex && idx <= toIndex
	}, statuses)
}

func (m *Memory) InsertEntry(_ context.Context, e timesheet.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.entries {
		if existing.ConsultantID == e.ConsultantID &&
			existing.Year == e.Year && existing.Month == e.Month && existing.Day == e.Day {
			return timesheet.ErrDuplicateEntry
		}
	}
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) SaveEntry(_ context.Context, e timesheet.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[e.ID]; !ok {
		return timesheet.ErrEntryNotFound
	}
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) BulkSetStatus(_ context.Context, consultantID string, year, month int, from, to timesheet.Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, e := range m.entries {
		if e.ConsultantID == consultantID && e.Year == year && e.Month == month && e.Status == from {
			e.Status = to
			e.Processed = to == timesheet.StatusProcessed
			m.entries[id] = e
			count++
		}
	}
	return count, nil
}

func (m *Memory) BackfillStatus(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, e := range m.entries {
		if e.Status != "" {
			continue
		}
		if e.Processed {
			e.Status = timesheet.StatusProcessed
		} else {
			e.Status = timesheet.StatusDraft
		}
		m.entries[id] = e
		count++
	}
	return count, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Memory) find(match func(*timesheet.Entry) bool, statuses []timesheet.Status) ([]timesheet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []timesheet.Entry
	for _, e := range m.entries {
		if !match(&e) {
			continue
		}
		if len(statuses) > 0 && !statusIn(e.Status, statuses) {
			continue
		}
		result = append(result, m.resolveLocked(e))
	}

	// Stable order: by year, month, day, then id.
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.MonthIndex() != b.MonthIndex() {
			return a.MonthIndex() < b.MonthIndex()
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.ID < b.ID
	})
	return result, nil
}

// resolveLocked fills in display names and returns a deep copy so callers
// cannot mutate stored state through the returned slices.
func (m *Memory) resolveLocked(e timesheet.Entry) timesheet.Entry {
	if c, ok := m.consultants[e.ConsultantID]; ok {
		e.ConsultantName, e.ConsultantRole = c[0], c[1]
	}

	work := make([]timesheet.MilestoneWork, len(e.MilestoneWork))
	copy(work, e.MilestoneWork)
	for i := range work {
		work[i].MilestoneName = m.milestones[work[i].MilestoneID]
	}
	e.MilestoneWork = work

	leaves := make([]timesheet.Leave, len(e.Leaves))
	copy(leaves, e.Leaves)
	for i := range leaves {
		leaves[i].TypeName = m.leaveTypes[leaves[i].LeaveTypeID]
	}
	e.Leaves = leaves
	return e
}

func statusIn(s timesheet.Status, statuses []timesheet.Status) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}
