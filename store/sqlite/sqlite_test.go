package sqlite_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedDirectories registers the ids entry fixtures reference.
func seedDirectories(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveConsultant(ctx, sqlite.Consultant{ID: "c1", Name: "Ada", Role: "Senior Consultant"}))
	require.NoError(t, store.SaveConsultant(ctx, sqlite.Consultant{ID: "c2", Name: "Ben", Role: "Consultant"}))
	require.NoError(t, store.SaveMilestone(ctx, sqlite.Milestone{ID: "m1", Name: "Design", Status: "Active"}))
	require.NoError(t, store.SaveMilestone(ctx, sqlite.Milestone{ID: "m2", Name: "Build", Status: "Active"}))
	require.NoError(t, store.SaveLeaveType(ctx, sqlite.LeaveType{ID: "lt1", Type: "Vacation", HalfdayEligible: true}))
}

func fixtureEntry(id, consultantID string, year, month, day int, status timesheet.Status) timesheet.Entry {
	return timesheet.Entry{
		ID:           id,
		ConsultantID: consultantID,
		Year:         year,
		Month:        month,
		Day:          day,
		Status:       status,
		MilestoneWork: []timesheet.MilestoneWork{
			{ID: id + "-w1", MilestoneID: "m1", Hours: decimal.NewFromInt(4), Status: timesheet.WorkStatusWorked},
		},
	}
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestInsertAndGetEntry_ResolvesDisplayNames(t *testing.T) {
	// GIVEN: Directory rows and an entry referencing them
	// WHEN: Reading the entry back
	// THEN: Consultant and milestone names are resolved via joins

	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	e := fixtureEntry("e1", "c1", 2024, 3, 4, timesheet.StatusDraft)
	e.Leaves = []timesheet.Leave{{ID: "e1-l1", LeaveTypeID: "lt1", Period: timesheet.HalfDay}}
	require.NoError(t, store.InsertEntry(ctx, e))

	got, err := store.GetEntry(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.ConsultantName)
	assert.Equal(t, "Senior Consultant", got.ConsultantRole)
	require.Len(t, got.MilestoneWork, 1)
	assert.Equal(t, "Design", got.MilestoneWork[0].MilestoneName)
	assert.True(t, decimal.NewFromInt(4).Equal(got.MilestoneWork[0].Hours))
	require.Len(t, got.Leaves, 1)
	assert.Equal(t, "Vacation", got.Leaves[0].TypeName)
	assert.Equal(t, timesheet.HalfDay, got.Leaves[0].Period)
}

func TestGetEntry_AbsentIDReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetEntry(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertEntry_DanglingReferencesScanAsEmptyNames(t *testing.T) {
	// No directory rows at all; fetch must still succeed
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e1", "ghost", 2024, 3, 4, timesheet.StatusDraft)))

	got, err := store.GetEntry(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.ConsultantName)
	assert.Empty(t, got.MilestoneWork[0].MilestoneName)
}

func TestInsertEntry_DuplicateConsultantDayRejected(t *testing.T) {
	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e1", "c1", 2024, 3, 4, timesheet.StatusDraft)))

	err := store.InsertEntry(ctx, fixtureEntry("e2", "c1", 2024, 3, 4, timesheet.StatusDraft))
	assert.ErrorIs(t, err, timesheet.ErrDuplicateEntry)

	// Same day for a different consultant is fine
	assert.NoError(t, store.InsertEntry(ctx, fixtureEntry("e3", "c2", 2024, 3, 4, timesheet.StatusDraft)))
}

func TestSaveEntry_RewritesSubRecords(t *testing.T) {
	// GIVEN: A stored entry with one work line
	// WHEN: Saving it back with different sub-records
	// THEN: The old sub-records are gone, the new ones ordered as given

	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	e := fixtureEntry("e1", "c1", 2024, 3, 4, timesheet.StatusDraft)
	require.NoError(t, store.InsertEntry(ctx, e))

	e.MilestoneWork = []timesheet.MilestoneWork{
		{ID: "e1-w2", MilestoneID: "m2", Hours: decimal.NewFromInt(2), Status: timesheet.WorkStatusWorked},
		{ID: "e1-w3", MilestoneID: "m1", Hours: decimal.NewFromFloat(1.5), Status: timesheet.WorkStatusWorked},
	}
	require.NoError(t, store.SaveEntry(ctx, e))

	got, err := store.GetEntry(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, got.MilestoneWork, 2)
	assert.Equal(t, "e1-w2", got.MilestoneWork[0].ID, "sub-record order preserved")
	assert.Equal(t, "e1-w3", got.MilestoneWork[1].ID)
	assert.Equal(t, "1.5", got.MilestoneWork[1].Hours.String())
}

func TestSaveEntry_UnknownIDRejected(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveEntry(context.Background(), fixtureEntry("nope", "c1", 2024, 3, 4, timesheet.StatusDraft))
	assert.ErrorIs(t, err, timesheet.ErrEntryNotFound)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestFindMonth_StatusFilter(t *testing.T) {
	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e1", "c1", 2024, 3, 4, timesheet.StatusDraft)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e2", "c1", 2024, 3, 5, timesheet.StatusApproved)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e3", "c2", 2024, 3, 4, timesheet.StatusProcessed)))

	all, err := store.FindMonth(ctx, 2024, 3, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	signedOff, err := store.FindMonth(ctx, 2024, 3,
		[]timesheet.Status{timesheet.StatusApproved, timesheet.StatusProcessed})
	require.NoError(t, err)
	require.Len(t, signedOff, 2)
	assert.Equal(t, "e2", signedOff[0].ID)
	assert.Equal(t, "e3", signedOff[1].ID)
}

func TestFindPeriod_InclusiveWindowAcrossYearBoundary(t *testing.T) {
	// GIVEN: Entries in 2024-06, 2024-12, 2025-01, 2025-02
	// WHEN: Querying the window 2024-06 .. 2025-01
	// THEN: Both boundary months and 2024-12 match; 2025-02 does not

	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("jun", "c1", 2024, 6, 1, timesheet.StatusProcessed)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("dec", "c1", 2024, 12, 1, timesheet.StatusProcessed)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("jan", "c1", 2025, 1, 1, timesheet.StatusProcessed)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("feb", "c1", 2025, 2, 1, timesheet.StatusProcessed)))

	got, err := store.FindPeriod(ctx,
		timesheet.MonthIndex(2024, 6), timesheet.MonthIndex(2025, 1),
		[]timesheet.Status{timesheet.StatusProcessed})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "jun", got[0].ID)
	assert.Equal(t, "dec", got[1].ID)
	assert.Equal(t, "jan", got[2].ID)
}

func TestFindConsultantMonth_OrderedByDay(t *testing.T) {
	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e5", "c1", 2024, 3, 5, timesheet.StatusDraft)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e2", "c1", 2024, 3, 2, timesheet.StatusDraft)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("x1", "c2", 2024, 3, 1, timesheet.StatusDraft)))

	got, err := store.FindConsultantMonth(ctx, "c1", 2024, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Day)
	assert.Equal(t, 5, got[1].Day)
}

// =============================================================================
// BULK STATUS
// =============================================================================

func TestBulkSetStatus_ConditionalAndIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e1", "c1", 2024, 3, 4, timesheet.StatusDraft)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e2", "c1", 2024, 3, 5, timesheet.StatusDraft)))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e3", "c1", 2024, 3, 6, timesheet.StatusApproved)))

	count, err := store.BulkSetStatus(ctx, "c1", 2024, 3, timesheet.StatusDraft, timesheet.StatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "only Draft rows move")

	count, err = store.BulkSetStatus(ctx, "c1", 2024, 3, timesheet.StatusDraft, timesheet.StatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "retry matches nothing")
}

func TestBulkSetStatus_MirrorsProcessedFlag(t *testing.T) {
	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("e1", "c1", 2024, 3, 4, timesheet.StatusApproved)))

	_, err := store.BulkSetStatus(ctx, "c1", 2024, 3, timesheet.StatusApproved, timesheet.StatusProcessed)
	require.NoError(t, err)

	got, err := store.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, got.Processed)

	_, err = store.BulkSetStatus(ctx, "c1", 2024, 3, timesheet.StatusProcessed, timesheet.StatusApproved)
	require.NoError(t, err)

	got, err = store.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, got.Processed)
}

func TestBackfillStatus_NormalizesLegacyRows(t *testing.T) {
	store := newTestStore(t)
	seedDirectories(t, store)
	ctx := context.Background()

	legacy := fixtureEntry("old-1", "c1", 2023, 11, 2, "")
	require.NoError(t, store.InsertEntry(ctx, legacy))
	legacyProcessed := fixtureEntry("old-2", "c1", 2023, 11, 3, "")
	legacyProcessed.Processed = true
	require.NoError(t, store.InsertEntry(ctx, legacyProcessed))
	require.NoError(t, store.InsertEntry(ctx, fixtureEntry("new-1", "c1", 2023, 11, 4, timesheet.StatusApproved)))

	count, err := store.BackfillStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	draft, err := store.GetEntry(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusDraft, draft.Status)

	processed, err := store.GetEntry(ctx, "old-2")
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusProcessed, processed.Status)

	untouched, err := store.GetEntry(ctx, "new-1")
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusApproved, untouched.Status)
}

// =============================================================================
// DIRECTORIES
// =============================================================================

func TestDirectories_UpsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConsultant(ctx, sqlite.Consultant{ID: "c1", Name: "Ada", Role: "Consultant"}))
	require.NoError(t, store.SaveConsultant(ctx, sqlite.Consultant{ID: "c1", Name: "Ada", Role: "Senior Consultant"}))

	consultants, err := store.ListConsultants(ctx)
	require.NoError(t, err)
	require.Len(t, consultants, 1, "same id upserts")
	assert.Equal(t, "Senior Consultant", consultants[0].Role)

	require.NoError(t, store.SaveMilestone(ctx, sqlite.Milestone{ID: "m1", Name: "Design", Status: "Active"}))
	require.NoError(t, store.SaveMilestone(ctx, sqlite.Milestone{ID: "m2", Name: "Archive", Status: "Inactive"}))

	active, err := store.ListMilestones(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "m1", active[0].ID)

	all, err := store.ListMilestones(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.SaveLeaveType(ctx, sqlite.LeaveType{ID: "lt1", Type: "Vacation", HalfdayEligible: true}))
	types, err := store.ListLeaveTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.True(t, types[0].HalfdayEligible)
}

// =============================================================================
// MIGRATIONS
// =============================================================================

func TestMigrationVersion_CleanAfterNew(t *testing.T) {
	store := newTestStore(t)

	version, dirty, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}
