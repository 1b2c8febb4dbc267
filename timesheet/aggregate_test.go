package timesheet_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func hours(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func work(id, milestoneID, name string, h float64) timesheet.MilestoneWork {
	return timesheet.MilestoneWork{
		ID:            id,
		MilestoneID:   milestoneID,
		MilestoneName: name,
		Hours:         hours(h),
		Status:        timesheet.WorkStatusWorked,
	}
}

func leave(id, typeID, typeName string, period timesheet.LeavePeriod) timesheet.Leave {
	return timesheet.Leave{ID: id, LeaveTypeID: typeID, TypeName: typeName, Period: period}
}

// marchEntry is an Approved March 2024 entry for one consultant-day.
func marchEntry(id, consultantID, consultantName string, day int, works ...timesheet.MilestoneWork) timesheet.Entry {
	return timesheet.Entry{
		ID:             id,
		ConsultantID:   consultantID,
		ConsultantName: consultantName,
		Year:           2024,
		Month:          3,
		Day:            day,
		MilestoneWork:  works,
		Status:         timesheet.StatusApproved,
	}
}

func decEqual(t *testing.T, expected float64, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, hours(expected).String(), actual.String(), msgAndArgs...)
}

// =============================================================================
// DAY AGGREGATION
// =============================================================================

func TestAggregateDays_MergesDuplicateSameDayEntries(t *testing.T) {
	// GIVEN: Two legacy entries for the same consultant-day, both touching M1
	// WHEN: Aggregating by day
	// THEN: One day comes back with M1 hours summed and leaves concatenated

	e1 := marchEntry("e1", "c1", "Ada", 4, work("w1", "m1", "Design", 3))
	e1.Leaves = []timesheet.Leave{leave("l1", "lt1", "Vacation", timesheet.FullDay)}
	e2 := marchEntry("e2", "c1", "Ada", 4, work("w2", "m1", "Design", 2), work("w3", "m2", "Build", 4))
	e2.Leaves = []timesheet.Leave{leave("l2", "lt2", "Sick", timesheet.HalfDay)}

	days := timesheet.AggregateDays([]timesheet.Entry{e1, e2})

	require.Len(t, days, 1)
	day := days[0]
	assert.Equal(t, "e1", day.EntryID, "keeps the first entry's id")
	assert.Equal(t, 4, day.Day)

	require.Len(t, day.Milestones, 2)
	decEqual(t, 5, day.Milestones[0].Hours, "m1 hours summed across entries")
	decEqual(t, 4, day.Milestones[1].Hours)
	decEqual(t, 9, day.TotalWorkedHours)

	assert.Len(t, day.Leaves, 2, "leaves concatenated, not replaced")
	decEqual(t, 1, day.LeaveSummary["Vacation"])
	decEqual(t, 0.5, day.LeaveSummary["Sick"])
}

func TestAggregateDays_DistinctDaysStaySeparate(t *testing.T) {
	days := timesheet.AggregateDays([]timesheet.Entry{
		marchEntry("e1", "c1", "Ada", 4, work("w1", "m1", "Design", 8)),
		marchEntry("e2", "c1", "Ada", 5, work("w2", "m1", "Design", 6)),
	})

	require.Len(t, days, 2)
	assert.Equal(t, 4, days[0].Day)
	assert.Equal(t, 5, days[1].Day)
	decEqual(t, 8, days[0].TotalWorkedHours)
	decEqual(t, 6, days[1].TotalWorkedHours)
}

func TestAggregateDays_DanglingReferencesGetFallbackLabels(t *testing.T) {
	// GIVEN: A milestone and a leave type whose directory rows are gone
	e := marchEntry("e1", "c1", "Ada", 4, work("w1", "m-gone", "", 2))
	e.Leaves = []timesheet.Leave{leave("l1", "lt-gone", "", timesheet.FullDay)}

	days := timesheet.AggregateDays([]timesheet.Entry{e})

	require.Len(t, days, 1)
	assert.Equal(t, timesheet.UnknownMilestone, days[0].Milestones[0].Name)
	assert.Equal(t, timesheet.UnknownLeave, days[0].Leaves[0].Type)
	decEqual(t, 1, days[0].LeaveSummary[timesheet.UnknownLeave])
}

func TestAggregateDays_LeaveOnlyDayHasZeroWorkedHours(t *testing.T) {
	e := marchEntry("e1", "c1", "Ada", 4)
	e.Leaves = []timesheet.Leave{leave("l1", "lt1", "Vacation", timesheet.HalfDay)}

	days := timesheet.AggregateDays([]timesheet.Entry{e})

	require.Len(t, days, 1)
	assert.True(t, days[0].TotalWorkedHours.IsZero())
	decEqual(t, 0.5, days[0].LeaveSummary["Vacation"])
}

// =============================================================================
// MONTH SUMMARY PER CONSULTANT
// =============================================================================

func TestGroupByConsultant_SummarizesMarchScenario(t *testing.T) {
	// GIVEN: March 2024 - Ada logs 4h on Design + 4h on Build (day 4) and
	//        8h on Design (day 5, with a half-day leave); Ben logs 6h on
	//        Build (day 4)
	ada4 := marchEntry("e1", "c1", "Ada", 4, work("w1", "m1", "Design", 4), work("w2", "m2", "Build", 4))
	ada5 := marchEntry("e2", "c1", "Ada", 5, work("w3", "m1", "Design", 8))
	ada5.Leaves = []timesheet.Leave{leave("l1", "lt1", "Vacation", timesheet.HalfDay)}
	ben4 := marchEntry("e3", "c2", "Ben", 4, work("w4", "m2", "Build", 6))

	groups := timesheet.GroupByConsultant([]timesheet.Entry{ada4, ada5, ben4})

	require.Len(t, groups, 2)
	assert.Equal(t, "Ada", groups[0].ConsultantName)
	assert.Equal(t, "Ben", groups[1].ConsultantName)
	assert.Len(t, groups[0].Days, 2)

	ada := groups[0].Summarize()
	decEqual(t, 16, ada.WorkedHours)
	decEqual(t, 2, ada.WorkedDays, "16h / 8h per day")
	decEqual(t, 12, ada.MilestoneSummary["Design"])
	decEqual(t, 4, ada.MilestoneSummary["Build"])
	decEqual(t, 0.5, ada.LeaveSummary["Vacation"])

	ben := groups[1].Summarize()
	decEqual(t, 6, ben.WorkedHours)
	decEqual(t, 0.75, ben.WorkedDays, "6h / 8h per day")
}

func TestSummarize_WorkedDaysRoundedToTwoDecimals(t *testing.T) {
	// 5h / 8h = 0.625 -> 0.63 at display
	g := timesheet.ConsultantMonth{
		ConsultantID:   "c1",
		ConsultantName: "Ada",
		Days: timesheet.AggregateDays([]timesheet.Entry{
			marchEntry("e1", "c1", "Ada", 4, work("w1", "m1", "Design", 5)),
		}),
	}

	s := g.Summarize()
	decEqual(t, 0.63, s.WorkedDays)
}

func TestGroupByConsultant_UnknownConsultantFallback(t *testing.T) {
	groups := timesheet.GroupByConsultant([]timesheet.Entry{
		marchEntry("e1", "c-gone", "", 4, work("w1", "m1", "Design", 8)),
	})

	require.Len(t, groups, 1)
	assert.Equal(t, timesheet.UnknownConsultant, groups[0].ConsultantName)
}

// =============================================================================
// PERIOD AGGREGATION
// =============================================================================

func TestMilestoneGroups_GroupsByMilestoneThenConsultant(t *testing.T) {
	// GIVEN: Two consultants across two milestones, one consultant twice
	// on the same milestone
	ada := marchEntry("e1", "c1", "Ada", 4, work("w1", "m1", "Design", 4), work("w2", "m2", "Build", 2))
	ada.ConsultantRole = "Senior Consultant"
	ada2 := marchEntry("e2", "c1", "Ada", 5, work("w3", "m1", "Design", 3))
	ada2.ConsultantRole = "Senior Consultant"
	ben := marchEntry("e3", "c2", "Ben", 4, work("w4", "m1", "Design", 6))

	groups := timesheet.MilestoneGroups([]timesheet.Entry{ada, ada2, ben})

	require.Len(t, groups, 2)
	design := groups[0]
	assert.Equal(t, "Design", design.Name)
	decEqual(t, 13, design.TotalHours)
	require.Len(t, design.Consultants, 2)
	assert.Equal(t, "Ada", design.Consultants[0].Name)
	assert.Equal(t, "Senior Consultant", design.Consultants[0].Role)
	decEqual(t, 7, design.Consultants[0].Hours, "Ada's two days merged")
	assert.Equal(t, timesheet.DefaultRole, design.Consultants[1].Role, "missing role defaults")

	build := groups[1]
	assert.Equal(t, "Build", build.Name)
	decEqual(t, 2, build.TotalHours)
}

func TestFilterPeriod_WindowBoundariesAreInclusive(t *testing.T) {
	// GIVEN: Entries in 2024-06, 2024-12, 2025-01, 2025-02
	// WHEN: Filtering the window 2024-06 .. 2025-01
	// THEN: 2024-12 and both boundary months are kept; 2025-02 is not
	at := func(id string, year, month int) timesheet.Entry {
		return timesheet.Entry{ID: id, ConsultantID: "c1", Year: year, Month: month, Day: 1}
	}
	entries := []timesheet.Entry{
		at("jun", 2024, 6),
		at("dec", 2024, 12),
		at("jan", 2025, 1),
		at("feb", 2025, 2),
	}

	kept := timesheet.FilterPeriod(entries, timesheet.MonthIndex(2024, 6), timesheet.MonthIndex(2025, 1))

	require.Len(t, kept, 3)
	assert.Equal(t, "jun", kept[0].ID)
	assert.Equal(t, "dec", kept[1].ID)
	assert.Equal(t, "jan", kept[2].ID)
}

func TestSingleMilestonePeriod_FiltersSubRecordsToOneMilestone(t *testing.T) {
	// GIVEN: An entry that matched the period query but carries work on
	// two milestones
	ada := marchEntry("e1", "c1", "Ada", 4, work("w1", "m1", "Design", 4), work("w2", "m2", "Build", 2))
	ben := marchEntry("e2", "c2", "Ben", 4, work("w3", "m1", "Design", 6))

	report := timesheet.SingleMilestonePeriod([]timesheet.Entry{ada, ben}, "m1")

	assert.Equal(t, "Design", report.MilestoneName)
	decEqual(t, 10, report.TotalHours, "m2 hours excluded")
	require.Len(t, report.Consultants, 2)
	decEqual(t, 4, report.Consultants[0].Hours)
	decEqual(t, 6, report.Consultants[1].Hours)
}

func TestSingleMilestonePeriod_NoMatchesYieldsUnknownName(t *testing.T) {
	report := timesheet.SingleMilestonePeriod([]timesheet.Entry{
		marchEntry("e1", "c1", "Ada", 4, work("w1", "m2", "Build", 2)),
	}, "m-nope")

	assert.Equal(t, timesheet.UnknownMilestone, report.MilestoneName)
	assert.True(t, report.TotalHours.IsZero())
	assert.Empty(t, report.Consultants)
}
