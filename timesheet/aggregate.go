/*
aggregate.go - Read-only aggregation over fetched entries

PURPOSE:
  Three aggregation algorithms, all pure functions over entries the store
  has already fetched (no additional queries):

  (a) Day aggregation: merge entries by day number, summing hours when the
      same milestone repeats, concatenating leaves, and computing a
      leave-type day-count summary (Full Day = 1.0, Half Day = 0.5).
  (b) Month summary per consultant: group by consultant, build per-day
      aggregates, then reduce to worked hours, worked days (hours/8,
      rounded to two decimals at display), leave-day totals, and
      per-milestone hour totals.
  (c) Period aggregation across milestones: group Processed entries inside
      an inclusive month-index window by milestone name, then by
      consultant name + role, with a grand total per milestone.

RESILIENCE:
  A milestone, leave type, or consultant that no longer resolves gets a
  literal fallback label. Reports never fail because of a dangling
  reference.

ORDERING:
  Group order follows first appearance in the input; within groups the
  input order is preserved. Stores return entries ordered by day, which
  keeps report output deterministic.
*/
package timesheet

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// (a) DAY AGGREGATION
// =============================================================================

// MilestoneHours is a merged milestone line in a day aggregate.
type MilestoneHours struct {
	MilestoneID string
	Name        string
	Hours       decimal.Decimal
	Status      string
}

// LeaveDetail is a resolved leave line in a day aggregate.
type LeaveDetail struct {
	ID     string
	Type   string
	Period LeavePeriod
}

// DayAggregate is the merged view of one calendar day.
type DayAggregate struct {
	EntryID          string // id of the first entry seen for the day
	Day              int
	Milestones       []MilestoneHours
	Leaves           []LeaveDetail
	LeaveSummary     map[string]decimal.Decimal
	TotalWorkedHours decimal.Decimal
	Weekend          bool
	Status           Status
}

// AggregateDays merges entries by day number. Duplicate same-day entries
// are a legacy artifact; merging them keeps old data readable.
func AggregateDays(entries []Entry) []DayAggregate {
	var days []DayAggregate
	index := map[int]int{} // day -> position in days

	for i := range entries {
		entry := &entries[i]
		pos, ok := index[entry.Day]
		if !ok {
			index[entry.Day] = len(days)
			days = append(days, DayAggregate{
				EntryID:      entry.ID,
				Day:          entry.Day,
				LeaveSummary: map[string]decimal.Decimal{},
				Weekend:      entry.Weekend,
				Status:       entry.Status,
			})
			pos = len(days) - 1
		}
		day := &days[pos]

		for _, w := range entry.MilestoneWork {
			mergeMilestone(day, w)
		}
		for _, l := range entry.Leaves {
			leaveType := l.TypeName
			if leaveType == "" {
				leaveType = UnknownLeave
			}
			day.Leaves = append(day.Leaves, LeaveDetail{
				ID:     l.ID,
				Type:   leaveType,
				Period: l.Period,
			})
			day.LeaveSummary[leaveType] = day.LeaveSummary[leaveType].Add(l.Period.DayValue())
		}
	}

	for i := range days {
		total := decimal.Zero
		for _, m := range days[i].Milestones {
			total = total.Add(m.Hours)
		}
		days[i].TotalWorkedHours = total
	}
	return days
}

func mergeMilestone(day *DayAggregate, w MilestoneWork) {
	for i := range day.Milestones {
		if day.Milestones[i].MilestoneID == w.MilestoneID {
			day.Milestones[i].Hours = day.Milestones[i].Hours.Add(w.Hours)
			return
		}
	}
	name := w.MilestoneName
	if name == "" {
		name = UnknownMilestone
	}
	day.Milestones = append(day.Milestones, MilestoneHours{
		MilestoneID: w.MilestoneID,
		Name:        name,
		Hours:       w.Hours,
		Status:      w.Status,
	})
}

// =============================================================================
// (b) MONTH SUMMARY PER CONSULTANT
// =============================================================================

// ConsultantMonth is one consultant's day-aggregated month.
type ConsultantMonth struct {
	ConsultantID   string
	ConsultantName string
	Days           []DayAggregate
}

// GroupByConsultant groups a month's entries (already status-filtered to
// Approved/Processed by the caller's query) by consultant and applies day
// aggregation within each group.
func GroupByConsultant(entries []Entry) []ConsultantMonth {
	var groups []ConsultantMonth
	index := map[string]int{}
	byConsultant := map[string][]Entry{}

	for _, e := range entries {
		if _, ok := index[e.ConsultantID]; !ok {
			name := e.ConsultantName
			if name == "" {
				name = UnknownConsultant
			}
			index[e.ConsultantID] = len(groups)
			groups = append(groups, ConsultantMonth{
				ConsultantID:   e.ConsultantID,
				ConsultantName: name,
			})
		}
		byConsultant[e.ConsultantID] = append(byConsultant[e.ConsultantID], e)
	}

	for i := range groups {
		groups[i].Days = AggregateDays(byConsultant[groups[i].ConsultantID])
	}
	return groups
}

// ConsultantSummary is the reduced month view for one consultant.
type ConsultantSummary struct {
	ConsultantID     string
	ConsultantName   string
	WorkedHours      decimal.Decimal
	WorkedDays       decimal.Decimal // WorkedHours/8, rounded to 2 decimals
	LeaveSummary     map[string]decimal.Decimal
	MilestoneSummary map[string]decimal.Decimal
}

// Summarize reduces a consultant's day aggregates to totals. Worked days
// are derived from hours (hours/8), not counted; rounding to two decimals
// happens here, at the display edge, to avoid compounding error.
func (cm ConsultantMonth) Summarize() ConsultantSummary {
	s := ConsultantSummary{
		ConsultantID:     cm.ConsultantID,
		ConsultantName:   cm.ConsultantName,
		WorkedHours:      decimal.Zero,
		LeaveSummary:     map[string]decimal.Decimal{},
		MilestoneSummary: map[string]decimal.Decimal{},
	}

	for _, day := range cm.Days {
		for _, m := range day.Milestones {
			s.MilestoneSummary[m.Name] = s.MilestoneSummary[m.Name].Add(m.Hours)
			s.WorkedHours = s.WorkedHours.Add(m.Hours)
		}
		for leaveType, count := range day.LeaveSummary {
			s.LeaveSummary[leaveType] = s.LeaveSummary[leaveType].Add(count)
		}
	}

	s.WorkedDays = s.WorkedHours.Div(HoursPerDay).Round(2)
	return s
}

// SummarizeConsultants applies Summarize to every group.
func SummarizeConsultants(groups []ConsultantMonth) []ConsultantSummary {
	summaries := make([]ConsultantSummary, len(groups))
	for i, g := range groups {
		summaries[i] = g.Summarize()
	}
	return summaries
}

// =============================================================================
// (c) PERIOD AGGREGATION ACROSS MILESTONES
// =============================================================================

// ConsultantHours is one consultant's share of a milestone's hours.
type ConsultantHours struct {
	Name  string
	Role  string
	Hours decimal.Decimal
}

// MilestoneSummary groups hours under one milestone (deliverable).
type MilestoneSummary struct {
	Name        string
	Consultants []ConsultantHours
	TotalHours  decimal.Decimal
}

// MilestoneGroups rolls entries up by milestone name, then by consultant
// name + role. The caller decides the status filter and time window via
// its query; entries are consumed as given.
func MilestoneGroups(entries []Entry) []MilestoneSummary {
	var groups []MilestoneSummary
	index := map[string]int{}

	for i := range entries {
		entry := &entries[i]
		consultantName := entry.ConsultantName
		if consultantName == "" {
			consultantName = UnknownConsultant
		}
		role := entry.ConsultantRole
		if role == "" {
			role = DefaultRole
		}

		for _, w := range entry.MilestoneWork {
			name := w.MilestoneName
			if name == "" {
				name = UnknownMilestone
			}
			pos, ok := index[name]
			if !ok {
				index[name] = len(groups)
				groups = append(groups, MilestoneSummary{Name: name})
				pos = len(groups) - 1
			}
			addConsultantHours(&groups[pos], consultantName, role, w.Hours)
		}
	}
	return groups
}

func addConsultantHours(ms *MilestoneSummary, name, role string, hours decimal.Decimal) {
	ms.TotalHours = ms.TotalHours.Add(hours)
	for i := range ms.Consultants {
		if ms.Consultants[i].Name == name {
			ms.Consultants[i].Hours = ms.Consultants[i].Hours.Add(hours)
			return
		}
	}
	ms.Consultants = append(ms.Consultants, ConsultantHours{Name: name, Role: role, Hours: hours})
}

// FilterPeriod keeps entries whose month index lies in the inclusive
// [fromIndex, toIndex] window. Stores already constrain their queries;
// this exists for callers holding a wider slice.
func FilterPeriod(entries []Entry, fromIndex, toIndex int) []Entry {
	var kept []Entry
	for _, e := range entries {
		if idx := e.MonthIndex(); idx >= fromIndex && idx <= toIndex {
			kept = append(kept, e)
		}
	}
	return kept
}

// SingleMilestoneReport is the period report for one deliverable.
type SingleMilestoneReport struct {
	MilestoneName string
	Consultants   []ConsultantHours
	TotalHours    decimal.Decimal
}

// SingleMilestonePeriod filters work sub-records to one milestone id
// before grouping by consultant. Unmatched sub-records are ignored even
// when the entry itself matched the store query.
func SingleMilestonePeriod(entries []Entry, milestoneID string) SingleMilestoneReport {
	report := SingleMilestoneReport{
		MilestoneName: UnknownMilestone,
		TotalHours:    decimal.Zero,
	}
	index := map[string]int{}

	for i := range entries {
		entry := &entries[i]
		consultantName := entry.ConsultantName
		if consultantName == "" {
			consultantName = UnknownConsultant
		}
		role := entry.ConsultantRole
		if role == "" {
			role = DefaultRole
		}

		for _, w := range entry.MilestoneWork {
			if w.MilestoneID != milestoneID {
				continue
			}
			if w.MilestoneName != "" {
				report.MilestoneName = w.MilestoneName
			}
			pos, ok := index[consultantName]
			if !ok {
				index[consultantName] = len(report.Consultants)
				report.Consultants = append(report.Consultants, ConsultantHours{Name: consultantName, Role: role})
				pos = len(report.Consultants) - 1
			}
			report.Consultants[pos].Hours = report.Consultants[pos].Hours.Add(w.Hours)
			report.TotalHours = report.TotalHours.Add(w.Hours)
		}
	}
	return report
}
