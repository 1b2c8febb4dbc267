/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model (decimal hours, typed statuses) from the
  external contract: hours and day counts cross the wire as plain JSON
  numbers, converted from decimal only here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - timesheet/aggregate.go: Source types for report DTOs
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// ENTRY TYPES
// =============================================================================

// WorkItemRequest is one milestone-work line in a submission.
type WorkItemRequest struct {
	MilestoneID string  `json:"milestone_id"`
	Hours       float64 `json:"hours"`
	Status      string  `json:"status,omitempty"`
}

// LeaveItemRequest is one leave line in a submission.
type LeaveItemRequest struct {
	LeaveTypeID string `json:"leave_type_id"`
	Period      string `json:"period"`
}

// AddEntryRequest is the POST body for a daily submission.
type AddEntryRequest struct {
	ConsultantID string             `json:"consultant_id"`
	UserID       string             `json:"user_id,omitempty"`
	Year         int                `json:"year"`
	Month        int                `json:"month"`
	Day          int                `json:"day"`
	Milestones   []WorkItemRequest  `json:"milestones"`
	Leaves       []LeaveItemRequest `json:"leaves,omitempty"`
	Weekend      bool               `json:"weekend,omitempty"`
	Status       string             `json:"status,omitempty"` // rejected unless Draft
}

// UpdateMilestoneRequest is the PATCH body for one work sub-record.
type UpdateMilestoneRequest struct {
	Hours  float64 `json:"hours"`
	Status string  `json:"status,omitempty"`
}

// MilestoneWorkDTO is a work sub-record in responses.
type MilestoneWorkDTO struct {
	ID          string  `json:"id"`
	MilestoneID string  `json:"milestone_id"`
	Name        string  `json:"name,omitempty"`
	Hours       float64 `json:"hours"`
	Status      string  `json:"status"`
}

// LeaveDTO is a leave sub-record in responses.
type LeaveDTO struct {
	ID          string `json:"id"`
	LeaveTypeID string `json:"leave_type_id,omitempty"`
	Type        string `json:"type,omitempty"`
	Period      string `json:"period"`
}

// EntryDTO is a raw (unmerged) entry in responses.
type EntryDTO struct {
	ID               string             `json:"id"`
	ConsultantID     string             `json:"consultant_id"`
	UserID           string             `json:"user_id,omitempty"`
	Year             int                `json:"year"`
	Month            int                `json:"month"`
	Day              int                `json:"day"`
	Milestones       []MilestoneWorkDTO `json:"milestones"`
	Leaves           []LeaveDTO         `json:"leaves"`
	TotalWorkedHours float64            `json:"total_worked_hours"`
	Weekend          bool               `json:"weekend"`
	Status           string             `json:"status"`
}

// DayAggregateDTO is the merged view of one calendar day.
type DayAggregateDTO struct {
	EntryID          string             `json:"id"`
	Day              int                `json:"day"`
	Milestones       []MilestoneWorkDTO `json:"milestones"`
	Leaves           []LeaveDTO         `json:"leaves"`
	LeaveSummary     map[string]float64 `json:"leave_summary"`
	TotalWorkedHours float64            `json:"total_worked_hours"`
	Weekend          bool               `json:"weekend"`
	Status           string             `json:"status"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// ConsultantMonthDTO is one consultant's day-aggregated month plus totals.
type ConsultantMonthDTO struct {
	ConsultantID   string             `json:"consultant_id"`
	ConsultantName string             `json:"consultant_name"`
	Timesheets     []DayAggregateDTO  `json:"timesheets"`
	WorkedHours    float64            `json:"worked_hours"`
	WorkedDays     float64            `json:"worked_days"`
	LeaveSummary   map[string]float64 `json:"leave_summary"`
	MilestoneHours map[string]float64 `json:"milestone_hours"`
}

// ConsultantHoursDTO is one consultant's share of a deliverable.
type ConsultantHoursDTO struct {
	Name  string  `json:"name"`
	Role  string  `json:"role"`
	Hours float64 `json:"hours"`
}

// MilestoneSummaryDTO groups hours under one deliverable.
type MilestoneSummaryDTO struct {
	Deliverable string               `json:"deliverable"`
	Consultants []ConsultantHoursDTO `json:"consultants"`
	TotalHours  float64              `json:"total_hours"`
}

// MonthRefDTO names one end of a reporting window.
type MonthRefDTO struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PeriodReportDTO is the all-deliverables period report.
type PeriodReportDTO struct {
	From         MonthRefDTO           `json:"from"`
	To           MonthRefDTO           `json:"to"`
	Deliverables []MilestoneSummaryDTO `json:"deliverables"`
}

// SingleMilestoneReportDTO is the one-deliverable period report.
type SingleMilestoneReportDTO struct {
	Deliverable string               `json:"deliverable"`
	From        MonthRefDTO          `json:"from"`
	To          MonthRefDTO          `json:"to"`
	Consultants []ConsultantHoursDTO `json:"consultants"`
	TotalHours  float64              `json:"total_hours"`
}

// TransitionResultDTO reports a bulk status transition outcome.
type TransitionResultDTO struct {
	ModifiedCount int64  `json:"modified_count"`
	Message       string `json:"message"`
}

// =============================================================================
// DIRECTORY TYPES
// =============================================================================

// ConsultantDTO is a directory consultant.
type ConsultantDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// MilestoneDTO is a directory milestone.
type MilestoneDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	ProjectID string `json:"project_id,omitempty"`
}

// LeaveTypeDTO is a directory leave type.
type LeaveTypeDTO struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	HalfdayEligible bool   `json:"halfday_eligible"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func f64(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func f64Map(m map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = f64(v)
	}
	return out
}

func toEntryDTO(e *timesheet.Entry) EntryDTO {
	dto := EntryDTO{
		ID:               e.ID,
		ConsultantID:     e.ConsultantID,
		UserID:           e.UserID,
		Year:             e.Year,
		Month:            e.Month,
		Day:              e.Day,
		Milestones:       []MilestoneWorkDTO{},
		Leaves:           []LeaveDTO{},
		TotalWorkedHours: f64(e.TotalWorkedHours()),
		Weekend:          e.Weekend,
		Status:           string(e.Status),
	}
	for _, w := range e.MilestoneWork {
		dto.Milestones = append(dto.Milestones, MilestoneWorkDTO{
			ID:          w.ID,
			MilestoneID: w.MilestoneID,
			Name:        w.MilestoneName,
			Hours:       f64(w.Hours),
			Status:      w.Status,
		})
	}
	for _, l := range e.Leaves {
		dto.Leaves = append(dto.Leaves, LeaveDTO{
			ID:          l.ID,
			LeaveTypeID: l.LeaveTypeID,
			Type:        l.TypeName,
			Period:      string(l.Period),
		})
	}
	return dto
}

func toDayAggregateDTO(day timesheet.DayAggregate) DayAggregateDTO {
	dto := DayAggregateDTO{
		EntryID:          day.EntryID,
		Day:              day.Day,
		Milestones:       []MilestoneWorkDTO{},
		Leaves:           []LeaveDTO{},
		LeaveSummary:     f64Map(day.LeaveSummary),
		TotalWorkedHours: f64(day.TotalWorkedHours),
		Weekend:          day.Weekend,
		Status:           string(day.Status),
	}
	for _, m := range day.Milestones {
		dto.Milestones = append(dto.Milestones, MilestoneWorkDTO{
			MilestoneID: m.MilestoneID,
			Name:        m.Name,
			Hours:       f64(m.Hours),
			Status:      m.Status,
		})
	}
	for _, l := range day.Leaves {
		dto.Leaves = append(dto.Leaves, LeaveDTO{
			ID:     l.ID,
			Type:   l.Type,
			Period: string(l.Period),
		})
	}
	return dto
}

func toConsultantHoursDTOs(consultants []timesheet.ConsultantHours) []ConsultantHoursDTO {
	out := make([]ConsultantHoursDTO, 0, len(consultants))
	for _, c := range consultants {
		out = append(out, ConsultantHoursDTO{Name: c.Name, Role: c.Role, Hours: f64(c.Hours)})
	}
	return out
}
