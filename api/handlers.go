/*
handlers.go - HTTP handlers for the timesheet API

PURPOSE:
  Implements all HTTP endpoints: daily submissions, sub-record mutations,
  bulk status transitions, month/period reports, and the directory
  endpoints for consultants, milestones, and leave types.

ERROR MAPPING:
  Validation / invalid transition -> 400
  Locked entry / denied policy    -> 403
  Missing entry or sub-record     -> 404
  Duplicate same-day entry        -> 409
  Anything else                   -> 500 (details withheld from clients)

SEE ALSO:
  - server.go: Route definitions
  - dto.go: Request/response types
  - timesheet/: Domain logic invoked here
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	Store     timesheet.EntryStore
	Directory *sqlite.Store // nil when running without the SQLite directory
	Mutator   *timesheet.Mutator
	Engine    *timesheet.TransitionEngine
}

// NewHandler wires the domain services around one SQLite store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:     store,
		Directory: store,
		Mutator:   timesheet.NewMutator(store),
		Engine:    timesheet.NewTransitionEngine(store, RolePolicy),
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil && status < http.StatusInternalServerError {
		resp.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case timesheet.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case timesheet.IsForbidden(err):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case timesheet.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, timesheet.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}

func urlInt(r *http.Request, key string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a number", key)
	}
	return v, nil
}

func monthWindow(r *http.Request) (from, to timesheet.MonthRef, err error) {
	fromYear, err := urlInt(r, "fromYear")
	if err != nil {
		return from, to, err
	}
	fromMonth, err := urlInt(r, "fromMonth")
	if err != nil {
		return from, to, err
	}
	toYear, err := urlInt(r, "toYear")
	if err != nil {
		return from, to, err
	}
	toMonth, err := urlInt(r, "toMonth")
	if err != nil {
		return from, to, err
	}
	from = timesheet.MonthRef{Year: fromYear, Month: fromMonth}
	to = timesheet.MonthRef{Year: toYear, Month: toMonth}
	if fromMonth < 1 || fromMonth > 12 || toMonth < 1 || toMonth > 12 {
		return from, to, fmt.Errorf("month must be 1-12")
	}
	if from.Index() > to.Index() {
		return from, to, fmt.Errorf("window start is after window end")
	}
	return from, to, nil
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// AddEntry handles POST /api/timesheets - a daily submission. Work lines
// append to an existing Draft entry; a non-empty leaves payload replaces
// the entry's leaves wholesale.
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Status != "" && req.Status != string(timesheet.StatusDraft) {
		writeError(w, http.StatusForbidden, "New entries can only be created in Draft status", nil)
		return
	}

	in := timesheet.AddWorkInput{
		ConsultantID: req.ConsultantID,
		UserID:       req.UserID,
		Year:         req.Year,
		Month:        req.Month,
		Day:          req.Day,
		Weekend:      req.Weekend,
	}
	for _, m := range req.Milestones {
		in.Work = append(in.Work, timesheet.WorkItem{
			MilestoneID: m.MilestoneID,
			Hours:       decimal.NewFromFloat(m.Hours),
			Status:      m.Status,
		})
	}
	for _, l := range req.Leaves {
		in.Leaves = append(in.Leaves, timesheet.LeaveItem{
			LeaveTypeID: l.LeaveTypeID,
			Period:      timesheet.LeavePeriod(l.Period),
		})
	}

	entry, created, err := h.Mutator.AddWork(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toEntryDTO(entry))
}

// GetMonthEntries handles GET /api/timesheets/entries/{consultantId}/{year}/{month}.
// Entries are merged by day, so legacy duplicate same-day records read as one.
func (h *Handler) GetMonthEntries(w http.ResponseWriter, r *http.Request) {
	consultantID := chi.URLParam(r, "consultantId")
	year, err := urlInt(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	month, err := urlInt(r, "month")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	entries, err := h.Store.FindConsultantMonth(r.Context(), consultantID, year, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	days := timesheet.AggregateDays(entries)
	out := make([]DayAggregateDTO, 0, len(days))
	for _, d := range days {
		out = append(out, toDayAggregateDTO(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDayEntries handles GET /api/timesheets/entries/{consultantId}/{year}/{month}/{day}.
// Returns the raw (unmerged) entries so clients can address sub-record ids.
func (h *Handler) GetDayEntries(w http.ResponseWriter, r *http.Request) {
	consultantID := chi.URLParam(r, "consultantId")
	year, err := urlInt(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	month, err := urlInt(r, "month")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	day, err := urlInt(r, "day")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	entries, err := h.Store.FindDayEntries(r.Context(), consultantID, year, month, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]EntryDTO, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryDTO(&entries[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateMilestoneWork handles PATCH /api/timesheets/entry/{id}/milestones/{workId}.
func (h *Handler) UpdateMilestoneWork(w http.ResponseWriter, r *http.Request) {
	var req UpdateMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Mutator.UpdateMilestoneHours(
		r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "workId"),
		decimal.NewFromFloat(req.Hours),
		req.Status,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// DeleteMilestoneWork handles DELETE /api/timesheets/entry/{id}/milestones/{workId}.
func (h *Handler) DeleteMilestoneWork(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Mutator.RemoveMilestone(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "workId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// DeleteLeave handles DELETE /api/timesheets/entry/{id}/leaves/{leaveId}.
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Mutator.RemoveLeave(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "leaveId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// =============================================================================
// TRANSITION HANDLERS
// =============================================================================

// ApplyTransition handles
// PATCH /api/timesheets/transition/{name}/{consultantId}/{year}/{month}.
// A zero modified count is a success: either nothing was in the source
// status, or the same transition already ran.
func (h *Handler) ApplyTransition(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := timesheet.Transitions[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown transition: %s", name), nil)
		return
	}

	consultantID := chi.URLParam(r, "consultantId")
	year, err := urlInt(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	month, err := urlInt(r, "month")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	count, err := h.Engine.Apply(r.Context(), actorFrom(r), t, consultantID, year, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResultDTO{
		ModifiedCount: count,
		Message:       fmt.Sprintf("%d entries moved from %s to %s", count, t.From, t.To),
	})
}

// BackfillStatus handles PATCH /api/timesheets/backfillStatus. Normalizes
// entries that predate the status field; admin-only.
func (h *Handler) BackfillStatus(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.BackfillStatus(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResultDTO{
		ModifiedCount: count,
		Message:       fmt.Sprintf("%d entries backfilled", count),
	})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// MonthSummary handles GET /api/timesheets/summary/{year}/{month}.
// Covers Approved and Processed entries: once a month is signed off it
// appears in summaries whether or not payroll has run.
func (h *Handler) MonthSummary(w http.ResponseWriter, r *http.Request) {
	year, err := urlInt(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	month, err := urlInt(r, "month")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	entries, err := h.Store.FindMonth(r.Context(), year, month,
		[]timesheet.Status{timesheet.StatusApproved, timesheet.StatusProcessed})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	groups := timesheet.GroupByConsultant(entries)
	out := make([]ConsultantMonthDTO, 0, len(groups))
	for _, g := range groups {
		s := g.Summarize()
		dto := ConsultantMonthDTO{
			ConsultantID:   g.ConsultantID,
			ConsultantName: g.ConsultantName,
			Timesheets:     make([]DayAggregateDTO, 0, len(g.Days)),
			WorkedHours:    f64(s.WorkedHours),
			WorkedDays:     f64(s.WorkedDays),
			LeaveSummary:   f64Map(s.LeaveSummary),
			MilestoneHours: f64Map(s.MilestoneSummary),
		}
		for _, d := range g.Days {
			dto.Timesheets = append(dto.Timesheets, toDayAggregateDTO(d))
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// MilestoneMonthSummary handles GET /api/timesheets/milestones/summary/{year}/{month}.
// Same Approved+Processed scope as the consultant summary.
func (h *Handler) MilestoneMonthSummary(w http.ResponseWriter, r *http.Request) {
	year, err := urlInt(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	month, err := urlInt(r, "month")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	entries, err := h.Store.FindMonth(r.Context(), year, month,
		[]timesheet.Status{timesheet.StatusApproved, timesheet.StatusProcessed})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMilestoneSummaryDTOs(timesheet.MilestoneGroups(entries)))
}

// PeriodReport handles
// GET /api/timesheets/milestones/period/{fromYear}/{fromMonth}/{toYear}/{toMonth}.
// Period reports cover Processed entries only: they feed invoicing, which
// must not see hours payroll has not finalized.
func (h *Handler) PeriodReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := monthWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	entries, err := h.Store.FindPeriod(r.Context(), from.Index(), to.Index(),
		[]timesheet.Status{timesheet.StatusProcessed})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PeriodReportDTO{
		From:         MonthRefDTO{Year: from.Year, Month: from.Month},
		To:           MonthRefDTO{Year: to.Year, Month: to.Month},
		Deliverables: toMilestoneSummaryDTOs(timesheet.MilestoneGroups(entries)),
	})
}

// SingleMilestoneReport handles
// GET /api/timesheets/milestones/{milestoneId}/{fromYear}/{fromMonth}/{toYear}/{toMonth}.
func (h *Handler) SingleMilestoneReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := monthWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	entries, err := h.Store.FindPeriod(r.Context(), from.Index(), to.Index(),
		[]timesheet.Status{timesheet.StatusProcessed})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	report := timesheet.SingleMilestonePeriod(entries, chi.URLParam(r, "milestoneId"))
	writeJSON(w, http.StatusOK, SingleMilestoneReportDTO{
		Deliverable: report.MilestoneName,
		From:        MonthRefDTO{Year: from.Year, Month: from.Month},
		To:          MonthRefDTO{Year: to.Year, Month: to.Month},
		Consultants: toConsultantHoursDTOs(report.Consultants),
		TotalHours:  f64(report.TotalHours),
	})
}

func toMilestoneSummaryDTOs(groups []timesheet.MilestoneSummary) []MilestoneSummaryDTO {
	out := make([]MilestoneSummaryDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, MilestoneSummaryDTO{
			Deliverable: g.Name,
			Consultants: toConsultantHoursDTOs(g.Consultants),
			TotalHours:  f64(g.TotalHours),
		})
	}
	return out
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

func (h *Handler) directory(w http.ResponseWriter) *sqlite.Store {
	if h.Directory == nil {
		writeError(w, http.StatusServiceUnavailable, "Directory store not configured", nil)
		return nil
	}
	return h.Directory
}

// ListConsultants handles GET /api/consultants.
func (h *Handler) ListConsultants(w http.ResponseWriter, r *http.Request) {
	dir := h.directory(w)
	if dir == nil {
		return
	}
	consultants, err := dir.ListConsultants(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}
	out := make([]ConsultantDTO, 0, len(consultants))
	for _, c := range consultants {
		out = append(out, ConsultantDTO{ID: c.ID, Name: c.Name, Role: c.Role})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateConsultant handles POST /api/consultants.
func (h *Handler) CreateConsultant(w http.ResponseWriter, r *http.Request) {
	dir := h.directory(w)
	if dir == nil {
		return
	}
	var req ConsultantDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = newDirectoryID("consultant")
	}
	if req.Role == "" {
		req.Role = timesheet.DefaultRole
	}
	if err := dir.SaveConsultant(r.Context(), sqlite.Consultant{ID: req.ID, Name: req.Name, Role: req.Role}); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListMilestones handles GET /api/milestones. ?active=true narrows the
// list to active deliverables.
func (h *Handler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	dir := h.directory(w)
	if dir == nil {
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	milestones, err := dir.ListMilestones(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}
	out := make([]MilestoneDTO, 0, len(milestones))
	for _, m := range milestones {
		out = append(out, MilestoneDTO{ID: m.ID, Name: m.Name, Status: m.Status, ProjectID: m.ProjectID})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateMilestone handles POST /api/milestones.
func (h *Handler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	dir := h.directory(w)
	if dir == nil {
		return
	}
	var req MilestoneDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = newDirectoryID("milestone")
	}
	if req.Status == "" {
		req.Status = "Active"
	}
	m := sqlite.Milestone{ID: req.ID, Name: req.Name, Status: req.Status, ProjectID: req.ProjectID}
	if err := dir.SaveMilestone(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListLeaveTypes handles GET /api/leave-types.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	dir := h.directory(w)
	if dir == nil {
		return
	}
	types, err := dir.ListLeaveTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}
	out := make([]LeaveTypeDTO, 0, len(types))
	for _, lt := range types {
		out = append(out, LeaveTypeDTO{ID: lt.ID, Type: lt.Type, HalfdayEligible: lt.HalfdayEligible})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateLeaveType handles POST /api/leave-types.
func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	dir := h.directory(w)
	if dir == nil {
		return
	}
	var req LeaveTypeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = newDirectoryID("leave-type")
	}
	lt := sqlite.LeaveType{ID: req.ID, Type: req.Type, HalfdayEligible: req.HalfdayEligible}
	if err := dir.SaveLeaveType(r.Context(), lt); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func newDirectoryID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
