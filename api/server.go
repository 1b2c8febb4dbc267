/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the browser client

ROUTE GROUPS:
  /api/timesheets/*   Entry CRUD, transitions, reports
  /api/consultants    Directory (list/create)
  /api/milestones     Directory (list/create)
  /api/leave-types    Directory (list/create)

AUTHORIZATION:
  Identity arrives pre-authenticated in X-Consultant-Id / X-Role headers
  (see auth.go). Transition routes are gated by the policy injected into
  the engine; admin-only utility routes use requireRole.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", headerConsultantID, headerRole},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Timesheet routes
		r.Route("/timesheets", func(r chi.Router) {
			r.Post("/", h.AddEntry)

			// Reads
			r.Get("/entries/{consultantId}/{year}/{month}", h.GetMonthEntries)
			r.Get("/entries/{consultantId}/{year}/{month}/{day}", h.GetDayEntries)

			// Sub-record mutations
			r.Patch("/entry/{id}/milestones/{workId}", h.UpdateMilestoneWork)
			r.Delete("/entry/{id}/milestones/{workId}", h.DeleteMilestoneWork)
			r.Delete("/entry/{id}/leaves/{leaveId}", h.DeleteLeave)

			// Bulk status transitions (role-gated via the engine policy)
			r.Patch("/transition/{name}/{consultantId}/{year}/{month}", h.ApplyTransition)

			// Legacy status normalization
			r.Patch("/backfillStatus", requireRole(h.BackfillStatus, RoleAdmin, RoleSuperAdmin))

			// Reports
			r.Get("/summary/{year}/{month}", h.MonthSummary)
			r.Route("/milestones", func(r chi.Router) {
				r.Get("/summary/{year}/{month}", h.MilestoneMonthSummary)
				r.Get("/period/{fromYear}/{fromMonth}/{toYear}/{toMonth}", h.PeriodReport)
				r.Get("/{milestoneId}/{fromYear}/{fromMonth}/{toYear}/{toMonth}", h.SingleMilestoneReport)
			})
		})

		// Directory routes
		r.Route("/consultants", func(r chi.Router) {
			r.Get("/", h.ListConsultants)
			r.Post("/", requireRole(h.CreateConsultant, RoleAdmin, RoleSuperAdmin))
		})
		r.Route("/milestones", func(r chi.Router) {
			r.Get("/", h.ListMilestones)
			r.Post("/", requireRole(h.CreateMilestone, RoleAdmin, RoleSuperAdmin))
		})
		r.Route("/leave-types", func(r chi.Router) {
			r.Get("/", h.ListLeaveTypes)
			r.Post("/", requireRole(h.CreateLeaveType, RoleAdmin, RoleSuperAdmin))
		})
	})

	return r
}
