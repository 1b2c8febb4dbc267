/*
auth.go - Identity extraction and role gating

PURPOSE:
  Authentication (JWT cookies, password handling) is an external
  collaborator; by the time a request reaches this service the identity
  has been verified and is carried in headers:

    X-Consultant-Id: acting consultant
    X-Role:          consultant | leader | admin | super admin

  This file turns those headers into a timesheet.Actor and supplies the
  role-based TransitionPolicy injected into the transition engine. The
  engine itself stays authorization-agnostic.

ROLE MATRIX (mirrors the route-level restrictions of the admin UI):
  submit:                      any authenticated identity
  revert, approve:             leader, admin, super admin
  revertApproved, process,
  revertProcessed, backfill:   admin, super admin
*/
package api

import (
	"net/http"

	"github.com/warp/timesheet-engine/timesheet"
)

const (
	headerConsultantID = "X-Consultant-Id"
	headerRole         = "X-Role"

	RoleConsultant = "consultant"
	RoleLeader     = "leader"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super admin"
)

// actorFrom extracts the authenticated identity from request headers.
func actorFrom(r *http.Request) timesheet.Actor {
	return timesheet.Actor{
		ConsultantID: r.Header.Get(headerConsultantID),
		Role:         r.Header.Get(headerRole),
	}
}

// transitionRoles maps each transition to the roles allowed to apply it.
// Submit is open to any authenticated identity (empty = no restriction).
var transitionRoles = map[string][]string{
	timesheet.Submit.Name:          nil,
	timesheet.Revert.Name:          {RoleLeader, RoleAdmin, RoleSuperAdmin},
	timesheet.Approve.Name:         {RoleLeader, RoleAdmin, RoleSuperAdmin},
	timesheet.RevertApproved.Name:  {RoleAdmin, RoleSuperAdmin},
	timesheet.Process.Name:         {RoleAdmin, RoleSuperAdmin},
	timesheet.RevertProcessed.Name: {RoleAdmin, RoleSuperAdmin},
}

// RolePolicy is the TransitionPolicy used in production. It is injected
// into the engine rather than baked in, so tests and future callers can
// swap their own rules.
func RolePolicy(actor timesheet.Actor, t timesheet.Transition) error {
	allowed := transitionRoles[t.Name]
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return timesheet.ErrTransitionDenied
}

// requireRole guards non-transition admin endpoints.
func requireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)
		for _, role := range roles {
			if actor.Role == role {
				next(w, r)
				return
			}
		}
		writeError(w, http.StatusForbidden, "You do not have permission to perform this action", nil)
	}
}
