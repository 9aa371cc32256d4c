// Package authz holds per-request authorization checks layered on top of
// the role gates in auth.
package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
)

// Role returns the caller's lowercased role and whether a user is present.
func Role(r *http.Request) (string, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", false
	}
	return strings.ToLower(u.Role), true
}

// HasAnyRole reports whether the caller holds one of roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	cur, ok := Role(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if cur == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

func IsAdmin(r *http.Request) bool { return HasAnyRole(r, models.UserAdmin) }

// CanManageProject reports whether the caller owns p or is an admin.
func CanManageProject(r *http.Request, p *models.Project) bool {
	u, ok := auth.CurrentUser(r)
	if !ok || p == nil {
		return false
	}
	if strings.EqualFold(u.Role, models.UserAdmin) {
		return true
	}
	return strings.EqualFold(u.Role, models.UserRepresentative) && u.ID == p.RepresentativeID
}

// IsSelf reports whether id names the caller (by user id or email).
// Admins act on behalf of anyone.
func IsSelf(r *http.Request, id string) bool {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return false
	}
	if strings.EqualFold(u.Role, models.UserAdmin) {
		return true
	}
	return id != "" && (id == u.ID || strings.EqualFold(id, u.Email))
}

// CanActOnGroups reports whether the caller may sign off on or review the
// groups of p: the owning representative, a teacher among supervisors, or
// an admin.
func CanActOnGroups(r *http.Request, p *models.Project, supervisors []models.SupervisionEntry) bool {
	u, ok := auth.CurrentUser(r)
	if !ok || p == nil {
		return false
	}
	switch strings.ToLower(u.Role) {
	case models.UserAdmin:
		return true
	case models.UserRepresentative:
		return u.ID == p.RepresentativeID
	case models.UserTeacher:
		for _, e := range supervisors {
			if e.TeacherID == u.ID {
				return true
			}
		}
	}
	return false
}

// ProjectGetter loads a project by id.
type ProjectGetter interface {
	Get(ctx context.Context, id string) (*models.Project, error)
}

// SupervisorLister lists a project's approved supervisors.
type SupervisorLister interface {
	ApprovedSupervisors(ctx context.Context, projectID string) ([]models.SupervisionEntry, error)
}

// GroupGate resolves the project behind a group request and applies
// CanActOnGroups.
type GroupGate struct {
	Projects    ProjectGetter
	Supervisors SupervisorLister
}

// Allow loads what CanActOnGroups needs for projectID. Admins skip the
// lookups.
func (g GroupGate) Allow(ctx context.Context, r *http.Request, projectID string) (bool, error) {
	if IsAdmin(r) {
		return true, nil
	}
	p, err := g.Projects.Get(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperr.NotFound("project")
	}
	if err != nil {
		return false, err
	}
	var sups []models.SupervisionEntry
	if HasAnyRole(r, models.UserTeacher) {
		if sups, err = g.Supervisors.ApprovedSupervisors(ctx, projectID); err != nil {
			return false, err
		}
	}
	return CanActOnGroups(r, p, sups), nil
}
