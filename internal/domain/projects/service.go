// Package projects is the project registry: creation, editing under the
// lock/edit-request workflow, visibility listing and cascade delete.
package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/domain/identity"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Deps wires the registry to its stores and collaborators.
type Deps struct {
	Projects     Store
	Approvals    ApprovalStore
	Supervisions SupervisionStore
	Selections   SelectionStore
	Submissions  SubmissionStore
	Reviews      ReviewStore
	Files        FileStore
	Tx           kit.Transactor
	Notifier     notify.Notifier
	Directory    identity.Directory
}

// Service handles project operations.
type Service struct {
	kit.Base
	Deps
}

// NewService creates a new project service.
func NewService(base kit.Base, deps Deps) *Service {
	return &Service{Base: base.Normalize(), Deps: deps}
}

// Spec holds the editable fields of a project.
type Spec struct {
	Title       string
	Description string
	Type        string
	Skills      []string
	MaxStudents int
	MaxGroups   int
	StartDate   time.Time
	EndDate     time.Time
	Attachments []string
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Spec
	RepresentativeID string
}

// Create validates and stores a new, locked project.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Project, error) {
	now := s.Clock()
	p := &models.Project{
		ID:               primitive.NewObjectID().Hex(),
		RepresentativeID: strings.TrimSpace(req.RepresentativeID),
		Lock:             models.Lock{State: models.LockLocked},
		EditRequest:      models.EditRequest{Status: models.EditNone},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	apply(p, req.Spec)
	if err := validate(p); err != nil {
		return nil, s.Observe("project.create", err)
	}

	if err := s.Projects.Save(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = apperr.Duplicate("a project titled %q already exists", p.Title)
		}
		return nil, s.Observe("project.create", err)
	}
	s.Log.Info("project created", zap.String("project_id", p.ID), zap.String("representative_id", p.RepresentativeID))
	return p, s.Observe("project.create", nil)
}

// Get returns the project, relocking it first if its edit window closed.
func (s *Service) Get(ctx context.Context, id string) (*models.Project, error) {
	var out *models.Project
	err := s.Retry(ctx, "project", func(ctx context.Context) error {
		p, err := s.Projects.Get(ctx, id)
		if err != nil {
			return kit.NotFound(err, "project")
		}
		if p.LockExpired(s.Clock()) {
			relock(p, s.Clock())
			if err := s.Projects.Save(ctx, p); err != nil {
				return err
			}
			s.Metrics.LockExpired(1)
			s.Log.Info("project relocked", zap.String("project_id", p.ID))
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable fields of an unlocked project.
func (s *Service) Update(ctx context.Context, id string, spec Spec) (*models.Project, error) {
	var out *models.Project
	err := s.Retry(ctx, "project", func(ctx context.Context) error {
		p, err := s.Projects.Get(ctx, id)
		if err != nil {
			return kit.NotFound(err, "project")
		}
		now := s.Clock()
		if p.Lock.State != models.LockUnlocked || p.LockExpired(now) {
			return apperr.Validation("project is locked; request an edit first")
		}
		apply(p, spec)
		if err := validate(p); err != nil {
			return err
		}
		p.UpdatedAt = now
		if err := s.Projects.Save(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Duplicate("a project titled %q already exists", p.Title)
			}
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, s.Observe("project.update", err)
	}
	return out, s.Observe("project.update", nil)
}

// RequestEdit asks the admins to unlock the project.
func (s *Service) RequestEdit(ctx context.Context, id, requesterID, reason string) (*models.Project, error) {
	reason = htmlsanitize.StripTags(reason)
	if reason == "" {
		return nil, s.Observe("project.request_edit", apperr.Validation("a reason is required"))
	}

	var out *models.Project
	err := s.Retry(ctx, "project", func(ctx context.Context) error {
		p, err := s.Projects.Get(ctx, id)
		if err != nil {
			return kit.NotFound(err, "project")
		}
		now := s.Clock()
		if p.Lock.State == models.LockUnlocked && !p.LockExpired(now) {
			return apperr.Validation("project is already unlocked")
		}
		if p.EditRequest.Status == models.EditPending {
			return apperr.Duplicate("an edit request is already pending for this project")
		}
		if p.LockExpired(now) {
			relock(p, now)
		}
		p.EditRequest = models.EditRequest{
			Status:      models.EditPending,
			Reason:      reason,
			RequestedBy: requesterID,
			RequestedAt: &now,
		}
		p.UpdatedAt = now
		if err := s.Projects.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, s.Observe("project.request_edit", err)
	}

	s.Notifier.Dispatch(ctx, notify.Event{
		Type:           models.NotifyEditRequest,
		Title:          "Edit request",
		Message:        fmt.Sprintf("Edit requested for project %q: %s", out.Title, reason),
		Related:        models.RelatedEntity{Type: "project", ID: out.ID},
		Recipients:     identity.IDsByRole(ctx, s.Directory, models.UserAdmin, s.Log),
		SenderID:       requesterID,
		ActionRequired: true,
		ActionType:     "editDecision",
		ActionLink:     "/projects/" + out.ID + "/edit-decision",
		Priority:       models.PriorityHigh,
	})
	return out, s.Observe("project.request_edit", nil)
}

// DecideEdit approves or rejects a pending edit request. Approval
// unlocks the project until the given instant.
func (s *Service) DecideEdit(ctx context.Context, id, adminID string, approve bool, until time.Time) (*models.Project, error) {
	var out *models.Project
	err := s.Retry(ctx, "project", func(ctx context.Context) error {
		p, err := s.Projects.Get(ctx, id)
		if err != nil {
			return kit.NotFound(err, "project")
		}
		now := s.Clock()
		if p.EditRequest.Status != models.EditPending {
			return apperr.Validation("project has no pending edit request")
		}
		if approve {
			if !until.After(now) {
				return apperr.Validation("unlock window must end in the future")
			}
			u := until.UTC()
			p.Lock = models.Lock{State: models.LockUnlocked, UnlockedUntil: &u}
			p.EditRequest.Status = models.EditApproved
		} else {
			p.EditRequest.Status = models.EditRejected
		}
		p.EditRequest.DecidedBy = adminID
		p.EditRequest.DecidedAt = &now
		p.UpdatedAt = now
		if err := s.Projects.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, s.Observe("project.decide_edit", err)
	}

	msg := fmt.Sprintf("Your edit request for %q was rejected.", out.Title)
	if approve {
		msg = fmt.Sprintf("Your edit request for %q was approved until %s.", out.Title, out.Lock.UnlockedUntil.Format(time.RFC3339))
	}
	s.Notifier.Dispatch(ctx, notify.Event{
		Type:       models.NotifyEditDecision,
		Title:      "Edit request decided",
		Message:    msg,
		Related:    models.RelatedEntity{Type: "project", ID: out.ID},
		Recipients: []string{out.RepresentativeID},
		SenderID:   adminID,
	})
	return out, s.Observe("project.decide_edit", nil)
}

// ListVisible returns the projects approved for the university.
func (s *Service) ListVisible(ctx context.Context, university string) ([]models.Project, error) {
	uni := normalize.University(university)
	if uni == "" {
		return nil, apperr.Validation("university is required")
	}
	ids, err := s.Approvals.ProjectIDsApprovedFor(ctx, uni)
	if err != nil {
		return nil, err
	}
	return s.Projects.ListByIDs(ctx, ids)
}

// ExpireLocks relocks every project whose edit window closed before now.
// It returns how many projects were relocked.
func (s *Service) ExpireLocks(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.Projects.ListExpiredLocks(ctx, now)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range expired {
		id := e.ID
		err := s.Retry(ctx, "project", func(ctx context.Context) error {
			p, err := s.Projects.Get(ctx, id)
			if err != nil {
				return err
			}
			if !p.LockExpired(now) {
				return nil
			}
			relock(p, now)
			if err := s.Projects.Save(ctx, p); err != nil {
				return err
			}
			n++
			return nil
		})
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.Log.Warn("relock failed", zap.String("project_id", id), zap.Error(err))
		}
	}
	s.Metrics.LockExpired(n)
	return n, nil
}

func relock(p *models.Project, now time.Time) {
	p.Lock = models.Lock{State: models.LockLocked}
	p.UpdatedAt = now
}

func apply(p *models.Project, spec Spec) {
	p.Title = normalize.Name(spec.Title)
	p.TitleCI = normalize.Title(spec.Title)
	p.Description = htmlsanitize.Sanitize(spec.Description)
	p.Type = strings.TrimSpace(spec.Type)
	p.Skills = cleanList(spec.Skills)
	p.MaxStudents = spec.MaxStudents
	p.MaxGroups = spec.MaxGroups
	p.Duration = models.Duration{StartDate: spec.StartDate.UTC(), EndDate: spec.EndDate.UTC()}
	p.Attachments = cleanList(spec.Attachments)
}

func validate(p *models.Project) error {
	var missing []string
	if p.Title == "" {
		missing = append(missing, "title")
	}
	if p.RepresentativeID == "" {
		missing = append(missing, "representative")
	}
	if p.Duration.StartDate.IsZero() {
		missing = append(missing, "start date")
	}
	if p.Duration.EndDate.IsZero() {
		missing = append(missing, "end date")
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}

	switch p.Type {
	case models.ProjectGroup:
		if p.MaxStudents < 1 || p.MaxGroups < 1 {
			return apperr.Validation("group projects require max students per group and max groups of at least 1")
		}
	case models.ProjectIndividual:
		if p.MaxStudents < 0 || p.MaxGroups < 0 {
			return apperr.Validation("capacity limits cannot be negative")
		}
	default:
		return apperr.Validation("type must be %q or %q", models.ProjectIndividual, models.ProjectGroup)
	}

	if p.Duration.EndDate.Before(p.Duration.StartDate) {
		return apperr.Validation("end date must not be before start date")
	}
	return nil
}

func cleanList(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
