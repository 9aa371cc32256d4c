// Package supervision manages teachers' requests to mentor a project and
// the representative's responses. At most one teacher per university is
// approved to supervise a given project.
package supervision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.uber.org/zap"
)

// Service handles supervision operations.
type Service struct {
	kit.Base
	ledgers  LedgerStore
	projects ProjectReader
	notifier notify.Notifier
}

// NewService creates a new supervision service.
func NewService(base kit.Base, ledgers LedgerStore, projects ProjectReader, notifier notify.Notifier) *Service {
	return &Service{Base: base.Normalize(), ledgers: ledgers, projects: projects, notifier: notifier}
}

// RequestInput identifies the requesting teacher.
type RequestInput struct {
	TeacherID  string
	FullName   string
	University string
	Email      string
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	University string
	Status     string
}

// Request records a pending supervision request for the teacher.
func (s *Service) Request(ctx context.Context, projectID string, in RequestInput) (*models.SupervisionEntry, error) {
	teacherID := strings.TrimSpace(in.TeacherID)
	university := normalize.Name(in.University)
	email := normalize.Email(in.Email)
	switch {
	case teacherID == "":
		return nil, s.Observe("supervision.request", apperr.Validation("teacher id is required"))
	case university == "":
		return nil, s.Observe("supervision.request", apperr.Validation("university is required"))
	case email == "":
		return nil, s.Observe("supervision.request", apperr.Validation("email is required"))
	}

	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, s.Observe("supervision.request", kit.NotFound(err, "project"))
	}

	var out models.SupervisionEntry
	err = s.Retry(ctx, "supervision ledger", func(ctx context.Context) error {
		l, err := s.ledgers.Get(ctx, projectID)
		if errors.Is(err, repository.ErrNotFound) {
			l = &models.SupervisionLedger{ProjectID: projectID}
		} else if err != nil {
			return err
		}
		if l.Find(teacherID) >= 0 {
			return apperr.Duplicate("supervision already requested for this project")
		}
		now := s.Clock()
		e := models.SupervisionEntry{
			TeacherID:    teacherID,
			FullName:     normalize.Name(in.FullName),
			University:   university,
			UniversityCI: normalize.University(university),
			Email:        email,
			RequestedAt:  now,
			Response:     models.SupervisionResponse{Status: models.SupervisionPending},
		}
		l.Entries = append(l.Entries, e)
		l.UpdatedAt = now
		if err := s.ledgers.Save(ctx, l); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, s.Observe("supervision.request", err)
	}
	s.Log.Info("supervision requested",
		zap.String("project_id", projectID),
		zap.String("teacher_id", teacherID),
		zap.String("university", university),
	)

	name := out.FullName
	if name == "" {
		name = "A teacher"
	}
	s.notifier.Dispatch(ctx, notify.Event{
		Type:           models.NotifySupervisionRequest,
		Title:          "Supervision request",
		Message:        fmt.Sprintf("%s from %s wants to supervise %q.", name, out.University, p.Title),
		Related:        models.RelatedEntity{Type: "project", ID: p.ID, SecondaryID: teacherID},
		Recipients:     []string{p.RepresentativeID},
		SenderID:       teacherID,
		ActionRequired: true,
		ActionType:     "supervisionResponse",
		ActionLink:     "/projects/" + p.ID + "/supervisions",
	})
	return &out, s.Observe("supervision.request", nil)
}

// Respond sets the response on the teacher's request. Approval is refused
// while another teacher from the same university is approved.
func (s *Service) Respond(ctx context.Context, projectID, teacherID, status, actionBy, comments string) (*models.SupervisionEntry, error) {
	status = normalize.Status(status)
	if !models.ValidSupervisionStatus(status) {
		return nil, s.Observe("supervision.respond", apperr.Validation("status must be one of pending, approved, rejected"))
	}
	comments = htmlsanitize.StripTags(comments)

	var out models.SupervisionEntry
	err := s.Retry(ctx, "supervision ledger", func(ctx context.Context) error {
		l, err := s.ledgers.Get(ctx, projectID)
		if err != nil {
			return kit.NotFound(err, "supervision request")
		}
		i := l.Find(teacherID)
		if i < 0 {
			return apperr.NotFound("supervision request")
		}
		e := &l.Entries[i]
		if status == models.SupervisionApproved && l.OtherApproved(teacherID, e.UniversityCI) {
			return apperr.Duplicate("another teacher from %s already supervises this project", e.University)
		}
		now := s.Clock()
		e.Response = models.SupervisionResponse{
			Status:   status,
			ActionBy: actionBy,
			ActionAt: &now,
			Comments: comments,
		}
		l.UpdatedAt = now
		if err := s.ledgers.Save(ctx, l); err != nil {
			return err
		}
		out = *e
		return nil
	})
	if err != nil {
		return nil, s.Observe("supervision.respond", err)
	}
	s.Log.Info("supervision responded",
		zap.String("project_id", projectID),
		zap.String("teacher_id", teacherID),
		zap.String("status", status),
	)

	if status != models.SupervisionPending {
		title := projectID
		if p, err := s.projects.Get(ctx, projectID); err == nil {
			title = p.Title
		}
		s.notifier.Dispatch(ctx, notify.Event{
			Type:       models.NotifySupervisionResponse,
			Title:      "Supervision request " + status,
			Message:    fmt.Sprintf("Your request to supervise %q was %s.", title, status),
			Related:    models.RelatedEntity{Type: "project", ID: projectID, SecondaryID: teacherID},
			Recipients: []string{teacherID},
			SenderID:   actionBy,
		})
	}
	return &out, s.Observe("supervision.respond", nil)
}

// List returns the project's entries matching f.
func (s *Service) List(ctx context.Context, projectID string, f Filter) ([]models.SupervisionEntry, error) {
	l, err := s.ledger(ctx, projectID)
	if err != nil {
		return nil, err
	}
	uni := normalize.University(f.University)
	status := normalize.Status(f.Status)
	out := make([]models.SupervisionEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if uni != "" && e.UniversityCI != uni {
			continue
		}
		if status != "" && e.Response.Status != status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// OtherApprovedFromUniversity reports whether a teacher other than
// teacherID from university is approved for the project.
func (s *Service) OtherApprovedFromUniversity(ctx context.Context, projectID, teacherID, university string) (bool, error) {
	l, err := s.ledger(ctx, projectID)
	if err != nil {
		return false, err
	}
	return l.OtherApproved(teacherID, normalize.University(university)), nil
}

// ApprovedSupervisors returns every approved entry for the project.
func (s *Service) ApprovedSupervisors(ctx context.Context, projectID string) ([]models.SupervisionEntry, error) {
	l, err := s.ledger(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return l.Approved(), nil
}

// BulkStatus reports, for each project id, whether the teacher with email
// supervises it, a colleague from the same university does, or neither.
func (s *Service) BulkStatus(ctx context.Context, projectIDs []string, email, university string) (map[string]string, error) {
	out := make(map[string]string, len(projectIDs))
	for _, id := range projectIDs {
		out[id] = models.SupervisionOpen
	}
	if len(projectIDs) == 0 {
		return out, nil
	}
	ledgers, err := s.ledgers.GetMany(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	emailCI, uni := normalize.Email(email), normalize.University(university)
	for i := range ledgers {
		out[ledgers[i].ProjectID] = ledgers[i].StatusFor(emailCI, uni)
	}
	return out, nil
}

// ledger returns the project's ledger, or an empty one when nobody has
// requested supervision yet.
func (s *Service) ledger(ctx context.Context, projectID string) (*models.SupervisionLedger, error) {
	l, err := s.ledgers.Get(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.SupervisionLedger{ProjectID: projectID}, nil
	}
	return l, err
}
