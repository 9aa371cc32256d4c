// Package approvals manages each project's approval ledger: one entry per
// teacher, gating the project's visibility to that teacher's university.
package approvals

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

// Service handles approval operations.
type Service struct {
	kit.Base
	ledgers  LedgerStore
	projects ProjectReader
	notifier notify.Notifier
}

// NewService creates a new approval service.
func NewService(base kit.Base, ledgers LedgerStore, projects ProjectReader, notifier notify.Notifier) *Service {
	return &Service{Base: base.Normalize(), ledgers: ledgers, projects: projects, notifier: notifier}
}

// InsertRequest defines the inputs for a new ledger entry.
type InsertRequest struct {
	TeacherID  string
	FullName   string
	University string
	Status     string
	Comments   string
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	University string
	Status     string
}

// Insert adds the teacher's entry to the project's ledger.
func (s *Service) Insert(ctx context.Context, projectID string, req InsertRequest) (*models.ApprovalEntry, error) {
	entry, p, err := s.write(ctx, "approval.insert", projectID, req, false)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p, entry)
	return entry, nil
}

// Decide overwrites the status and comments of an existing entry.
func (s *Service) Decide(ctx context.Context, projectID, teacherID, status, comments string) (*models.ApprovalEntry, error) {
	req := InsertRequest{TeacherID: teacherID, Status: status, Comments: comments}
	entry, p, err := s.write(ctx, "approval.decide", projectID, req, true)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p, entry)
	return entry, nil
}

// Upsert decides the teacher's entry, inserting it first when missing.
// Repeating the call never produces a second entry.
func (s *Service) Upsert(ctx context.Context, projectID string, req InsertRequest) (*models.ApprovalEntry, error) {
	entry, p, err := s.write(ctx, "approval.upsert", projectID, req, false)
	if errors.Is(err, apperr.ErrDuplicate) {
		entry, p, err = s.write(ctx, "approval.upsert", projectID, req, true)
	}
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p, entry)
	return entry, nil
}

// write inserts (existing=false) or overwrites (existing=true) one entry
// under compare-and-swap.
func (s *Service) write(ctx context.Context, op, projectID string, req InsertRequest, existing bool) (*models.ApprovalEntry, *models.Project, error) {
	teacherID := strings.TrimSpace(req.TeacherID)
	status := normalizeStatus(req.Status)
	if status == "" && !existing {
		status = models.ApprovalPending
	}
	if teacherID == "" {
		return nil, nil, s.Observe(op, apperr.Validation("teacher id is required"))
	}
	if !models.ValidApprovalStatus(status) {
		return nil, nil, s.Observe(op, apperr.Validation("status must be one of pending, approved, rejected, needMoreInfo"))
	}
	comments := htmlsanitize.StripTags(req.Comments)

	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, nil, s.Observe(op, kit.NotFound(err, "project"))
	}

	var out models.ApprovalEntry
	err = s.Retry(ctx, "approval ledger", func(ctx context.Context) error {
		now := s.Clock()
		l, err := s.ledgers.Get(ctx, projectID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if existing {
				return apperr.NotFound("approval")
			}
			l = &models.ApprovalLedger{ProjectID: projectID}
		case err != nil:
			return err
		}

		i := l.Find(teacherID)
		if existing {
			if i < 0 {
				return apperr.NotFound("approval")
			}
			e := &l.Entries[i]
			e.Status = status
			e.Comments = comments
			e.ActionAt = &now
			e.ActionBy = teacherID
			out = *e
		} else {
			if i >= 0 {
				return apperr.Duplicate("teacher has already responded to this project")
			}
			university := normalize.Name(req.University)
			if university == "" {
				return apperr.Validation("university is required")
			}
			e := models.ApprovalEntry{
				TeacherID:    teacherID,
				FullName:     normalize.Name(req.FullName),
				University:   university,
				UniversityCI: normalize.University(university),
				Status:       status,
				Comments:     comments,
			}
			if status != models.ApprovalPending {
				e.ActionAt = &now
				e.ActionBy = teacherID
			}
			l.Entries = append(l.Entries, e)
			out = e
		}
		l.UpdatedAt = now
		return s.ledgers.Save(ctx, l)
	})
	if err != nil {
		return nil, nil, s.Observe(op, err)
	}
	s.Log.Info("approval recorded",
		zap.String("project_id", projectID),
		zap.String("teacher_id", teacherID),
		zap.String("status", status),
	)
	return &out, p, s.Observe(op, nil)
}

// List returns the project's entries matching f.
func (s *Service) List(ctx context.Context, projectID string, f Filter) ([]models.ApprovalEntry, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, kit.NotFound(err, "project")
	}
	l, err := s.ledgers.Get(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return []models.ApprovalEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	uni := normalize.University(f.University)
	status := normalizeStatus(f.Status)
	out := make([]models.ApprovalEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if uni != "" && e.UniversityCI != uni {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ApprovedForUniversity reports whether a teacher from university has
// approved the project.
func (s *Service) ApprovedForUniversity(ctx context.Context, projectID, university string) (bool, error) {
	l, err := s.ledgers.Get(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.ApprovedFor(normalize.University(university)), nil
}

// ApprovedProjectIDs lists the projects visible to university.
func (s *Service) ApprovedProjectIDs(ctx context.Context, university string) ([]string, error) {
	uni := normalize.University(university)
	if uni == "" {
		return nil, apperr.Validation("university is required")
	}
	return s.ledgers.ProjectIDsApprovedFor(ctx, uni)
}

func (s *Service) notify(ctx context.Context, p *models.Project, e *models.ApprovalEntry) {
	s.notifier.Dispatch(ctx, notify.Event{
		Type:       models.NotifyProjectApproval,
		Title:      "Project approval update",
		Message:    approvalMessage(p.Title, e),
		Related:    models.RelatedEntity{Type: "project", ID: p.ID, SecondaryID: e.TeacherID},
		Recipients: []string{p.RepresentativeID},
		SenderID:   e.TeacherID,
		ActionLink: "/projects/" + p.ID + "/approvals",
	})
}

func approvalMessage(title string, e *models.ApprovalEntry) string {
	who := e.FullName
	if who == "" {
		who = "A teacher"
	}
	switch e.Status {
	case models.ApprovalApproved:
		return fmt.Sprintf("%s from %s approved your project %q.", who, e.University, title)
	case models.ApprovalRejected:
		return fmt.Sprintf("%s from %s rejected your project %q.", who, e.University, title)
	case models.ApprovalNeedMoreInfo:
		return fmt.Sprintf("%s from %s needs more information about your project %q.", who, e.University, title)
	}
	return fmt.Sprintf("%s from %s is reviewing your project %q.", who, e.University, title)
}

// normalizeStatus folds case but keeps the camel-cased needMoreInfo token.
func normalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, models.ApprovalNeedMoreInfo) {
		return models.ApprovalNeedMoreInfo
	}
	if s == "" {
		return ""
	}
	return strings.ToLower(s)
}
