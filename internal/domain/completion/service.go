// Package completion tracks the dual industry/teacher sign-off on a group.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.uber.org/zap"
)

// SelectionStore locates and rewrites selection documents.
type SelectionStore interface {
	Get(ctx context.Context, projectID string) (*models.SelectionDoc, error)
	Save(ctx context.Context, d *models.SelectionDoc) error
	FindBySelectionID(ctx context.Context, selectionID string) (*models.SelectionDoc, error)
}

// Result is the derived completion state after a transition.
type Result struct {
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
}

type Service struct {
	kit.Base
	selections SelectionStore
	notifier   notify.Notifier
}

func NewService(base kit.Base, selections SelectionStore, notifier notify.Notifier) *Service {
	return &Service{Base: base.Normalize(), selections: selections, notifier: notifier}
}

// ProjectOf returns the id of the project that holds the selection.
func (s *Service) ProjectOf(ctx context.Context, selectionID string) (string, error) {
	found, err := s.selections.FindBySelectionID(ctx, selectionID)
	if errors.Is(err, repository.ErrAmbiguous) {
		return "", &apperr.Error{Kind: apperr.KindConflict, Msg: "selection id " + selectionID + " is held by more than one project", Err: err}
	}
	if err != nil {
		return "", kit.NotFound(err, "selection")
	}
	return found.ProjectID, nil
}

// SetRoleStatus sets one role's completion flag on the selection and
// returns the re-derived state. Setting a flag false after completion
// reopens the group.
func (s *Service) SetRoleStatus(ctx context.Context, selectionID, role string, value bool) (*Result, error) {
	role = normalize.Role(role)
	if role != models.RoleIndustry && role != models.RoleTeacher {
		return nil, s.Observe("completion.set_role", apperr.InvalidRole("role must be %q or %q", models.RoleIndustry, models.RoleTeacher))
	}

	projectID, err := s.ProjectOf(ctx, selectionID)
	if err != nil {
		return nil, s.Observe("completion.set_role", err)
	}

	var sel models.Selection
	err = s.Retry(ctx, "selection", func(ctx context.Context) error {
		doc, err := s.selections.Get(ctx, projectID)
		if err != nil {
			return kit.NotFound(err, "selection")
		}
		i := doc.Find(selectionID)
		if i < 0 {
			return apperr.NotFound("selection")
		}
		now := s.Clock()
		doc.Selections[i].SetRole(role, value, now)
		doc.UpdatedAt = now
		if err := s.selections.Save(ctx, doc); err != nil {
			return err
		}
		sel = doc.Selections[i]
		return nil
	})
	if err != nil {
		return nil, s.Observe("completion.set_role", err)
	}
	s.Log.Info("completion role set",
		zap.String("project_id", projectID),
		zap.String("selection_id", selectionID),
		zap.String("role", role),
		zap.Bool("value", value),
		zap.Bool("is_completed", sel.Status.IsCompleted),
	)

	if value {
		msg := fmt.Sprintf("The %s side marked group %s complete.", role, selectionID)
		if sel.Status.IsCompleted {
			msg += " The project is now completed."
		}
		s.notifier.Dispatch(ctx, notify.Event{
			Type:       models.NotifyRoleCompletion,
			Title:      "Completion update",
			Message:    msg,
			Related:    models.RelatedEntity{Type: "selection", ID: projectID, SecondaryID: selectionID},
			Recipients: sel.GroupMembers,
		})
	}
	return &Result{IsCompleted: sel.Status.IsCompleted, CompletedAt: sel.CompletedAt}, s.Observe("completion.set_role", nil)
}
