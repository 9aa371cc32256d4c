// Package groups forms student groups (selections) against a project.
//
// All selections of a project live in one document, which is the unit of
// concurrency control: the per-university group quota and the per-group
// member limit are checked against the document version being replaced,
// so concurrent writers can never overshoot either limit.
package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/domain/identity"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxIDAttempts bounds selection id regeneration on collision.
const maxIDAttempts = 10

// Deps wires the engine to its stores and collaborators.
type Deps struct {
	Selections   SelectionStore
	Projects     ProjectReader
	Supervisions SupervisionReader
	Notifier     notify.Notifier
	Directory    identity.Directory

	// Suffix returns the random part of a new selection id. Defaults to
	// six hex digits of a random UUID.
	Suffix func() string
}

// Service handles group formation.
type Service struct {
	kit.Base
	Deps
}

// NewService creates a new group formation service.
func NewService(base kit.Base, deps Deps) *Service {
	if deps.Suffix == nil {
		deps.Suffix = randomSuffix
	}
	return &Service{Base: base.Normalize(), Deps: deps}
}

// GroupView is a selection with its members resolved through the
// identity directory.
type GroupView struct {
	models.Selection
	Leader  models.Profile   `json:"leader"`
	Members []models.Profile `json:"members"`
}

// CreateGroup starts a new group led by leaderEmail and returns its id.
func (s *Service) CreateGroup(ctx context.Context, projectID, leaderEmail, university string) (string, error) {
	leader := normalize.Email(leaderEmail)
	uniName := normalize.Name(university)
	uni := normalize.University(uniName)
	if leader == "" || uni == "" {
		return "", s.Observe("group.create", apperr.Validation("leader email and university are required"))
	}

	var p *models.Project
	var sel models.Selection
	err := s.Retry(ctx, "selection", func(ctx context.Context) error {
		var err error
		if p, err = s.openProject(ctx, projectID); err != nil {
			return err
		}
		doc, err := s.Selections.Get(ctx, projectID)
		fresh := errors.Is(err, repository.ErrNotFound)
		if fresh {
			doc = &models.SelectionDoc{ProjectID: projectID}
		} else if err != nil {
			return err
		}

		if limit := p.GroupLimit(); limit > 0 && doc.CountForUniversity(uni) >= limit {
			return apperr.Capacity("%s has reached its limit of %d group(s) for this project", uniName, limit)
		}
		if memberOf(doc, leader) != "" {
			return apperr.Duplicate("%s already belongs to a group in this project", leader)
		}

		id, err := s.newSelectionID(ctx, doc, leader, projectID)
		if err != nil {
			return err
		}
		now := s.Clock()
		sel = models.Selection{
			SelectionID:  id,
			University:   uniName,
			UniversityCI: uni,
			GroupLeader:  leader,
			GroupMembers: []string{leader},
			JoinedAt:     now,
		}
		doc.Selections = append(doc.Selections, sel)
		doc.UpdatedAt = now
		if err := s.Selections.Save(ctx, doc); err != nil {
			return err
		}
		if fresh {
			return s.dropIfOrphaned(ctx, projectID)
		}
		return nil
	})
	if err != nil {
		return "", s.Observe("group.create", err)
	}
	s.Log.Info("group created",
		zap.String("project_id", projectID),
		zap.String("selection_id", sel.SelectionID),
		zap.String("university", uniName),
	)

	s.Notifier.Dispatch(ctx, notify.Event{
		Type:       models.NotifyGroupCreated,
		Title:      "New group",
		Message:    fmt.Sprintf("%s started a group from %s on %q.", leader, uniName, p.Title),
		Related:    models.RelatedEntity{Type: "selection", ID: projectID, SecondaryID: sel.SelectionID},
		Recipients: append([]string{p.RepresentativeID}, s.supervisorIDs(ctx, projectID)...),
		SenderID:   leader,
	})
	return sel.SelectionID, s.Observe("group.create", nil)
}

// JoinGroup adds memberEmail to the group and returns the updated group.
func (s *Service) JoinGroup(ctx context.Context, projectID, selectionID, memberEmail string) (*models.Selection, error) {
	member := normalize.Email(memberEmail)
	if member == "" {
		return nil, s.Observe("group.join", apperr.Validation("member email is required"))
	}

	var p *models.Project
	var sel models.Selection
	var existing []string
	err := s.Retry(ctx, "selection", func(ctx context.Context) error {
		var err error
		if p, err = s.openProject(ctx, projectID); err != nil {
			return err
		}
		doc, err := s.Selections.Get(ctx, projectID)
		if err != nil {
			return kit.NotFound(err, "group")
		}
		i := doc.Find(selectionID)
		if i < 0 {
			return apperr.NotFound("group")
		}
		g := &doc.Selections[i]
		if g.HasMember(member) {
			return apperr.Duplicate("%s is already a member of this group", member)
		}
		if memberOf(doc, member) != "" {
			return apperr.Duplicate("%s already belongs to a group in this project", member)
		}
		if limit := p.MemberLimit(); len(g.GroupMembers) >= limit {
			return apperr.Capacity("group %s is full (%d of %d members)", selectionID, len(g.GroupMembers), limit)
		}

		existing = append([]string(nil), g.GroupMembers...)
		g.AddMember(member)
		doc.UpdatedAt = s.Clock()
		if err := s.Selections.Save(ctx, doc); err != nil {
			return err
		}
		sel = *g
		return nil
	})
	if err != nil {
		return nil, s.Observe("group.join", err)
	}
	s.Log.Info("group joined",
		zap.String("project_id", projectID),
		zap.String("selection_id", selectionID),
		zap.Int("members", len(sel.GroupMembers)),
	)

	recipients := append([]string{p.RepresentativeID}, s.supervisorIDs(ctx, projectID)...)
	s.Notifier.Dispatch(ctx, notify.Event{
		Type:       models.NotifyGroupJoin,
		Title:      "Group member joined",
		Message:    fmt.Sprintf("%s joined group %s on %q.", member, selectionID, p.Title),
		Related:    models.RelatedEntity{Type: "selection", ID: projectID, SecondaryID: selectionID},
		Recipients: append(recipients, existing...),
		SenderID:   member,
	})
	return &sel, s.Observe("group.join", nil)
}

// GetGroup returns the group with its member profiles.
func (s *Service) GetGroup(ctx context.Context, projectID, selectionID string) (*GroupView, error) {
	doc, err := s.Selections.Get(ctx, projectID)
	if err != nil {
		return nil, kit.NotFound(err, "group")
	}
	i := doc.Find(selectionID)
	if i < 0 {
		return nil, apperr.NotFound("group")
	}
	sel := doc.Selections[i]
	return &GroupView{
		Selection: sel,
		Leader:    identity.Profile(ctx, s.Directory, sel.GroupLeader, s.Log),
		Members:   identity.Profiles(ctx, s.Directory, sel.GroupMembers, s.Log),
	}, nil
}

// ListGroups returns the project's groups, optionally for one university.
func (s *Service) ListGroups(ctx context.Context, projectID, university string) ([]models.Selection, error) {
	if _, err := s.Projects.Get(ctx, projectID); err != nil {
		return nil, kit.NotFound(err, "project")
	}
	doc, err := s.Selections.Get(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return []models.Selection{}, nil
	}
	if err != nil {
		return nil, err
	}
	uni := normalize.University(university)
	out := make([]models.Selection, 0, len(doc.Selections))
	for _, sel := range doc.Selections {
		if uni == "" || sel.UniversityCI == uni {
			out = append(out, sel)
		}
	}
	return out, nil
}

// openProject loads the project and rejects it once its end date passed.
func (s *Service) openProject(ctx context.Context, projectID string) (*models.Project, error) {
	p, err := s.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, kit.NotFound(err, "project")
	}
	if p.DeadlinePassed(s.Clock()) {
		return nil, apperr.Deadline("project %q closed on %s", p.Title, p.Duration.EndDate.Format("2006-01-02"))
	}
	return p, nil
}

// newSelectionID picks an id unused in doc and in every other project.
// Completion looks groups up by selection id alone.
func (s *Service) newSelectionID(ctx context.Context, doc *models.SelectionDoc, leader, projectID string) (string, error) {
	prefix := normalize.LocalPart(leader) + projectID[:min(5, len(projectID))]
	taken := doc.IDs()
	for i := 0; i < maxIDAttempts; i++ {
		id := prefix + "-" + s.Suffix()
		if _, dup := taken[id]; dup {
			continue
		}
		_, err := s.Selections.FindBySelectionID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return id, nil
		}
		if err != nil && !errors.Is(err, repository.ErrAmbiguous) {
			return "", err
		}
		taken[id] = struct{}{}
	}
	return "", fmt.Errorf("no free selection id after %d attempts", maxIDAttempts)
}

// dropIfOrphaned removes a selection document just inserted for a project
// that was deleted in the meantime.
func (s *Service) dropIfOrphaned(ctx context.Context, projectID string) error {
	_, err := s.Projects.Get(ctx, projectID)
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err := s.Selections.Delete(ctx, projectID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.Log.Warn("orphaned selection cleanup failed", zap.String("project_id", projectID), zap.Error(err))
	}
	return apperr.NotFound("project")
}

func (s *Service) supervisorIDs(ctx context.Context, projectID string) []string {
	if s.Supervisions == nil {
		return nil
	}
	l, err := s.Supervisions.Get(ctx, projectID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.Log.Warn("supervisor lookup failed", zap.String("project_id", projectID), zap.Error(err))
		}
		return nil
	}
	var ids []string
	for _, e := range l.Approved() {
		ids = append(ids, e.TeacherID)
	}
	return ids
}

// memberOf returns the id of the group in doc that contains email.
func memberOf(doc *models.SelectionDoc, email string) string {
	for i := range doc.Selections {
		if doc.Selections[i].HasMember(email) {
			return doc.Selections[i].SelectionID
		}
	}
	return ""
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
