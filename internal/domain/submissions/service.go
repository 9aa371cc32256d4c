// Package submissions records the work a group hands in against a project.
package submissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	Get(ctx context.Context, id string) (*models.SubmissionDoc, error)
	Save(ctx context.Context, d *models.SubmissionDoc) error
}

type ProjectReader interface {
	Get(ctx context.Context, id string) (*models.Project, error)
}

type SelectionReader interface {
	Get(ctx context.Context, projectID string) (*models.SelectionDoc, error)
}

type FileStore interface {
	Delete(ctx context.Context, url string) error
}

// Deps wires the service to its stores and collaborators.
type Deps struct {
	Submissions Store
	Projects    ProjectReader
	Selections  SelectionReader
	Files       FileStore
	Notifier    notify.Notifier
}

type Service struct {
	kit.Base
	Deps
}

func NewService(base kit.Base, deps Deps) *Service {
	return &Service{Base: base.Normalize(), Deps: deps}
}

// SubmitInput is one hand-in.
type SubmitInput struct {
	Submitter string
	Comments  string
	Files     []string
}

// Add appends a submission for the group. Only members may submit.
func (s *Service) Add(ctx context.Context, projectID, selectionID string, in SubmitInput) (*models.SubmissionEntry, error) {
	submitter := normalize.Email(in.Submitter)
	if submitter == "" {
		return nil, s.Observe("submission.add", apperr.Validation("submitter is required"))
	}

	p, err := s.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, s.Observe("submission.add", kit.NotFound(err, "project"))
	}
	sel, err := s.group(ctx, projectID, selectionID)
	if err != nil {
		return nil, s.Observe("submission.add", err)
	}
	if !sel.HasMember(submitter) {
		return nil, s.Observe("submission.add", apperr.Validation("only group members can submit work"))
	}

	var files []string
	for _, f := range in.Files {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	entry := models.SubmissionEntry{
		SubmissionID: uuid.NewString(),
		Submitter:    submitter,
		Comments:     htmlsanitize.StripTags(in.Comments),
		Files:        files,
	}

	err = s.Retry(ctx, "submission", func(ctx context.Context) error {
		id := models.GroupKey(projectID, selectionID)
		doc, err := s.Submissions.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			doc = &models.SubmissionDoc{ID: id, ProjectID: projectID, SelectionID: selectionID}
		} else if err != nil {
			return err
		}
		now := s.Clock()
		entry.SubmittedAt = now
		doc.Submissions = append(doc.Submissions, entry)
		models.RecomputeSubmissionStats(doc)
		doc.UpdatedAt = now
		return s.Submissions.Save(ctx, doc)
	})
	if err != nil {
		return nil, s.Observe("submission.add", err)
	}
	s.Log.Info("submission added",
		zap.String("project_id", projectID),
		zap.String("selection_id", selectionID),
		zap.String("submission_id", entry.SubmissionID),
		zap.Int("files", len(files)),
	)

	recipients := []string{p.RepresentativeID}
	for _, m := range sel.GroupMembers {
		if m != submitter {
			recipients = append(recipients, m)
		}
	}
	s.Notifier.Dispatch(ctx, notify.Event{
		Type:       models.NotifySubmission,
		Title:      "New submission",
		Message:    fmt.Sprintf("%s submitted work for %q.", submitter, p.Title),
		Related:    models.RelatedEntity{Type: "submission", ID: projectID, SecondaryID: selectionID},
		Recipients: recipients,
		SenderID:   submitter,
	})
	return &entry, s.Observe("submission.add", nil)
}

// Remove deletes one submission and releases its files.
func (s *Service) Remove(ctx context.Context, projectID, selectionID, submissionID string) error {
	var removed models.SubmissionEntry
	err := s.Retry(ctx, "submission", func(ctx context.Context) error {
		doc, err := s.Submissions.Get(ctx, models.GroupKey(projectID, selectionID))
		if err != nil {
			return kit.NotFound(err, "submission")
		}
		i := -1
		for j := range doc.Submissions {
			if doc.Submissions[j].SubmissionID == submissionID {
				i = j
				break
			}
		}
		if i < 0 {
			return apperr.NotFound("submission")
		}
		removed = doc.Submissions[i]
		doc.Submissions = append(doc.Submissions[:i], doc.Submissions[i+1:]...)
		models.RecomputeSubmissionStats(doc)
		doc.UpdatedAt = s.Clock()
		return s.Submissions.Save(ctx, doc)
	})
	if err != nil {
		return s.Observe("submission.remove", err)
	}

	if s.Files != nil && len(removed.Files) > 0 {
		fctx, cancel := timeouts.WithTimeout(context.WithoutCancel(ctx), timeouts.Long(), s.Log, "release submission files")
		defer cancel()
		for _, url := range removed.Files {
			if err := s.Files.Delete(fctx, url); err != nil {
				s.Log.Warn("file delete failed", zap.String("submission_id", submissionID), zap.String("url", url), zap.Error(err))
			}
		}
	}
	s.Log.Info("submission removed",
		zap.String("project_id", projectID),
		zap.String("selection_id", selectionID),
		zap.String("submission_id", submissionID),
	)
	return s.Observe("submission.remove", nil)
}

// Get returns the group's submission document.
func (s *Service) Get(ctx context.Context, projectID, selectionID string) (*models.SubmissionDoc, error) {
	doc, err := s.Submissions.Get(ctx, models.GroupKey(projectID, selectionID))
	if err != nil {
		return nil, kit.NotFound(err, "submission")
	}
	return doc, nil
}

func (s *Service) group(ctx context.Context, projectID, selectionID string) (*models.Selection, error) {
	doc, err := s.Selections.Get(ctx, projectID)
	if err != nil {
		return nil, kit.NotFound(err, "group")
	}
	i := doc.Find(selectionID)
	if i < 0 {
		return nil, apperr.NotFound("group")
	}
	return &doc.Selections[i], nil
}
