package projects

import (
	"context"
	"errors"

	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.uber.org/zap"
)

// DeleteResult reports the file cleanup that followed a delete.
type DeleteResult struct {
	FilesDeleted int      `json:"files_deleted"`
	FilesFailed  []string `json:"files_failed,omitempty"`
}

// Delete removes the project together with its approval, supervision,
// selection, submission and review documents in one unit of work. After
// the unit commits, every attachment and submitted file is released
// through the file store; individual failures are logged and reported
// but do not fail the delete.
func (s *Service) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	var files []string
	err := s.Tx.InTx(txn.WithLockKeys(ctx, "project:"+id), func(ctx context.Context) error {
		files = nil
		p, err := s.Projects.Get(ctx, id)
		if err != nil {
			return kit.NotFound(err, "project")
		}
		files = append(files, p.Attachments...)

		if l, err := s.Approvals.Get(ctx, id); err == nil {
			if err := kit.DeleteUndoable[models.ApprovalLedger, *models.ApprovalLedger](ctx, s.Approvals, l); err != nil {
				return err
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if l, err := s.Supervisions.Get(ctx, id); err == nil {
			if err := kit.DeleteUndoable[models.SupervisionLedger, *models.SupervisionLedger](ctx, s.Supervisions, l); err != nil {
				return err
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if d, err := s.Selections.Get(ctx, id); err == nil {
			if err := kit.DeleteUndoable[models.SelectionDoc, *models.SelectionDoc](ctx, s.Selections, d); err != nil {
				return err
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		subs, err := s.Submissions.ListByProject(ctx, id)
		if err != nil {
			return err
		}
		for i := range subs {
			for _, e := range subs[i].Submissions {
				files = append(files, e.Files...)
			}
			if err := kit.DeleteUndoable[models.SubmissionDoc, *models.SubmissionDoc](ctx, s.Submissions, &subs[i]); err != nil {
				return err
			}
		}

		revs, err := s.Reviews.ListByProject(ctx, id)
		if err != nil {
			return err
		}
		for i := range revs {
			if err := kit.DeleteUndoable[models.ReviewDoc, *models.ReviewDoc](ctx, s.Reviews, &revs[i]); err != nil {
				return err
			}
		}

		return kit.DeleteUndoable[models.Project, *models.Project](ctx, s.Projects, p)
	})
	if err != nil {
		return nil, s.Observe("project.delete", err)
	}

	res := s.releaseFiles(ctx, id, files)
	s.Log.Info("project deleted",
		zap.String("project_id", id),
		zap.Int("files_deleted", res.FilesDeleted),
		zap.Int("files_failed", len(res.FilesFailed)),
	)
	return res, s.Observe("project.delete", nil)
}

func (s *Service) releaseFiles(ctx context.Context, projectID string, files []string) *DeleteResult {
	res := &DeleteResult{}
	if s.Files == nil || len(files) == 0 {
		return res
	}

	ctx, cancel := timeouts.WithTimeout(context.WithoutCancel(ctx), timeouts.Long(), s.Log, "release project files")
	defer cancel()

	for _, url := range files {
		if err := s.Files.Delete(ctx, url); err != nil {
			s.Log.Warn("file delete failed",
				zap.String("project_id", projectID),
				zap.String("url", url),
				zap.Error(err),
			)
			res.FilesFailed = append(res.FilesFailed, url)
			continue
		}
		res.FilesDeleted++
	}
	return res
}
