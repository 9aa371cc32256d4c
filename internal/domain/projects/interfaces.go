package projects

import (
	"context"
	"time"

	"github.com/dalemusser/collabhub/internal/domain/models"
)

// Store provides persistence for projects. Save is a compare-and-swap
// write and reports repository.ErrDuplicate for a taken title.
type Store interface {
	Get(ctx context.Context, id string) (*models.Project, error)
	Save(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id string) error
	ListExpiredLocks(ctx context.Context, now time.Time) ([]models.Project, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Project, error)
}

// ApprovalStore is the part of the approval ledger the registry touches:
// visibility listing and the delete cascade.
type ApprovalStore interface {
	Get(ctx context.Context, projectID string) (*models.ApprovalLedger, error)
	Save(ctx context.Context, l *models.ApprovalLedger) error
	Delete(ctx context.Context, projectID string) error
	ProjectIDsApprovedFor(ctx context.Context, universityCI string) ([]string, error)
}

type SupervisionStore interface {
	Get(ctx context.Context, projectID string) (*models.SupervisionLedger, error)
	Save(ctx context.Context, l *models.SupervisionLedger) error
	Delete(ctx context.Context, projectID string) error
}

type SelectionStore interface {
	Get(ctx context.Context, projectID string) (*models.SelectionDoc, error)
	Save(ctx context.Context, d *models.SelectionDoc) error
	Delete(ctx context.Context, projectID string) error
}

type SubmissionStore interface {
	ListByProject(ctx context.Context, projectID string) ([]models.SubmissionDoc, error)
	Save(ctx context.Context, d *models.SubmissionDoc) error
	Delete(ctx context.Context, id string) error
}

type ReviewStore interface {
	ListByProject(ctx context.Context, projectID string) ([]models.ReviewDoc, error)
	Save(ctx context.Context, d *models.ReviewDoc) error
	Delete(ctx context.Context, id string) error
}

// FileStore releases stored attachments.
type FileStore interface {
	Delete(ctx context.Context, url string) error
}
