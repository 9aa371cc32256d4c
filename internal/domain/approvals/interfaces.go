package approvals

import (
	"context"

	"github.com/dalemusser/collabhub/internal/domain/models"
)

// LedgerStore persists approval ledgers, one per project.
type LedgerStore interface {
	Get(ctx context.Context, projectID string) (*models.ApprovalLedger, error)
	Save(ctx context.Context, l *models.ApprovalLedger) error
	ProjectIDsApprovedFor(ctx context.Context, universityCI string) ([]string, error)
}

// ProjectReader resolves the project an approval refers to.
type ProjectReader interface {
	Get(ctx context.Context, id string) (*models.Project, error)
}
