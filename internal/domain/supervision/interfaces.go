package supervision

import (
	"context"

	"github.com/dalemusser/collabhub/internal/domain/models"
)

// LedgerStore persists supervision ledgers, one per project.
type LedgerStore interface {
	Get(ctx context.Context, projectID string) (*models.SupervisionLedger, error)
	Save(ctx context.Context, l *models.SupervisionLedger) error
	GetMany(ctx context.Context, projectIDs []string) ([]models.SupervisionLedger, error)
}

type ProjectReader interface {
	Get(ctx context.Context, id string) (*models.Project, error)
}
