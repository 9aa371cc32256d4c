package groups

import (
	"context"

	"github.com/dalemusser/collabhub/internal/domain/models"
)

// SelectionStore persists one selection document per project.
type SelectionStore interface {
	Get(ctx context.Context, projectID string) (*models.SelectionDoc, error)
	Save(ctx context.Context, d *models.SelectionDoc) error
	Delete(ctx context.Context, projectID string) error
	FindBySelectionID(ctx context.Context, selectionID string) (*models.SelectionDoc, error)
}

type ProjectReader interface {
	Get(ctx context.Context, id string) (*models.Project, error)
}

// SupervisionReader finds the approved supervisors to notify.
type SupervisionReader interface {
	Get(ctx context.Context, projectID string) (*models.SupervisionLedger, error)
}
