package reviews

import (
	"context"

	"github.com/dalemusser/collabhub/internal/domain/models"
)

type ReviewStore interface {
	Get(ctx context.Context, id string) (*models.ReviewDoc, error)
	Save(ctx context.Context, d *models.ReviewDoc) error
	Delete(ctx context.Context, id string) error
}

// StudentStore persists lifetime rating aggregates keyed by email.
type StudentStore interface {
	Get(ctx context.Context, email string) (*models.StudentRating, error)
	Save(ctx context.Context, r *models.StudentRating) error
	Delete(ctx context.Context, email string) error
}

type ProjectReader interface {
	Get(ctx context.Context, id string) (*models.Project, error)
}

type SelectionReader interface {
	Get(ctx context.Context, projectID string) (*models.SelectionDoc, error)
}
