package reviewstore

import (
	"context"

	"github.com/dalemusser/collabhub/internal/app/store/docstore"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store persists one review document per group, keyed by models.GroupKey.
type Store struct {
	*docstore.Store[models.ReviewDoc, *models.ReviewDoc]
}

func New(db *mongo.Database) *Store {
	return &Store{Store: docstore.New[models.ReviewDoc](db, "reviews")}
}

// ListByProject returns every group's review document for the project.
func (s *Store) ListByProject(ctx context.Context, projectID string) ([]models.ReviewDoc, error) {
	return s.Find(ctx, bson.M{"project_id": projectID})
}

