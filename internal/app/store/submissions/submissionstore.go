package submissionstore

import (
	"context"

	"github.com/dalemusser/collabhub/internal/app/store/docstore"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store persists one submission document per group, keyed by
// models.GroupKey.
type Store struct {
	*docstore.Store[models.SubmissionDoc, *models.SubmissionDoc]
}

func New(db *mongo.Database) *Store {
	return &Store{Store: docstore.New[models.SubmissionDoc](db, "submissions")}
}

// ListByProject returns every group's submissions for the project.
func (s *Store) ListByProject(ctx context.Context, projectID string) ([]models.SubmissionDoc, error) {
	return s.Find(ctx, bson.M{"project_id": projectID})
}

