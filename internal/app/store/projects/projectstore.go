package projectstore

import (
	"context"
	"time"

	"github.com/dalemusser/collabhub/internal/app/store/docstore"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists projects. Save reports repository.ErrDuplicate when the
// folded title collides with another project.
type Store struct {
	*docstore.Store[models.Project, *models.Project]
}

func New(db *mongo.Database) *Store {
	return &Store{Store: docstore.New[models.Project](db, "projects")}
}

// ListExpiredLocks returns unlocked projects whose window closed before now.
func (s *Store) ListExpiredLocks(ctx context.Context, now time.Time) ([]models.Project, error) {
	return s.Find(ctx, bson.M{
		"lock.state":          models.LockUnlocked,
		"lock.unlocked_until": bson.M{"$lt": now},
	})
}

// ListByIDs returns the projects with the given ids, ordered by title.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.C.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "title_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
