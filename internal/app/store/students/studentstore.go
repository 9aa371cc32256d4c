package studentstore

import (
	"github.com/dalemusser/collabhub/internal/app/store/docstore"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store persists student rating aggregates keyed by folded email.
type Store struct {
	*docstore.Store[models.StudentRating, *models.StudentRating]
}

func New(db *mongo.Database) *Store {
	return &Store{Store: docstore.New[models.StudentRating](db, "students")}
}
