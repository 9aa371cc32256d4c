package supervisionstore

import (
	"context"

	"github.com/dalemusser/collabhub/internal/app/store/docstore"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store persists one supervision ledger per project, keyed by project id.
type Store struct {
	*docstore.Store[models.SupervisionLedger, *models.SupervisionLedger]
}

func New(db *mongo.Database) *Store {
	return &Store{Store: docstore.New[models.SupervisionLedger](db, "supervisions")}
}

// GetMany returns the ledgers that exist for ids. Missing ids are omitted.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]models.SupervisionLedger, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}
