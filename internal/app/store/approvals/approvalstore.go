package approvalstore

import (
	"context"

	"github.com/dalemusser/collabhub/internal/app/store/docstore"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store persists one approval ledger per project, keyed by project id.
type Store struct {
	*docstore.Store[models.ApprovalLedger, *models.ApprovalLedger]
}

func New(db *mongo.Database) *Store {
	return &Store{Store: docstore.New[models.ApprovalLedger](db, "approvals")}
}

// ProjectIDsApprovedFor returns the ids of projects that at least one
// teacher from the folded university has approved.
func (s *Store) ProjectIDsApprovedFor(ctx context.Context, universityCI string) ([]string, error) {
	raw, err := s.C.Distinct(ctx, "_id", bson.M{
		"entries": bson.M{"$elemMatch": bson.M{
			"university_ci": universityCI,
			"status":        models.ApprovalApproved,
		}},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
