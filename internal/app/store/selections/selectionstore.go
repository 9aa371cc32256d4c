package selectionstore

import (
	"context"

	"github.com/dalemusser/collabhub/internal/app/store/docstore"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists one selection document per project, keyed by project id.
type Store struct {
	*docstore.Store[models.SelectionDoc, *models.SelectionDoc]
}

func New(db *mongo.Database) *Store {
	return &Store{Store: docstore.New[models.SelectionDoc](db, "selections")}
}

// FindBySelectionID returns the document holding the selection. An id
// present in more than one project is repository.ErrAmbiguous.
func (s *Store) FindBySelectionID(ctx context.Context, selectionID string) (*models.SelectionDoc, error) {
	cur, err := s.C.Find(ctx, bson.M{"selections.selection_id": selectionID}, options.Find().SetLimit(2))
	if err != nil {
		return nil, err
	}
	var docs []models.SelectionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	switch len(docs) {
	case 0:
		return nil, repository.ErrNotFound
	case 1:
		return &docs[0], nil
	}
	return nil, repository.ErrAmbiguous
}
