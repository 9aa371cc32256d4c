// Package docstore implements compare-and-swap persistence for versioned
// aggregate documents. Each concrete store embeds a Store and adds its own
// queries.
package docstore

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Doc constrains T so that *T is a versioned document.
type Doc[T any] interface {
	*T
	models.Versioned
}

// Store persists documents of type T in one collection.
type Store[T any, PT Doc[T]] struct {
	C *mongo.Collection
}

// New returns a Store over db.Collection(name).
func New[T any, PT Doc[T]](db *mongo.Database, name string) *Store[T, PT] {
	return &Store[T, PT]{C: db.Collection(name)}
}

// Get loads the document with the given _id.
func (s *Store[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	var doc T
	if err := s.C.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Save writes doc if nobody else has written it since it was read.
//
// Version 0 inserts with version 1; a duplicate _id means another writer
// inserted first and is reported as repository.ErrConflict. Otherwise the
// replace is filtered on the version that was read and the version is
// bumped. On success the new version is set on doc.
func (s *Store[T, PT]) Save(ctx context.Context, doc PT) error {
	v := doc.DocVersion()
	if v == 0 {
		doc.SetDocVersion(1)
		if _, err := s.C.InsertOne(ctx, doc); err != nil {
			doc.SetDocVersion(0)
			if wafflemongo.IsDup(err) {
				if isIDDup(err) {
					return repository.ErrConflict
				}
				return repository.ErrDuplicate
			}
			return err
		}
		return nil
	}

	doc.SetDocVersion(v + 1)
	res, err := s.C.ReplaceOne(ctx, bson.M{"_id": doc.DocID(), "version": v}, doc)
	if err != nil {
		doc.SetDocVersion(v)
		if wafflemongo.IsDup(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		doc.SetDocVersion(v)
		return repository.ErrConflict
	}
	return nil
}

// Delete removes the document. Missing documents are not an error.
func (s *Store[T, PT]) Delete(ctx context.Context, id string) error {
	_, err := s.C.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Find returns every document matching filter.
func (s *Store[T, PT]) Find(ctx context.Context, filter any) ([]T, error) {
	cur, err := s.C.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMany removes every document matching filter.
func (s *Store[T, PT]) DeleteMany(ctx context.Context, filter any) (int64, error) {
	res, err := s.C.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// isIDDup reports whether a duplicate-key error was raised by the _id
// index rather than a secondary unique index.
func isIDDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 && containsIDIndex(e.Message) {
				return true
			}
		}
		return false
	}
	return containsIDIndex(err.Error())
}

func containsIDIndex(msg string) bool {
	return strings.Contains(msg, "index: _id_")
}
