package kit

import (
	"context"

	"github.com/dalemusser/collabhub/internal/app/system/txn"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Transactor runs a unit of work atomically. txn.Runner and
// txn.Compensating implement it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// VersionedPtr constrains PT to a pointer to a versioned document T.
type VersionedPtr[T any] interface {
	*T
	models.Versioned
}

// CASStore is the write side shared by every aggregate store.
type CASStore[PT any] interface {
	Save(ctx context.Context, doc PT) error
	Delete(ctx context.Context, id string) error
}

// SaveUndoable saves doc and registers a compensating step with the
// enclosing unit. before is the state read prior to mutation, or nil if
// the document did not exist; it must not share memory with doc.
func SaveUndoable[T any, PT VersionedPtr[T]](ctx context.Context, store CASStore[PT], doc PT, before *T) error {
	if err := store.Save(ctx, doc); err != nil {
		return err
	}
	id, v := doc.DocID(), doc.DocVersion()
	if before == nil {
		txn.OnRollback(ctx, func(ctx context.Context) error {
			return store.Delete(ctx, id)
		})
		return nil
	}
	prev := *before
	txn.OnRollback(ctx, func(ctx context.Context) error {
		PT(&prev).SetDocVersion(v)
		return store.Save(ctx, &prev)
	})
	return nil
}

// DeleteUndoable deletes the stored document doc and registers a step
// that re-inserts it.
func DeleteUndoable[T any, PT VersionedPtr[T]](ctx context.Context, store CASStore[PT], doc *T) error {
	id := PT(doc).DocID()
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	saved := *doc
	txn.OnRollback(ctx, func(ctx context.Context) error {
		PT(&saved).SetDocVersion(0)
		return store.Save(ctx, &saved)
	})
	return nil
}

// Clone deep-copies a document through BSON.
func Clone[T any](v *T) (*T, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
