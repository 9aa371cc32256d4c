// Package memstore provides in-memory stores with the same compare-and-swap
// semantics as the Mongo stores, for service tests that must not depend on
// a running server. Documents are copied through BSON on every read and
// write so callers never share memory with the store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.mongodb.org/mongo-driver/bson"
)

type doc[T any] interface {
	*T
	models.Versioned
}

type entry struct {
	raw     []byte
	version int64
}

// Table is one collection of versioned documents.
type Table[T any, PT doc[T]] struct {
	mu   sync.Mutex
	docs map[string]entry

	// uniqueKey, when set, is enforced across documents like a unique index.
	uniqueKey func(PT) string

	// BeforeSave, when set, runs under the table lock before every write.
	// A non-nil error aborts the write and is returned from Save.
	BeforeSave func(id string) error

	// BeforeDelete is the Delete counterpart of BeforeSave.
	BeforeDelete func(id string) error
}

func newTable[T any, PT doc[T]]() *Table[T, PT] {
	return &Table[T, PT]{docs: make(map[string]entry)}
}

// Get returns a copy of the document or repository.ErrNotFound.
func (t *Table[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return decode[T](e.raw)
}

// Save mirrors docstore.Store.Save.
func (t *Table[T, PT]) Save(ctx context.Context, d PT) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	id, v := d.DocID(), d.DocVersion()
	if t.BeforeSave != nil {
		if err := t.BeforeSave(id); err != nil {
			return err
		}
	}

	cur, exists := t.docs[id]
	switch {
	case v == 0 && exists:
		return repository.ErrConflict
	case v != 0 && (!exists || cur.version != v):
		return repository.ErrConflict
	}

	if t.uniqueKey != nil {
		key := t.uniqueKey(d)
		for otherID, e := range t.docs {
			if otherID == id {
				continue
			}
			other, err := decode[T](e.raw)
			if err != nil {
				return err
			}
			if t.uniqueKey(PT(other)) == key {
				return repository.ErrDuplicate
			}
		}
	}

	d.SetDocVersion(v + 1)
	raw, err := bson.Marshal(d)
	if err != nil {
		d.SetDocVersion(v)
		return err
	}
	t.docs[id] = entry{raw: raw, version: v + 1}
	return nil
}

// Delete removes the document. Missing documents are not an error.
func (t *Table[T, PT]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.BeforeDelete != nil {
		if err := t.BeforeDelete(id); err != nil {
			return err
		}
	}
	delete(t.docs, id)
	return nil
}

// Len returns the number of stored documents.
func (t *Table[T, PT]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.docs)
}

// Where returns copies of the documents matching keep, ordered by id.
func (t *Table[T, PT]) Where(keep func(*T) bool) []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.docs))
	for id := range t.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []T
	for _, id := range ids {
		d, err := decode[T](t.docs[id].raw)
		if err != nil {
			continue
		}
		if keep == nil || keep(d) {
			out = append(out, *d)
		}
	}
	return out
}

// DeleteWhere removes the documents matching drop.
func (t *Table[T, PT]) DeleteWhere(drop func(*T) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for id, e := range t.docs {
		d, err := decode[T](e.raw)
		if err == nil && drop(d) {
			delete(t.docs, id)
			n++
		}
	}
	return n
}

func decode[T any](raw []byte) (*T, error) {
	var d T
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
