// Package txn runs multi-document units of work atomically.
//
// On a replica set (or sharded cluster) the unit runs inside a MongoDB
// transaction and the driver retries transient failures. Standalone
// servers cannot run transactions; there the unit runs as a saga: each
// completed write registers an undo step with OnRollback, and the steps
// are replayed in reverse order when the unit fails. Sagas that name
// overlapping lock keys (WithLockKeys) run one at a time within the
// process, so one unit's undo never races another unit's writes to the
// same documents. The locks are per process only.
package txn

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// UndoFunc reverts one completed write.
type UndoFunc func(ctx context.Context) error

type journalKey struct{}

type journal struct {
	mu    sync.Mutex
	steps []UndoFunc
}

type lockKeysKey struct{}

// WithLockKeys names the aggregates a compensating unit writes. Units with
// overlapping keys are serialized; disjoint units run concurrently. A unit
// started without keys excludes every other unit. Transactions ignore the
// keys.
func WithLockKeys(ctx context.Context, keys ...string) context.Context {
	return context.WithValue(ctx, lockKeysKey{}, keys)
}

var sagaLocks = &keyedLocks{held: make(map[string]*keyLock)}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

type keyedLocks struct {
	all  sync.RWMutex
	mu   sync.Mutex
	held map[string]*keyLock
}

// acquire locks keys in sorted order and returns the release func.
func (k *keyedLocks) acquire(keys []string) func() {
	keys = dedupeSorted(keys)
	if len(keys) == 0 {
		k.all.Lock()
		return k.all.Unlock
	}
	k.all.RLock()
	got := make([]*keyLock, 0, len(keys))
	for _, key := range keys {
		k.mu.Lock()
		l := k.held[key]
		if l == nil {
			l = &keyLock{}
			k.held[key] = l
		}
		l.refs++
		k.mu.Unlock()
		l.mu.Lock()
		got = append(got, l)
	}
	return func() {
		for i := len(got) - 1; i >= 0; i-- {
			got[i].mu.Unlock()
			k.mu.Lock()
			if got[i].refs--; got[i].refs == 0 {
				delete(k.held, keys[i])
			}
			k.mu.Unlock()
		}
		k.all.RUnlock()
	}
}

func dedupeSorted(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	n := 0
	for i, key := range out {
		if i == 0 || key != out[n-1] {
			out[n] = key
			n++
		}
	}
	return out[:n]
}

// Run executes fn atomically against db.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Warn("sessions unsupported; running unit with compensation", zap.Error(err))
			return RunCompensating(ctx, log, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		log.Warn("transactions unsupported; running unit with compensation", zap.Error(err))
		return RunCompensating(ctx, log, fn)
	}
	return err
}

// RunCompensating executes fn with an undo journal in ctx. If fn fails,
// every registered undo step runs in reverse order. Undo failures are
// logged; the original error is returned.
func RunCompensating(ctx context.Context, log *zap.Logger, fn func(ctx context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}
	// Nested units join the enclosing one.
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	keys, _ := ctx.Value(lockKeysKey{}).([]string)
	release := sagaLocks.acquire(keys)
	defer release()

	j := &journal{}
	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err == nil {
		return nil
	}

	j.mu.Lock()
	steps := j.steps
	j.steps = nil
	j.mu.Unlock()

	// Undo must run even if the caller's context is already done.
	undoCtx := context.WithoutCancel(ctx)
	for i := len(steps) - 1; i >= 0; i-- {
		if uerr := steps[i](undoCtx); uerr != nil {
			log.Error("compensation step failed", zap.Int("step", i), zap.Error(uerr))
		}
	}
	return err
}

// Runner runs units of work against one database.
type Runner struct {
	db  *mongo.Database
	log *zap.Logger
}

func NewRunner(db *mongo.Database, log *zap.Logger) *Runner {
	return &Runner{db: db, log: log}
}

// InTx runs fn with Run.
func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.db, r.log, fn)
}

// Compensating always runs units as sagas. It backs stores that cannot
// take part in a server transaction.
type Compensating struct {
	Log *zap.Logger
}

// InTx runs fn with RunCompensating.
func (c Compensating) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunCompensating(ctx, c.Log, fn)
}

// OnRollback registers undo for the current compensating unit. Inside a
// real transaction (or outside any unit) it is a no-op.
func OnRollback(ctx context.Context, undo UndoFunc) {
	j, ok := ctx.Value(journalKey{}).(*journal)
	if !ok {
		return
	}
	j.mu.Lock()
	j.steps = append(j.steps, undo)
	j.mu.Unlock()
}

// IsNotSupported reports whether err indicates the deployment cannot run
// sessions or transactions (standalone mongod, some managed services).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, ..., OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
