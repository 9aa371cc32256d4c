// internal/app/system/workers/lockexpiry.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// LockExpirer relocks projects whose edit window has closed.
type LockExpirer interface {
	ExpireLocks(ctx context.Context, now time.Time) (int, error)
}

// LockExpiry is a background worker that sweeps expired edit windows so
// projects relock even when nobody reads them.
type LockExpiry struct {
	projects LockExpirer
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLockExpiry creates the worker. interval is how often to sweep.
func NewLockExpiry(projects LockExpirer, logger *zap.Logger, interval time.Duration) *LockExpiry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockExpiry{
		projects: projects,
		log:      logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (w *LockExpiry) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("lock expiry worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *LockExpiry) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("lock expiry worker stopped")
}

func (w *LockExpiry) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one pass. Exported for the maintenance CLI.
func (w *LockExpiry) Sweep() int {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Long(), w.log, "lock expiry sweep")
	defer cancel()

	n, err := w.projects.ExpireLocks(ctx, w.now().UTC())
	if err != nil {
		w.log.Error("lock expiry sweep failed", zap.Error(err))
		return n
	}
	if n > 0 {
		w.log.Info("relocked projects", zap.Int("count", n))
	}
	return n
}
