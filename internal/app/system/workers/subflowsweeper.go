// internal/app/system/workers/subflowsweeper.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/filescout/internal/app/system/metrics"
	"go.uber.org/zap"
)

// SubflowResetter returns admin sessions stuck in a sub-flow to the
// authenticated phase.
type SubflowResetter interface {
	ResetStaleSubflows(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SubflowSweeper is a background worker that abandons admin sub-flows left
// idle longer than a TTL, dropping their staged phone and password hash.
type SubflowSweeper struct {
	sessions SubflowResetter
	log      *zap.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSubflowSweeper creates a sweeper.
//
// Parameters:
//   - sessions: the session store
//   - logger: zap logger for logging
//   - m: metrics, may be nil
//   - interval: how often to sweep (e.g., 1 minute)
//   - ttl: how long a sub-flow may sit idle (e.g., 15 minutes)
func NewSubflowSweeper(sessions SubflowResetter, logger *zap.Logger, m *metrics.Metrics, interval, ttl time.Duration) *SubflowSweeper {
	return &SubflowSweeper{
		sessions: sessions,
		log:      logger,
		metrics:  m,
		interval: interval,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *SubflowSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("subflow sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("ttl", w.ttl))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *SubflowSweeper) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("subflow sweeper stopped")
}

func (w *SubflowSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep(context.Background())
		}
	}
}

// Sweep runs one pass and returns the number of sessions reset.
func (w *SubflowSweeper) Sweep(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	count, err := w.sessions.ResetStaleSubflows(ctx, w.ttl)
	if err != nil {
		w.log.Error("failed to reset stale sub-flows", zap.Error(err))
		return 0
	}

	w.metrics.RecordSubflowsReset(count)
	if count > 0 {
		w.log.Info("reset stale admin sub-flows", zap.Int64("count", count))
	}
	return count
}
