package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/domain"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/repository"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
)

// restorer re-arms expiry timers for holds that lost theirs, typically
// across a process restart.
type restorer interface {
	RestoreHold(hold *domain.Hold)
	HasTimer(holdID string) bool
}

// dateSource lists the dates worth sweeping
type dateSource interface {
	Dates() []string
}

// ReconcileWorker periodically sweeps the hold store and re-schedules
// expiry timers that exist in the store but not in this process. Without
// it, holds created before a restart would sit in Redis until TTL
// eviction with no expiry notification ever sent.
type ReconcileWorker struct {
	holds    repository.HoldRepository
	restorer restorer
	dates    dateSource
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewReconcileWorker creates a new ReconcileWorker
func NewReconcileWorker(
	holds repository.HoldRepository,
	r restorer,
	dates dateSource,
	interval time.Duration,
	timeout time.Duration,
) *ReconcileWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ReconcileWorker{
		holds:    holds,
		restorer: r,
		dates:    dates,
		interval: interval,
		timeout:  timeout,
		log:      logger.Get().With(zap.String("component", "reconcile_worker")),
	}
}

// Start launches the sweep loop
func (w *ReconcileWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})

	w.wg.Add(1)
	go w.run()

	w.log.Info("reconcile worker started", zap.Duration("interval", w.interval))
}

// Stop shuts the sweep loop down
func (w *ReconcileWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	w.log.Info("reconcile worker stopped")
}

func (w *ReconcileWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Sweep once at startup so restored holds get timers immediately
	w.Sweep()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep restores missing expiry timers for every subscribed date
func (w *ReconcileWorker) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	restored := 0
	for _, date := range w.dates.Dates() {
		holds, err := w.holds.ActiveHolds(ctx, date)
		if err != nil {
			w.log.Warn("sweep failed for date",
				zap.String("date", date),
				zap.Error(err),
			)
			continue
		}

		for _, hold := range holds {
			if w.restorer.HasTimer(hold.ID) {
				continue
			}
			w.restorer.RestoreHold(hold)
			restored++
		}
	}

	if restored > 0 {
		w.log.Info("restored expiry timers", zap.Int("count", restored))
	}
}
