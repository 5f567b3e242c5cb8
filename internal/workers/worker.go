package workers

import (
	"context"
	"sync"
	"time"

	"minerva/pkg/logger"
)

// Worker is one background task driven by the scheduler.
type Worker interface {
	// Name returns the unique identifier for this worker.
	Name() string

	// Run executes one iteration of work and returns. The scheduler calls
	// it repeatedly based on Interval().
	Run(ctx context.Context) error

	// Interval returns how often this worker should run.
	Interval() time.Duration

	// Enabled reports whether this worker is active.
	Enabled() bool
}

// RunStats summarizes a worker's execution history.
type RunStats struct {
	LastRun   time.Time
	LastError error
	Runs      int64
	Errors    int64
}

// BaseWorker carries the identity, cadence and run accounting shared by all
// workers. Concrete workers embed it and implement Run.
type BaseWorker struct {
	name     string
	interval time.Duration
	enabled  bool
	log      *logger.Logger

	mu    sync.RWMutex
	stats RunStats
}

// NewBaseWorker creates the embedded worker base.
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

// Name returns the worker name.
func (w *BaseWorker) Name() string {
	return w.name
}

// Interval returns the run interval.
func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

// Enabled reports whether the worker is enabled.
func (w *BaseWorker) Enabled() bool {
	return w.enabled
}

// Log returns the worker-scoped logger.
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// Stats returns a snapshot of the worker's run accounting.
func (w *BaseWorker) Stats() RunStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// RecordRun records a successful iteration.
func (w *BaseWorker) RecordRun() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.LastRun = time.Now()
	w.stats.Runs++
	w.stats.LastError = nil
}

// RecordError records a failed iteration.
func (w *BaseWorker) RecordError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.LastRun = time.Now()
	w.stats.Runs++
	w.stats.Errors++
	w.stats.LastError = err
}
