package bootstrap

import (
	"context"
	"sync"
	"time"

	pgclient "minerva/internal/adapters/postgres"
	redisclient "minerva/internal/adapters/redis"
	"minerva/internal/api"
	"minerva/internal/workers"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		// Generous: an in-flight agentic research may hold an LLM tool loop
		// open across several turns, and the worker drain waits for it.
		shutdownTimeout: 150 * time.Second,
	}
}

// Shutdown performs coordinated cleanup of all components in the correct order
// 1. No new requests accepted
// 2. Workers finish cleanly (in-flight research runs to a terminal state)
// 3. Logs and errors flushed
// 4. Data store connections last (other components may need them)
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	workerScheduler *workers.Scheduler,
	pgClient *pgclient.Client,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// ========================================
	// Step 1: Stop HTTP Server (5s timeout)
	// ========================================
	log.Info("[1/6] Stopping HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
	defer httpCancel()

	if err := httpServer.Shutdown(httpCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	} else {
		log.Info("✓ HTTP server stopped")
	}

	// ========================================
	// Step 2: Stop Background Workers
	// ========================================
	log.Info("[2/6] Stopping background workers...")
	if workerScheduler != nil && workerScheduler.IsRunning() {
		if err := workerScheduler.Stop(); err != nil {
			log.Error("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	// ========================================
	// Step 3: Wait for Server Goroutines
	// ========================================
	log.Info("[3/6] Waiting for goroutines...")
	l.waitForGoroutines(wg, 5*time.Second, log)

	// ========================================
	// Step 4: Flush Error Tracker
	// ========================================
	log.Info("[4/6] Flushing error tracker...")
	l.flushErrorTracker(errorTracker, shutdownCtx, log)

	// ========================================
	// Step 5: Sync Logs
	// ========================================
	log.Info("[5/6] Syncing logs...")
	if err := logger.Sync(); err != nil {
		log.Warn("Log sync completed with warnings")
	} else {
		log.Info("✓ Logs synced")
	}

	// ========================================
	// Step 6: Close Data Store Connections
	// LAST - other components may need them during shutdown
	// ========================================
	log.Info("[6/6] Closing data store connections...")
	l.closeDataStores(pgClient, redisClient, log)

	log.Info("✅ Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warn("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(tracker errors.Tracker, ctx context.Context, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Error("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}

// closeDataStores closes all data store connections
func (l *Lifecycle) closeDataStores(
	pgClient *pgclient.Client,
	redisClient *redisclient.Client,
	log *logger.Logger,
) {
	var storeErrors []error

	if pgClient != nil {
		if err := pgClient.Close(); err != nil {
			storeErrors = append(storeErrors, errors.Wrap(err, "postgres"))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			storeErrors = append(storeErrors, errors.Wrap(err, "redis"))
		}
	}

	if len(storeErrors) > 0 {
		log.Error("Data store close errors", "errors", storeErrors)
	} else {
		log.Info("✓ Data store connections closed")
	}
}
