package workers

import (
	"context"

	"minerva/internal/adapters/config"
	"minerva/internal/domain/research"
	researchsvc "minerva/internal/services/research"
	"minerva/pkg/errors"
)

// ResearchNotifier receives terminal research outcomes. Implementations must
// not block: delivery happens inline on the worker loop.
type ResearchNotifier interface {
	ResearchFinished(ctx context.Context, res *research.Research, success bool)
}

// ExecutionWorker drains the pending research queue: each run lists up to a
// batch of pending records and executes them one by one. Execution outcomes
// land in the research entities themselves, so a failed research never stops
// the batch. Research with an unknown workflow type stays pending and is
// retried next run; registering the missing executor is the fix, not a state
// transition.
type ExecutionWorker struct {
	*BaseWorker
	service  *researchsvc.Service
	batch    int
	notifier ResearchNotifier
}

// NewExecutionWorker creates the pending-research poller. notifier may be
// nil, disabling outcome notifications.
func NewExecutionWorker(cfg config.WorkerConfig, service *researchsvc.Service, notifier ResearchNotifier) *ExecutionWorker {
	batch := cfg.ExecutionBatch
	if batch <= 0 {
		batch = 5
	}

	return &ExecutionWorker{
		BaseWorker: NewBaseWorker("research_execution", cfg.ExecutionInterval, cfg.ExecutionEnabled),
		service:    service,
		batch:      batch,
		notifier:   notifier,
	}
}

// Run executes one polling iteration.
func (w *ExecutionWorker) Run(ctx context.Context) error {
	pending, err := w.service.ListPending(ctx, w.batch)
	if err != nil {
		return errors.Wrap(err, "list pending research")
	}
	if len(pending) == 0 {
		return nil
	}

	w.Log().Infow("Executing pending research batch", "count", len(pending))

	for _, res := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		executed, success, err := w.service.Execute(ctx, res.ID, nil)
		if err != nil {
			// Pre-execution failure: the research is still pending and will
			// be picked up again on the next run.
			w.Log().Warnw("Research execution not started",
				"research_id", res.ID,
				"workflow", res.WorkflowType,
				"error", err,
			)
			continue
		}

		w.Log().Infow("Research executed",
			"research_id", executed.ID,
			"symbol", executed.StockSymbol,
			"status", executed.Status,
		)

		if w.notifier != nil {
			w.notifier.ResearchFinished(ctx, executed, success)
		}
	}

	return nil
}
