package research

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"minerva/internal/domain/profile"
	"minerva/internal/domain/research"
	"minerva/internal/metrics"
	"minerva/internal/workflows"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Service orchestrates the research lifecycle: creation, context injection,
// executor selection and the single execution attempt that drives a research
// from pending into a terminal state.
type Service struct {
	researches research.Repository
	profiles   profile.Repository
	executors  []workflows.Executor
	log        *logger.Logger
}

// NewService wires the orchestrator. Executors are scanned in order during
// selection. profiles may be nil; profile enrichment is then skipped.
func NewService(researches research.Repository, profiles profile.Repository, executors []workflows.Executor, log *logger.Logger) *Service {
	return &Service{
		researches: researches,
		profiles:   profiles,
		executors:  executors,
		log:        log,
	}
}

// CreateParams carries a research request.
type CreateParams struct {
	Symbol       string
	Timeframe    research.Timeframe
	WorkflowType string
	ProfileID    *uuid.UUID
	Parameters   map[string]string
}

// Create validates the request and persists a new pending research.
func (s *Service) Create(ctx context.Context, params CreateParams) (*research.Research, error) {
	res, err := research.New(params.Symbol, params.Timeframe, params.WorkflowType, params.Parameters)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	res.ProfileID = params.ProfileID

	if err := s.researches.Save(ctx, res); err != nil {
		return nil, errors.Wrap(err, "save research")
	}

	s.log.Infow("Research created",
		"research_id", res.ID,
		"symbol", res.StockSymbol,
		"workflow", res.WorkflowType,
		"timeframe", res.Timeframe,
	)

	return res, nil
}

// Get returns one research by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*research.Research, error) {
	res, err := s.researches.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get research %s", id)
	}
	return res, nil
}

// List returns all research records, newest first.
func (s *Service) List(ctx context.Context) ([]*research.Research, error) {
	return s.researches.List(ctx)
}

// ListPending returns up to limit pending research records, oldest first.
// Used by the background execution worker to drain the queue fairly.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*research.Research, error) {
	return s.researches.ListByStatus(ctx, research.StatusPending, limit)
}

// Delete removes a research.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.researches.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete research %s", id)
	}
	s.log.Infow("Research deleted", "research_id", id)
	return nil
}

// SetContext merges execution parameters into a pending research, the path
// used to attach or replace the question before execution.
func (s *Service) SetContext(ctx context.Context, id uuid.UUID, params map[string]string) (*research.Research, error) {
	res, err := s.researches.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get research %s", id)
	}

	for k, v := range params {
		res.SetParameter(k, v)
	}

	if err := s.researches.Save(ctx, res); err != nil {
		return nil, errors.Wrap(err, "save research parameters")
	}

	return res, nil
}

// SetProfile attaches a research profile to a research, or clears it when
// profileID is nil. The profile must exist.
func (s *Service) SetProfile(ctx context.Context, id uuid.UUID, profileID *uuid.UUID) (*research.Research, error) {
	res, err := s.researches.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get research %s", id)
	}

	if profileID != nil {
		if s.profiles == nil {
			return nil, errors.Wrap(errors.ErrProfileNotFound, "profile repository not configured")
		}
		if _, err := s.profiles.GetByID(ctx, *profileID); err != nil {
			return nil, errors.Wrapf(err, "get profile %s", *profileID)
		}
	}

	res.ProfileID = profileID
	res.UpdatedAt = time.Now().UTC()

	if err := s.researches.Save(ctx, res); err != nil {
		return nil, errors.Wrap(err, "save research profile")
	}

	return res, nil
}

// Execute runs one research through its workflow. Pre-execution failures
// (unknown research, no matching executor, wrong state) return an error and
// leave the research untouched. Once the in-progress transition is
// persisted, every workflow outcome is captured into the research instead:
// the returned bool reports whether the run completed successfully.
func (s *Service) Execute(ctx context.Context, id uuid.UUID, execCtx map[string]interface{}) (*research.Research, bool, error) {
	res, err := s.researches.GetByID(ctx, id)
	if err != nil {
		return nil, false, errors.Wrapf(err, "load research %s", id)
	}

	exec := s.selectExecutor(res)
	if exec == nil {
		return nil, false, errors.Wrapf(errors.ErrWorkflowNotFound, "workflow type '%s'", res.WorkflowType)
	}

	wfCtx := s.buildContext(ctx, res, execCtx)

	if err := res.Start(); err != nil {
		return nil, false, errors.Wrapf(errors.ErrInvalidInput, "research %s: %s", id, err.Error())
	}
	if err := s.researches.Save(ctx, res); err != nil {
		return nil, false, errors.Wrap(err, "persist in_progress transition")
	}
	metrics.RecordStatusTransition(string(research.StatusPending), string(research.StatusInProgress))

	started := time.Now()
	results := s.runContained(ctx, exec, res, wfCtx)
	duration := time.Since(started)

	success := results["status"] != "failed"
	if success {
		res.Complete(results)
	} else {
		res.Fail(failureMessage(results))
	}

	if err := s.researches.Save(ctx, res); err != nil {
		s.log.Errorw("Failed to persist research outcome",
			"research_id", res.ID, "status", res.Status, "error", err)
		return res, success, errors.Wrap(err, "persist research outcome")
	}

	metrics.RecordStatusTransition(string(research.StatusInProgress), string(res.Status))
	metrics.RecordResearchExecution(res.WorkflowType, duration, success)

	s.log.Infow("Research execution finished",
		"research_id", res.ID,
		"workflow", res.WorkflowType,
		"status", res.Status,
		"duration", duration,
	)

	return res, success, nil
}

// selectExecutor returns the first executor whose type matches and which
// accepts the research, nil when none does.
func (s *Service) selectExecutor(res *research.Research) workflows.Executor {
	for _, exec := range s.executors {
		if exec.WorkflowType() == res.WorkflowType && exec.Validate(res) {
			return exec
		}
	}
	return nil
}

// buildContext layers the workflow context: persisted research parameters,
// then the caller's execution context, then profile-derived fields. Profile
// lookup failure is tolerated; enrichment is best-effort.
func (s *Service) buildContext(ctx context.Context, res *research.Research, execCtx map[string]interface{}) workflows.Context {
	wfCtx := workflows.Context{}
	for k, v := range res.Parameters {
		wfCtx[k] = v
	}
	for k, v := range execCtx {
		wfCtx[k] = v
	}

	if res.ProfileID == nil || s.profiles == nil {
		return wfCtx
	}

	prof, err := s.profiles.GetByID(ctx, *res.ProfileID)
	if err != nil {
		s.log.Warnw("Profile lookup failed, executing without profile context",
			"research_id", res.ID, "profile_id", *res.ProfileID, "error", err)
		return wfCtx
	}

	wfCtx["financial_literacy"] = string(prof.FinancialLiteracy)
	wfCtx["profile_preferences"] = prof.Preferences
	if prof.DisplayName != nil && *prof.DisplayName != "" {
		wfCtx["profile_display_name"] = *prof.DisplayName
	}

	return wfCtx
}

// runContained invokes the workflow and converts a panic into a failed
// result map, so one broken executor cannot take down the caller.
func (s *Service) runContained(ctx context.Context, exec workflows.Executor, res *research.Research, wfCtx workflows.Context) (results map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("Workflow panicked",
				"workflow", exec.WorkflowType(), "research_id", res.ID, "panic", r)
			results = map[string]interface{}{
				"status":  "failed",
				"error":   fmt.Sprintf("%v", r),
				"message": fmt.Sprintf("Workflow execution failed: %v", r),
			}
		}
	}()

	return workflows.Run(ctx, exec, res, wfCtx, s.log)
}

// failureMessage extracts the most specific failure description from a
// failed result envelope.
func failureMessage(results map[string]interface{}) string {
	if msg, ok := results["message"].(string); ok && msg != "" {
		return msg
	}
	if errText, ok := results["error"].(string); ok && errText != "" {
		return errText
	}
	return "workflow execution failed"
}
