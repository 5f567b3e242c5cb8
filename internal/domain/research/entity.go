package research

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Research represents one requested stock analysis and its lifecycle.
// It is the unit of work the execution engine drives from pending to a
// terminal state, carrying the workflow results or the failure reason.
type Research struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	StockSymbol string     `db:"stock_symbol" json:"stock_symbol"`
	Timeframe   Timeframe  `db:"timeframe" json:"timeframe"`
	ProfileID   *uuid.UUID `db:"profile_id" json:"profile_id,omitempty"`

	Status       Status                 `db:"status" json:"status"`
	WorkflowType string                 `db:"workflow_type" json:"workflow_type"`
	Parameters   map[string]string      `db:"-" json:"parameters"`
	Results      map[string]interface{} `db:"-" json:"results,omitempty"`
	ErrorMessage *string                `db:"error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Status represents research lifecycle state
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"

	// StatusCancelled is reserved for integrators that add a cancellation
	// path. The engine itself never transitions into it.
	StatusCancelled Status = "cancelled"
)

// Valid checks if status is a known lifecycle state
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status is an end state
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Timeframe represents the analysis horizon
type Timeframe string

const (
	TimeframeShort Timeframe = "short_term"
	TimeframeMid   Timeframe = "mid_term"
	TimeframeLong  Timeframe = "long_term"
)

// Valid checks if timeframe is a known horizon
func (t Timeframe) Valid() bool {
	return t == TimeframeShort || t == TimeframeMid || t == TimeframeLong
}

// HistoricalRange returns the lookback window and bar interval used when
// pulling price history for this horizon.
func (t Timeframe) HistoricalRange() (days int, interval string) {
	switch t {
	case TimeframeMid:
		return 180, "1d"
	case TimeframeLong:
		return 730, "1wk"
	default:
		return 30, "1d"
	}
}

// FundamentalPeriods returns how many statement periods to request and of
// which kind for this horizon.
func (t Timeframe) FundamentalPeriods() (periods int, periodType string) {
	switch t {
	case TimeframeMid:
		return 8, "quarterly"
	case TimeframeLong:
		return 5, "annual"
	default:
		return 4, "quarterly"
	}
}

// New creates a research in pending state with an uppercased symbol
func New(symbol string, timeframe Timeframe, workflowType string, params map[string]string) (*Research, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if !timeframe.Valid() {
		return nil, ErrUnknownTimeframe
	}
	if workflowType == "" {
		return nil, ErrEmptyWorkflowType
	}
	if params == nil {
		params = map[string]string{}
	}

	now := time.Now().UTC()
	return &Research{
		ID:           uuid.New(),
		StockSymbol:  symbol,
		Timeframe:    timeframe,
		Status:       StatusPending,
		WorkflowType: workflowType,
		Parameters:   params,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Business logic methods

// Start transitions pending research to in_progress
func (r *Research) Start() error {
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = StatusInProgress
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete attaches results and transitions to completed
func (r *Research) Complete(results map[string]interface{}) {
	r.Status = StatusCompleted
	r.Results = results
	r.ErrorMessage = nil
	r.UpdatedAt = time.Now().UTC()
}

// Fail records the failure reason and transitions to failed
func (r *Research) Fail(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = &message
	r.UpdatedAt = time.Now().UTC()
}

// SetParameter merges one execution parameter into the research
func (r *Research) SetParameter(key, value string) {
	if r.Parameters == nil {
		r.Parameters = map[string]string{}
	}
	r.Parameters[key] = value
	r.UpdatedAt = time.Now().UTC()
}

// Question returns the natural-language question attached to this research,
// empty when none was provided.
func (r *Research) Question() string {
	if r.Parameters == nil {
		return ""
	}
	return r.Parameters["question"]
}

// Errors
var (
	ErrEmptySymbol       = &ResearchError{Code: "empty_symbol", Message: "stock symbol is required"}
	ErrEmptyWorkflowType = &ResearchError{Code: "empty_workflow_type", Message: "workflow type is required"}
	ErrUnknownTimeframe  = &ResearchError{Code: "unknown_timeframe", Message: "timeframe must be short_term, mid_term or long_term"}
	ErrNotPending        = &ResearchError{Code: "not_pending", Message: "research is not in pending state"}
)

// ResearchError represents a research-specific error
type ResearchError struct {
	Code    string
	Message string
}

func (e *ResearchError) Error() string {
	return e.Message
}
