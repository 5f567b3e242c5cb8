package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates a failure in an external API or service
	ErrExternal = errors.New("external service error")

	// ErrNotImplemented indicates a capability the implementation does not provide
	ErrNotImplemented = errors.New("not implemented")
)

// Research-specific errors

var (
	// ErrResearchNotFound indicates the requested research does not exist
	ErrResearchNotFound = errors.New("research not found")

	// ErrProfileNotFound indicates the referenced research profile does not exist
	ErrProfileNotFound = errors.New("research profile not found")

	// ErrInvalidSymbol indicates an invalid stock symbol
	ErrInvalidSymbol = errors.New("invalid stock symbol")

	// ErrInvalidTimeframe indicates an unknown research timeframe
	ErrInvalidTimeframe = errors.New("invalid timeframe")
)

// Workflow-specific errors

var (
	// ErrWorkflowNotFound indicates no executor accepts the requested workflow type
	ErrWorkflowNotFound = errors.New("no executor found for workflow type")

	// ErrWorkflowValidation indicates a research failed an executor's validation
	ErrWorkflowValidation = errors.New("workflow validation failed")
)

// Data provider errors

var (
	// ErrProviderUnavailable indicates a data provider is not reachable
	ErrProviderUnavailable = errors.New("data provider unavailable")

	// ErrProviderData indicates a data provider returned unusable data
	ErrProviderData = errors.New("data provider returned invalid data")

	// ErrRateLimitExceeded indicates API rate limit exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Tool errors

var (
	// ErrToolNotFound indicates a tool name is not registered
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolValidation indicates tool arguments failed schema validation
	ErrToolValidation = errors.New("tool parameter validation failed")
)

// Cache errors

var (
	// ErrCacheMiss indicates no entry exists for a cache key
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheBackend indicates a cache backend operation failed
	ErrCacheBackend = errors.New("cache backend error")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WorkflowError is the declared business-rule failure for workflow execution.
// The orchestrator recognizes it, records its message into the research entity
// and transitions the research to failed instead of propagating the error.
type WorkflowError struct {
	WorkflowType string
	ResearchID   string
	Message      string
	Err          error
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow '%s' execution failed: %s", e.WorkflowType, e.Message)
}

// Unwrap returns the wrapped error
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a workflow execution error
func NewWorkflowError(workflowType, researchID, message string, err error) *WorkflowError {
	return &WorkflowError{
		WorkflowType: workflowType,
		ResearchID:   researchID,
		Message:      message,
		Err:          err,
	}
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
