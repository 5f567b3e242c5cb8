package errors

import (
	"context"
)

// Tracker reports engine failures to an external error-tracking service.
// The engine ships a Sentry implementation and a no-op fallback for
// deployments that run without one.
type Tracker interface {
	// CaptureError sends an error event with the given tags
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// CaptureMessage sends a bare message event at the given severity
	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error

	// AddBreadcrumb records an execution step attached to subsequent events
	AddBreadcrumb(ctx context.Context, message string, category string, level Level, data map[string]interface{})

	// Flush blocks until buffered events are delivered or ctx expires
	Flush(ctx context.Context) error
}

// Level is the severity attached to a captured message or breadcrumb.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)
