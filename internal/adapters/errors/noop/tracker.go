// Package noop provides an error tracker that discards everything. It keeps
// the engine wiring uniform when no Sentry DSN is configured.
package noop

import (
	"context"

	"minerva/pkg/errors"
)

// Tracker implements errors.Tracker by doing nothing.
type Tracker struct{}

var _ errors.Tracker = (*Tracker)(nil)

// New creates a no-op tracker
func New() *Tracker {
	return &Tracker{}
}

// CaptureError discards the error
func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	return nil
}

// CaptureMessage discards the message
func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	return nil
}

// AddBreadcrumb discards the breadcrumb
func (t *Tracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
}

// Flush has nothing to flush
func (t *Tracker) Flush(ctx context.Context) error {
	return nil
}
