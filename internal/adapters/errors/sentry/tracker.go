// Package sentry reports engine errors to Sentry. The engine has no user
// identity of its own, so events carry component and workflow tags only.
package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"minerva/pkg/errors"
)

// defaultFlushWait bounds Flush when the caller's context has no deadline.
const defaultFlushWait = 2 * time.Second

// Tracker implements errors.Tracker on top of the Sentry SDK.
type Tracker struct {
	hub *sentry.Hub
}

var _ errors.Tracker = (*Tracker)(nil)

// New initializes the Sentry SDK and returns a tracker bound to the
// current hub.
func New(dsn string, environment string) (*Tracker, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, err
	}

	return &Tracker{
		hub: sentry.CurrentHub(),
	}, nil
}

// CaptureError sends an error event with the given tags.
func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	hub := t.hub.Clone()

	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
	})

	hub.CaptureException(err)
	return nil
}

// CaptureMessage sends a plain message event at the given level.
func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	hub := t.hub.Clone()

	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetLevel(convertLevel(level))
	})

	hub.CaptureMessage(message)
	return nil
}

// AddBreadcrumb records an execution step on the shared hub so it shows up
// on the next captured event.
func (t *Tracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
	t.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Message:  message,
		Category: category,
		Level:    convertLevel(level),
		Data:     data,
	}, &sentry.BreadcrumbHint{})
}

// Flush drains pending events, waiting no longer than the context deadline.
func (t *Tracker) Flush(ctx context.Context) error {
	wait := defaultFlushWait
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}

	if !sentry.Flush(wait) {
		return errors.Wrap(errors.ErrTimeout, "sentry flush")
	}
	return nil
}

// convertLevel maps tracker levels onto Sentry levels.
func convertLevel(level errors.Level) sentry.Level {
	switch level {
	case errors.LevelDebug:
		return sentry.LevelDebug
	case errors.LevelInfo:
		return sentry.LevelInfo
	case errors.LevelWarning:
		return sentry.LevelWarning
	case errors.LevelError:
		return sentry.LevelError
	case errors.LevelFatal:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}
