package log

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// InitSentry configures the global Sentry client. It returns a flush func
// to defer; with an empty DSN nothing is initialised and the func is a no-op.
func InitSentry(cfg SentryConfig) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  1.0,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// session cookies never leave the process
			if event.Request != nil {
				event.Request.Cookies = ""
				delete(event.Request.Headers, "Cookie")
			}
			return event
		},
	})
	if err != nil {
		return func() {}, fmt.Errorf("init sentry: %w", err)
	}
	slog.Info("Sentry error reporting enabled", "environment", cfg.Environment)
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureError reports err with tags to Sentry. It prefers the hub bound to
// ctx and is a no-op when Sentry was never initialised.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// WithUser binds a cloned hub carrying the user's ID to ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	if sentry.CurrentHub().Client() == nil {
		return ctx
	}
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: userID})
	})
	return sentry.SetHubOnContext(ctx, hub)
}
