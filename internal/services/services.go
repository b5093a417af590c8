// Package services holds the application use cases. Each service takes
// its dependencies as interfaces so handlers and workers can share them.
package services

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidPeriod      = errors.New("invalid period")
)

// MirrorPublisher notifies the spreadsheet mirror of expense changes.
// *amqp.Client implements it.
type MirrorPublisher interface {
	PublishExpenseSync(ctx context.Context, id string, version int64) error
	PublishExpenseDelete(ctx context.Context, id string) error
}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
