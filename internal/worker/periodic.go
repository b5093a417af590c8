// Package worker runs background jobs for the worker binaries.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	applog "roadrich/internal/log"
)

// Job does one unit of work and reports how many items it handled.
type Job func(ctx context.Context, now time.Time) (int, error)

// Periodic runs a Job once at startup and then on every tick.
type Periodic struct {
	name     string
	interval time.Duration
	job      Job
	now      func() time.Time

	runs     atomic.Int64
	failures atomic.Int64
}

func NewPeriodic(name string, interval time.Duration, job Job) (*Periodic, error) {
	if job == nil {
		return nil, errors.New("nil job")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval %v for %s", interval, name)
	}
	return &Periodic{name: name, interval: interval, job: job, now: time.Now}, nil
}

// Run blocks until ctx is cancelled. A failing run is logged and reported;
// the next tick runs the job again.
func (p *Periodic) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Worker started", "job", p.name, "interval", p.interval)
	p.runOnce(ctx, p.now())

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Worker stopped", "job", p.name, "runs", p.runs.Load())
			return ctx.Err()
		case <-ticker.C:
			p.runOnce(ctx, p.now())
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context, now time.Time) {
	start := time.Now()
	n, err := p.job(ctx, now)
	p.runs.Add(1)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.failures.Add(1)
		slog.ErrorContext(ctx, "Worker run failed", "job", p.name, "error", err)
		applog.CaptureError(ctx, err, map[string]string{"component": applog.ComponentWorker, "job": p.name})
		return
	}
	slog.InfoContext(ctx, "Worker run complete",
		"job", p.name,
		"processed", n,
		"duration", time.Since(start),
		"next_run", now.Add(p.interval).Format("15:04:05"))
}

// Runs returns how many times the job ran.
func (p *Periodic) Runs() int64 { return p.runs.Load() }

// Failures returns how many runs returned an error.
func (p *Periodic) Failures() int64 { return p.failures.Load() }
