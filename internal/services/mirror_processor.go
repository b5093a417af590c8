package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roadrich/internal/amqp"
	applog "roadrich/internal/log"
	"roadrich/internal/sheets"
	"roadrich/internal/storage"
)

// MirrorProcessorConfig holds configuration for the mirror processor
type MirrorProcessorConfig struct {
	// PollInterval is how often to sweep for unsynced rows (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of rows written per sweep (default: 50)
	BatchSize int
}

func DefaultMirrorProcessorConfig() MirrorProcessorConfig {
	return MirrorProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    50,
	}
}

// MirrorProcessor copies expenses into the spreadsheet mirror. It handles
// AMQP messages as they arrive and periodically sweeps rows still pending,
// which covers messages lost while the broker was down.
type MirrorProcessor struct {
	store  storage.MirrorQueue
	mirror sheets.Mirror
	config MirrorProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorProcessor(store storage.MirrorQueue, mirror sheets.Mirror, config MirrorProcessorConfig) *MirrorProcessor {
	def := DefaultMirrorProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	return &MirrorProcessor{store: store, mirror: mirror, config: config}
}

// Handle processes one mirror message; it satisfies amqp.Handler.
func (p *MirrorProcessor) Handle(ctx context.Context, msg *amqp.MirrorMessage) error {
	switch msg.Type {
	case amqp.MessageDelete:
		return p.DeleteExpense(ctx, msg.ID)
	default:
		return p.SyncExpense(ctx, msg.ID)
	}
}

// SyncExpense writes the current stored state of id. The message version
// only triggers the write: the row always carries the stored version, so an
// older message still publishes the newest data.
func (p *MirrorProcessor) SyncExpense(ctx context.Context, id string) error {
	rec, err := p.store.MirrorRecord(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "Expense gone before mirroring, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense %s: %w", id, err)
	}

	row := sheets.Row{
		ID:          rec.Expense.ID,
		UserID:      rec.Expense.UserID,
		Date:        rec.Expense.Date,
		Category:    rec.CategoryName,
		Description: rec.Expense.Description,
		Amount:      rec.Expense.Amount,
		Recurring:   rec.Expense.IsRecurring,
		Version:     rec.Version,
	}
	ref, err := p.mirror.Upsert(ctx, row)
	if err != nil {
		if markErr := p.store.MarkMirrorError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark mirror error", "id", id, "error", markErr)
		}
		return fmt.Errorf("write mirror row: %w", err)
	}

	if err := p.store.MarkMirrored(ctx, id, rec.Version); err != nil {
		// the row is written; the next sweep rewrites it harmlessly
		slog.WarnContext(ctx, "Failed to mark expense as mirrored", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored expense to spreadsheet",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldOperation, applog.OpSync,
		"id", id,
		"version", rec.Version,
		applog.FieldSheetsRef, ref)
	return nil
}

func (p *MirrorProcessor) DeleteExpense(ctx context.Context, id string) error {
	if err := p.mirror.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete mirror row: %w", err)
	}
	slog.InfoContext(ctx, "Deleted expense from spreadsheet", "id", id)
	return nil
}

// ProcessPending mirrors one batch of pending or errored rows and returns
// how many were written.
func (p *MirrorProcessor) ProcessPending(ctx context.Context) (int, error) {
	items, err := p.store.PendingMirror(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending mirror rows: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	slog.DebugContext(ctx, "Processing mirror batch", "count", len(items))

	done := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if err := p.SyncExpense(ctx, item.ID); err != nil {
			slog.WarnContext(ctx, "Mirror sweep failed for expense",
				"id", item.ID,
				"version", item.Version,
				"error", err)
			continue
		}
		done++
	}
	return done, nil
}

// Start begins the sweep loop. Returns an error if already running.
func (p *MirrorProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("mirror processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *MirrorProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Mirror processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *MirrorProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MirrorProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Sweep immediately on startup
	p.sweep(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *MirrorProcessor) sweep(ctx context.Context) {
	n, err := p.ProcessPending(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Mirror sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Mirror sweep complete", "mirrored", n)
	}
}
