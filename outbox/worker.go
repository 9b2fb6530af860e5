// Package outbox delivers queued notifications with retry and backoff.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Worker struct {
	db           *gorm.DB
	sender       notifications.Sender
	batchSize    int
	pollInterval time.Duration
	wake         chan struct{}
	now          func() time.Time
}

func NewWorker(db *gorm.DB, sender notifications.Sender, batchSize int, pollInterval time.Duration) *Worker {
	if batchSize <= 0 {
		batchSize = 20
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		db:           db,
		sender:       sender,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		now:          time.Now,
	}
}

// Wake asks the worker to poll now instead of waiting for the next tick.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run processes batches until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Outbox worker started", "interval", w.pollInterval, "batch", w.batchSize)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		for {
			n, err := w.ProcessBatch(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Outbox batch failed", "error", err)
			}
			// A full batch means more rows are probably due.
			if err != nil || n < w.batchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			slog.Info("Outbox worker stopped")
			return nil
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// ProcessBatch sends up to one batch of due messages and returns how many
// it attempted. Each message is claimed, sent and recorded in its own
// transaction, so an error stops the batch without undoing earlier sends.
// A crash between a send and its commit resends that one message.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	attempted := 0
	for attempted < w.batchSize {
		if err := ctx.Err(); err != nil {
			return attempted, err
		}
		claimed, err := w.processNext(ctx)
		if claimed {
			attempted++
		}
		if err != nil {
			return attempted, err
		}
		if !claimed {
			break
		}
	}
	return attempted, nil
}

// processNext delivers the oldest due message. It reports false when none
// is due.
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	claimed := false
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ? AND next_attempt_at <= ?", models.OutboxPending, w.now()).
			Order("next_attempt_at, id").
			Limit(1)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var due []models.OutboxMessage
		if err := q.Find(&due).Error; err != nil {
			return fmt.Errorf("load due message: %w", err)
		}
		if len(due) == 0 {
			return nil
		}

		claimed = true
		msg := &due[0]
		w.deliver(ctx, msg)
		if err := tx.Save(msg).Error; err != nil {
			return fmt.Errorf("update message %d: %w", msg.ID, err)
		}
		return nil
	})
	return claimed, err
}

func (w *Worker) deliver(ctx context.Context, m *models.OutboxMessage) {
	m.Attempts++
	err := w.sender.Send(ctx, notifications.Message{
		Kind:    m.Kind,
		To:      m.Recipient,
		Subject: m.Subject,
		HTML:    m.Body,
	})
	if err == nil {
		now := w.now()
		m.Status = models.OutboxSent
		m.SentAt = &now
		m.LastError = ""
		return
	}

	m.LastError = err.Error()
	if m.Attempts >= m.MaxAttempts {
		m.Status = models.OutboxFailed
		slog.Error("Notification permanently failed", "id", m.ID, "kind", m.Kind, "to", m.Recipient, "attempts", m.Attempts, "error", err)
		return
	}
	m.NextAttemptAt = w.now().Add(RetryDelay(m.Attempts))
	slog.Warn("Notification failed, will retry", "id", m.ID, "kind", m.Kind, "to", m.Recipient, "attempt", m.Attempts, "next", m.NextAttemptAt, "error", err)
}

// RetryDelay is the wait before the attempt following the given one:
// 30s, 1m, 2m, 4m ... capped at 30m.
func RetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 30 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.InitialInterval
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
