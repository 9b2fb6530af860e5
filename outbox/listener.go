package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/notifications"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
)

// Listen wakes w whenever a transaction commits new outbox rows. It holds
// one dedicated pgx connection and reconnects with backoff until ctx ends.
func Listen(ctx context.Context, dsn string, w *Worker) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0

	for {
		err := listenOnce(ctx, dsn, w, b)
		if ctx.Err() != nil {
			return nil
		}
		wait := b.NextBackOff()
		slog.Warn("Outbox listener disconnected", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func listenOnce(ctx context.Context, dsn string, w *Worker, b backoff.BackOff) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{notifications.Channel}.Sanitize()); err != nil {
		return err
	}
	slog.Info("Outbox listener connected", "channel", notifications.Channel)
	b.Reset()

	// Catch up on anything committed while disconnected.
	w.Wake()
	for {
		if _, err := conn.WaitForNotification(ctx); err != nil {
			return err
		}
		w.Wake()
	}
}
