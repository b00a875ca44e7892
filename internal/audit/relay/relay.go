// Package relay drains the audit outbox to Kafka. Kafka is the downstream
// source of truth for the compliance feed; the outbox guarantees no
// evaluation record is lost between the database commit and the publish.
package relay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher is the Kafka side of the relay.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Relay polls the outbox table and publishes unpublished rows in order.
type Relay struct {
	db        *sql.DB
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// New constructs the relay worker.
func New(db *sql.DB, publisher Publisher, interval time.Duration, batchSize int, logger *slog.Logger) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{db: db, publisher: publisher, interval: interval, batchSize: batchSize, logger: logger}
}

// Run polls until the context is cancelled. Publish failures leave rows
// unpublished for the next tick; the relay never drops a row.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := r.Drain(ctx); err != nil {
				r.logger.WarnContext(ctx, "outbox drain failed", "error", err)
			} else if n > 0 {
				r.logger.DebugContext(ctx, "outbox drained", "published", n)
			}
		}
	}
}

// Drain publishes one batch of pending rows and returns how many went out.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		r.batchSize,
	)
	if err != nil {
		return 0, fmt.Errorf("select outbox batch: %w", err)
	}

	type pending struct {
		id      uuid.UUID
		key     string
		payload []byte
	}
	var batch []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.key, &p.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	published := 0
	for _, p := range batch {
		if err := r.publisher.Publish(ctx, []byte(p.key), p.payload); err != nil {
			// Stop at the first failure to preserve per-customer ordering.
			return published, fmt.Errorf("publish outbox row %s: %w", p.id, err)
		}
		if _, err := r.db.ExecContext(ctx, `
			UPDATE outbox SET published_at = $2 WHERE id = $1`,
			p.id, time.Now(),
		); err != nil {
			return published, fmt.Errorf("mark outbox row %s published: %w", p.id, err)
		}
		published++
	}
	return published, nil
}
