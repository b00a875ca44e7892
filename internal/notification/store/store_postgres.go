package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"mosolo/internal/notification"
	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
)

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed notification store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `
	id, customer_id, type, target_type, target_code, title, body,
	is_read, is_dismissed, is_action_taken, read_at, dismissed_at, action_taken_at,
	last_shown_at, shown_count, scheduled_for, expires_at, created_at`

// Insert stores one notification.
func (s *PostgresStore) Insert(ctx context.Context, n notification.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		uuid.UUID(n.ID), uuid.UUID(n.CustomerID), string(n.Type),
		string(n.Target.Type), string(n.Target.Code), n.Title, n.Body,
		n.IsRead, n.IsDismissed, n.IsActionTaken, n.ReadAt, n.DismissedAt, n.ActionTakenAt,
		n.LastShownAt, n.ShownCount, n.ScheduledFor, n.ExpiresAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Get returns one notification by id.
func (s *PostgresStore) Get(ctx context.Context, id domain.NotificationID) (*notification.Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = $1`,
		uuid.UUID(id),
	)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListActive returns the customer's feed newest first and records the
// display in the same statement.
func (s *PostgresStore) ListActive(ctx context.Context, customerID domain.CustomerID, now time.Time) ([]notification.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE notifications
		SET shown_count = shown_count + 1, last_shown_at = $2
		WHERE customer_id = $1
		  AND is_dismissed = false
		  AND scheduled_for <= $2
		  AND (expires_at IS NULL OR expires_at > $2)
		RETURNING `+notificationColumns,
		uuid.UUID(customerID), now,
	)
	if err != nil {
		return nil, fmt.Errorf("list active notifications: %w", err)
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// RETURNING rows come back in table order; sort newest first for the
	// feed.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *PostgresStore) flag(ctx context.Context, id domain.NotificationID, set, when string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET `+set+` = true, `+when+` = COALESCE(`+when+`, $2)
		WHERE id = $1`,
		uuid.UUID(id), at,
	)
	if err != nil {
		return fmt.Errorf("update notification flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notification flag rows: %w", err)
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	return nil
}

// MarkRead flags the notification read; repeats are no-ops.
func (s *PostgresStore) MarkRead(ctx context.Context, id domain.NotificationID, at time.Time) error {
	return s.flag(ctx, id, "is_read", "read_at", at)
}

// Dismiss removes the notification from the active feed; repeats are no-ops.
func (s *PostgresStore) Dismiss(ctx context.Context, id domain.NotificationID, at time.Time) error {
	return s.flag(ctx, id, "is_dismissed", "dismissed_at", at)
}

// RecordAction flags that the customer acted on the notification.
func (s *PostgresStore) RecordAction(ctx context.Context, id domain.NotificationID, at time.Time) error {
	return s.flag(ctx, id, "is_action_taken", "action_taken_at", at)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var (
		n                      notification.Notification
		id, customerID         uuid.UUID
		typ                    string
		targetType, targetCode string
	)
	err := row.Scan(
		&id, &customerID, &typ, &targetType, &targetCode, &n.Title, &n.Body,
		&n.IsRead, &n.IsDismissed, &n.IsActionTaken, &n.ReadAt, &n.DismissedAt, &n.ActionTakenAt,
		&n.LastShownAt, &n.ShownCount, &n.ScheduledFor, &n.ExpiresAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.ID = domain.NotificationID(id)
	n.CustomerID = domain.CustomerID(customerID)
	n.Type = notification.Type(typ)
	n.Target = domain.Target{Type: domain.TargetType(targetType), Code: domain.TargetCode(targetCode)}
	return &n, nil
}
