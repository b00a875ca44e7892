package notification

import (
	"context"
	"time"

	"mosolo/pkg/domain"
)

// Store persists notifications. Flag updates are idempotent per id; updating
// an unknown id is a not-found error.
type Store interface {
	Insert(ctx context.Context, n Notification) error
	Get(ctx context.Context, id domain.NotificationID) (*Notification, error)

	// ListActive returns the feed for a customer at the given time and
	// records the display (bumps ShownCount, sets LastShownAt).
	ListActive(ctx context.Context, customerID domain.CustomerID, now time.Time) ([]Notification, error)

	MarkRead(ctx context.Context, id domain.NotificationID, at time.Time) error
	Dismiss(ctx context.Context, id domain.NotificationID, at time.Time) error
	RecordAction(ctx context.Context, id domain.NotificationID, at time.Time) error
}
