// Package notification owns the customer-facing notification feed and the
// dispatcher the eligibility engine emits through.
package notification

import (
	"time"

	"mosolo/pkg/domain"
)

// Type classifies a notification for display and throttling.
type Type string

const (
	TypeCelebration Type = "CELEBRATION"
	TypeProgress    Type = "PROGRESS"
	TypeMotivation  Type = "MOTIVATION"
	TypeAlert       Type = "ALERT"
	TypeReminder    Type = "REMINDER"
	TypeSystem      Type = "SYSTEM"
)

// Notification is one feed entry. Flags are set-once and idempotent: marking
// a read notification read again is a no-op.
type Notification struct {
	ID         domain.NotificationID
	CustomerID domain.CustomerID
	Type       Type
	Target     domain.Target
	Title      string
	Body       string

	IsRead        bool
	IsDismissed   bool
	IsActionTaken bool
	ReadAt        *time.Time
	DismissedAt   *time.Time
	ActionTakenAt *time.Time

	LastShownAt  *time.Time
	ShownCount   int
	ScheduledFor time.Time
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

// Active reports whether the notification belongs in the feed at the given
// time: not dismissed, not expired, and scheduled for now or earlier.
func (n Notification) Active(now time.Time) bool {
	if n.IsDismissed {
		return false
	}
	if n.ExpiresAt != nil && !now.Before(*n.ExpiresAt) {
		return false
	}
	return !n.ScheduledFor.After(now)
}
