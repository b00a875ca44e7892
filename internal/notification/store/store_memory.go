// Package store provides the notification persistence implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"mosolo/internal/notification"
	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
)

// MemoryStore is the in-memory notification store for tests and
// dependency-free development.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[domain.NotificationID]*notification.Notification
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[domain.NotificationID]*notification.Notification)}
}

// Insert stores one notification.
func (s *MemoryStore) Insert(_ context.Context, n notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := n
	s.rows[n.ID] = &cp
	return nil
}

// Get returns a copy of one notification.
func (s *MemoryStore) Get(_ context.Context, id domain.NotificationID) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	cp := *row
	return &cp, nil
}

// ListActive returns the customer's feed newest first and records the
// display.
func (s *MemoryStore) ListActive(_ context.Context, customerID domain.CustomerID, now time.Time) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []notification.Notification
	for _, row := range s.rows {
		if row.CustomerID != customerID || !row.Active(now) {
			continue
		}
		row.ShownCount++
		shownAt := now
		row.LastShownAt = &shownAt
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) update(id domain.NotificationID, apply func(*notification.Notification)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	apply(row)
	return nil
}

// MarkRead flags the notification read; repeats are no-ops.
func (s *MemoryStore) MarkRead(_ context.Context, id domain.NotificationID, at time.Time) error {
	return s.update(id, func(n *notification.Notification) {
		if !n.IsRead {
			n.IsRead = true
			readAt := at
			n.ReadAt = &readAt
		}
	})
}

// Dismiss removes the notification from the active feed; repeats are no-ops.
func (s *MemoryStore) Dismiss(_ context.Context, id domain.NotificationID, at time.Time) error {
	return s.update(id, func(n *notification.Notification) {
		if !n.IsDismissed {
			n.IsDismissed = true
			dismissedAt := at
			n.DismissedAt = &dismissedAt
		}
	})
}

// RecordAction flags that the customer acted on the notification.
func (s *MemoryStore) RecordAction(_ context.Context, id domain.NotificationID, at time.Time) error {
	return s.update(id, func(n *notification.Notification) {
		if !n.IsActionTaken {
			n.IsActionTaken = true
			actionAt := at
			n.ActionTakenAt = &actionAt
		}
	})
}
