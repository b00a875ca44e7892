package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mosolo/internal/notification/cooldown"
	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
	"mosolo/pkg/requestcontext"
)

// Service dispatches eligibility notifications and serves the feed. It
// implements the engine's Notifier port.
type Service struct {
	store    Store
	cooldown cooldown.Cooldown
	ttl      time.Duration
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCooldown sets the throttle backend and window.
func WithCooldown(c cooldown.Cooldown, ttl time.Duration) Option {
	return func(s *Service) {
		s.cooldown = c
		s.ttl = ttl
	}
}

// New constructs the dispatcher. Without WithCooldown an in-process
// throttle with a 6h window is used.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	svc := &Service{
		store:    store,
		cooldown: cooldown.NewMemory(),
		ttl:      6 * time.Hour,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Celebrate emits the one-time celebration for a newly eligible target.
// The caller detects the transition; the cooldown only guards against rapid
// repeated evaluation racing that detection.
func (s *Service) Celebrate(ctx context.Context, customerID domain.CustomerID, target domain.Target) (bool, error) {
	return s.emit(ctx, customerID, target, TypeCelebration,
		fmt.Sprintf("%s débloqué !", target.DisplayName()),
		fmt.Sprintf("Félicitations, vous êtes maintenant éligible à %s.", target.DisplayName()),
	)
}

// Progress emits a milestone notification while the customer is still
// ineligible.
func (s *Service) Progress(ctx context.Context, customerID domain.CustomerID, target domain.Target, progress float64) (bool, error) {
	return s.emit(ctx, customerID, target, TypeProgress,
		fmt.Sprintf("%s : %.0f%%", target.DisplayName(), progress),
		fmt.Sprintf("Vous avez atteint %.0f%% des conditions pour %s. Continuez !", progress, target.DisplayName()),
	)
}

func (s *Service) emit(ctx context.Context, customerID domain.CustomerID, target domain.Target, typ Type, title, body string) (bool, error) {
	slot := string(typ) + ":" + customerID.String() + ":" + target.String()
	free, err := s.cooldown.Acquire(ctx, slot, s.ttl)
	if err != nil {
		// Throttle backend trouble should not silence the feed; log and
		// proceed.
		s.logger.WarnContext(ctx, "cooldown check failed, emitting anyway",
			"slot", slot,
			"error", err,
		)
		free = true
	}
	if !free {
		return false, nil
	}

	now := requestcontext.Now(ctx)
	n := Notification{
		ID:           domain.NewNotificationID(),
		CustomerID:   customerID,
		Type:         typ,
		Target:       target,
		Title:        title,
		Body:         body,
		ScheduledFor: now,
		CreatedAt:    now,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "store notification")
	}
	return true, nil
}

// Feed returns the customer's active notifications and records the display.
func (s *Service) Feed(ctx context.Context, customerID domain.CustomerID) ([]Notification, error) {
	out, err := s.store.ListActive(ctx, customerID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list notifications")
	}
	return out, nil
}

// MarkRead flags one notification read. Idempotent per id.
func (s *Service) MarkRead(ctx context.Context, id domain.NotificationID) error {
	return s.store.MarkRead(ctx, id, requestcontext.Now(ctx))
}

// Dismiss removes one notification from the feed. Idempotent per id.
func (s *Service) Dismiss(ctx context.Context, id domain.NotificationID) error {
	return s.store.Dismiss(ctx, id, requestcontext.Now(ctx))
}

// RecordAction flags that the customer acted on one notification.
// Idempotent per id.
func (s *Service) RecordAction(ctx context.Context, id domain.NotificationID) error {
	return s.store.RecordAction(ctx, id, requestcontext.Now(ctx))
}
