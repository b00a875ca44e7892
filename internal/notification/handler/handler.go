// Package handler exposes the notification feed endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mosolo/internal/notification"
	"mosolo/pkg/domain"
	"mosolo/pkg/platform/httputil"
)

// Service defines the feed operations the transport needs.
type Service interface {
	Feed(ctx context.Context, customerID domain.CustomerID) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id domain.NotificationID) error
	Dismiss(ctx context.Context, id domain.NotificationID) error
	RecordAction(ctx context.Context, id domain.NotificationID) error
}

// Handler is the thin HTTP layer over the notification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the notification handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the feed endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications/{customerID}", h.HandleFeed)
	r.Post("/notifications/{id}/read", h.flagHandler(h.service.MarkRead))
	r.Post("/notifications/{id}/dismiss", h.flagHandler(h.service.Dismiss))
	r.Post("/notifications/{id}/action", h.flagHandler(h.service.RecordAction))
}

// NotificationResponse is the wire shape of one feed entry.
type NotificationResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	TargetType    string     `json:"target_type"`
	TargetCode    string     `json:"target_code"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	IsRead        bool       `json:"is_read"`
	IsActionTaken bool       `json:"is_action_taken"`
	ShownCount    int        `json:"shown_count"`
	LastShownAt   *time.Time `json:"last_shown_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// HandleFeed handles GET /notifications/{customerID}.
func (h *Handler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	customerID, err := domain.ParseCustomerID(chi.URLParam(r, "customerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	feed, err := h.service.Feed(r.Context(), customerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "feed listing failed",
			"customer_id", customerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]NotificationResponse, 0, len(feed))
	for _, n := range feed {
		out = append(out, NotificationResponse{
			ID:            n.ID.String(),
			Type:          string(n.Type),
			TargetType:    string(n.Target.Type),
			TargetCode:    string(n.Target.Code),
			Title:         n.Title,
			Body:          n.Body,
			IsRead:        n.IsRead,
			IsActionTaken: n.IsActionTaken,
			ShownCount:    n.ShownCount,
			LastShownAt:   n.LastShownAt,
			CreatedAt:     n.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (h *Handler) flagHandler(apply func(context.Context, domain.NotificationID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if err := apply(r.Context(), id); err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
