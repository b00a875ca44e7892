// Package handler wires the eligibility endpoints to the engine service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
	"mosolo/pkg/platform/httputil"
	"mosolo/pkg/requestcontext"
)

// Service defines the engine operations the transport needs.
type Service interface {
	Evaluate(ctx context.Context, customerID domain.CustomerID, targets []domain.Target, trigger eligibility.TriggerEvent) ([]eligibility.Outcome, error)
	GetStatus(ctx context.Context, customerID domain.CustomerID) (*eligibility.StatusReport, error)
}

// Handler is the thin HTTP layer over the engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the eligibility handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the eligibility endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/eligibility/evaluate", h.HandleEvaluate)
	r.Get("/eligibility/status/{customerID}", h.HandleStatus)
}

// HandleEvaluate handles POST /eligibility/evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[EvaluateRequest](w, r, h.logger)
	if !ok {
		return
	}
	customerID, targets, err := req.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Back-office callers identify themselves; their runs audit as manual.
	trigger := eligibility.TriggerCustomerRequest
	if requestcontext.Actor(ctx) != "" {
		trigger = eligibility.TriggerManual
	}

	outcomes, err := h.service.Evaluate(ctx, customerID, targets, trigger)
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluation failed",
			"request_id", requestcontext.RequestID(ctx),
			"customer_id", customerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evaluation completed",
		"request_id", requestcontext.RequestID(ctx),
		"customer_id", customerID,
		"targets", len(outcomes),
		"trigger", trigger,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromOutcomes(outcomes))
}

// HandleStatus handles GET /eligibility/status/{customerID}. Read path, no
// evaluation side effect.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, err := domain.ParseCustomerID(chi.URLParam(r, "customerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.GetStatus(ctx, customerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "status report failed",
			"request_id", requestcontext.RequestID(ctx),
			"customer_id", customerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromReport(report))
}
