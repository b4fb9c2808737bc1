package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fieldledger/internal/audit/models"
	"fieldledger/internal/audit/service"
	"fieldledger/pkg/platform/httputil"
	"fieldledger/pkg/requestcontext"
)

// Service defines the audit operations the handler exposes.
type Service interface {
	Record(ctx context.Context, req service.RecordRequest) (*models.Event, error)
	Query(ctx context.Context, filter models.Filter, cursorToken string, limit int) (*service.Page, error)
}

// Handler wires audit endpoints to the audit service. The query endpoint is
// the read-only presentation boundary; it never writes to the store.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an audit handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/audit/events", h.HandleRecord)
	r.Get("/audit/events", h.HandleQuery)
}

// HandleRecord handles POST /audit/events.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	domainReq, err := req.ToDomain()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	event, err := h.service.Record(ctx, domainReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit record failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject", domainReq.Subject.String(),
			"action", domainReq.Action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, event)
}

// HandleQuery handles GET /audit/events.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, cursor, limit, err := parseQuery(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	page, err := h.service.Query(ctx, filter, cursor, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, QueryResponse{
		Events:     page.Events,
		NextCursor: page.Next,
	})
}
