package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fieldledger/internal/importlog/models"
	"fieldledger/internal/importlog/service"
	"fieldledger/pkg/platform/httputil"
	"fieldledger/pkg/requestcontext"
)

// Service defines the import job operations the handler exposes.
type Service interface {
	StartJob(ctx context.Context) (*models.Job, error)
	GetJob(ctx context.Context, jobID int64) (*models.Job, error)
	Append(ctx context.Context, jobID int64, req service.AppendRequest) (*models.LogLine, error)
	Finalize(ctx context.Context, jobID int64, outcome models.Status) (*models.Job, error)
	Lines(ctx context.Context, jobID int64, severity models.Severity) ([]models.LogLine, error)
	Summary(ctx context.Context, jobID int64) (*models.Summary, error)
	PurgeJob(ctx context.Context, jobID int64) error
}

// Handler wires import job endpoints to the importlog service. The lines and
// summary endpoints are the read-only presentation boundary.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an importlog handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts import job endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/import/jobs", func(r chi.Router) {
		r.Post("/", h.HandleStartJob)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", h.HandleGetJob)
			r.Delete("/", h.HandlePurgeJob)
			r.Post("/lines", h.HandleAppend)
			r.Get("/lines", h.HandleLines)
			r.Post("/finalize", h.HandleFinalize)
			r.Get("/summary", h.HandleSummary)
		})
	})
}

// HandleStartJob handles POST /import/jobs.
func (h *Handler) HandleStartJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	job, err := h.service.StartJob(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "start import job failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, job)
}

// HandleGetJob handles GET /import/jobs/{jobID}.
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	job, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

// HandleAppend handles POST /import/jobs/{jobID}/lines.
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	var req AppendLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	domainReq, err := req.ToDomain()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	line, err := h.service.Append(ctx, jobID, domainReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "append import log line failed",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, line)
}

// HandleFinalize handles POST /import/jobs/{jobID}/finalize.
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}

	job, err := h.service.Finalize(ctx, jobID, models.Status(req.Outcome))
	if err != nil {
		h.logger.ErrorContext(ctx, "finalize import job failed",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID,
			"outcome", req.Outcome,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

// HandleLines handles GET /import/jobs/{jobID}/lines.
func (h *Handler) HandleLines(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}

	var severity models.Severity
	if v := r.URL.Query().Get("severity"); v != "" {
		parsed, err := models.ParseSeverity(v)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		severity = parsed
	}

	lines, err := h.service.Lines(r.Context(), jobID, severity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LinesResponse{Lines: lines})
}

// HandleSummary handles GET /import/jobs/{jobID}/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), jobID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandlePurgeJob handles DELETE /import/jobs/{jobID}.
func (h *Handler) HandlePurgeJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.PurgeJob(ctx, jobID); err != nil {
		h.logger.ErrorContext(ctx, "purge import job failed",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func jobIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "invalid job id")
		return 0, false
	}
	return jobID, true
}
