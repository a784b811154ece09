package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guidinghand/internal/reports/models"
	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/platform/httputil"
	"guidinghand/pkg/requestcontext"
)

// Service defines the report intake and read surface.
type Service interface {
	CreateMissing(ctx context.Context, req *models.CreateMissingPersonRequest) (*models.MissingPerson, error)
	GetMissing(ctx context.Context, reportID id.MissingPersonID) (*models.MissingPerson, error)
	ListMissing(ctx context.Context, filter models.MissingFilter) ([]*models.MissingPerson, error)
	UpdateMissingStatus(ctx context.Context, reportID id.MissingPersonID, req *models.UpdateStatusRequest) (*models.MissingPerson, error)
	CreateFound(ctx context.Context, req *models.CreateFoundPersonRequest) (*models.FoundPerson, error)
	GetFound(ctx context.Context, reportID id.FoundPersonID) (*models.FoundPerson, error)
	ListFound(ctx context.Context, filter models.FoundFilter) ([]*models.FoundPerson, error)
	UpdateFoundStatus(ctx context.Context, reportID id.FoundPersonID, req *models.UpdateStatusRequest) (*models.FoundPerson, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/missing-persons", h.HandleCreateMissing)
	r.Get("/v1/missing-persons", h.HandleListMissing)
	r.Get("/v1/missing-persons/{id}", h.HandleGetMissing)
	r.Patch("/v1/missing-persons/{id}/status", h.HandleUpdateMissingStatus)

	r.Post("/v1/found-persons", h.HandleCreateFound)
	r.Get("/v1/found-persons", h.HandleListFound)
	r.Get("/v1/found-persons/{id}", h.HandleGetFound)
	r.Patch("/v1/found-persons/{id}/status", h.HandleUpdateFoundStatus)
}

func (h *Handler) HandleCreateMissing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[models.CreateMissingPersonRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.CreateMissing(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "create missing person failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.CreatedResponse{ID: report.ID.String(), Status: report.Status.String()})
}

// HandleCreateFound persists the report and returns before matching runs.
func (h *Handler) HandleCreateFound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[models.CreateFoundPersonRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.CreateFound(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "create found person failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.CreatedResponse{ID: report.ID.String(), Status: report.Status.String()})
}

// HandleListMissing lists reports newest first, optionally filtered by
// parish and status.
func (h *Handler) HandleListMissing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var filter models.MissingFilter
	if raw := r.URL.Query().Get("parish"); raw != "" {
		parish, err := id.ParseParish(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Parish = &parish
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.MissingStatus(raw)
		filter.Status = &status
	}

	reports, err := h.service.ListMissing(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list missing persons failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToMissingListResponse(reports))
}

func (h *Handler) HandleListFound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var filter models.FoundFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.FoundStatus(raw)
		filter.Status = &status
	}

	reports, err := h.service.ListFound(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list found persons failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToFoundListResponse(reports))
}

func (h *Handler) HandleGetMissing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	reportID, err := id.ParseMissingPersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid missing person id"))
		return
	}

	report, err := h.service.GetMissing(ctx, reportID)
	if err != nil {
		h.logger.WarnContext(ctx, "get missing person failed", "error", err, "request_id", requestID, "missing_person_id", reportID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToMissingResponse(report))
}

func (h *Handler) HandleGetFound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	reportID, err := id.ParseFoundPersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid found person id"))
		return
	}

	report, err := h.service.GetFound(ctx, reportID)
	if err != nil {
		h.logger.WarnContext(ctx, "get found person failed", "error", err, "request_id", requestID, "found_person_id", reportID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToFoundResponse(report))
}

// HandleUpdateMissingStatus is called by the external verification workflow.
func (h *Handler) HandleUpdateMissingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	reportID, err := id.ParseMissingPersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid missing person id"))
		return
	}

	req, ok := httputil.DecodeJSON[models.UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.UpdateMissingStatus(ctx, reportID, req)
	if err != nil {
		h.logger.WarnContext(ctx, "update missing person status failed", "error", err, "request_id", requestID, "missing_person_id", reportID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToMissingResponse(report))
}

// HandleUpdateFoundStatus is called by the external verification workflow.
func (h *Handler) HandleUpdateFoundStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	reportID, err := id.ParseFoundPersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid found person id"))
		return
	}

	req, ok := httputil.DecodeJSON[models.UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.UpdateFoundStatus(ctx, reportID, req)
	if err != nil {
		h.logger.WarnContext(ctx, "update found person status failed", "error", err, "request_id", requestID, "found_person_id", reportID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToFoundResponse(report))
}
