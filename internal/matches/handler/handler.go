package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guidinghand/internal/matches/models"
	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/platform/httputil"
	"guidinghand/pkg/requestcontext"
)

// Service defines the match operations exposed over HTTP.
type Service interface {
	Get(ctx context.Context, matchID id.MatchID) (*models.Match, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Match, error)
	UpdateVerification(ctx context.Context, matchID id.MatchID, status models.VerificationStatus) (*models.Match, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/matches", h.HandleList)
	r.Get("/v1/matches/{id}", h.HandleGet)
	r.Patch("/v1/matches/{id}/verification", h.HandleUpdateVerification)
}

// HandleList lists matches newest first, optionally filtered by
// missingPersonId or status.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var filter models.Filter
	if raw := r.URL.Query().Get("missingPersonId"); raw != "" {
		missingID, err := id.ParseMissingPersonID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid missingPersonId"))
			return
		}
		filter.MissingPersonID = &missingID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.VerificationStatus(raw)
		filter.VerificationStatus = &status
	}

	matches, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list matches failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToListResponse(matches))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	matchID, err := id.ParseMatchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid match id"))
		return
	}

	m, err := h.service.Get(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "error", err, "request_id", requestID, "match_id", matchID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(m))
}

// HandleUpdateVerification is the entry point for the external review
// workflow.
func (h *Handler) HandleUpdateVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	matchID, err := id.ParseMatchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid match id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateVerificationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	m, err := h.service.UpdateVerification(ctx, matchID, models.VerificationStatus(req.VerificationStatus))
	if err != nil {
		h.logger.ErrorContext(ctx, "update match verification failed", "error", err, "request_id", requestID, "match_id", matchID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(m))
}
