package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guidinghand/internal/trackers/models"
	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/platform/httputil"
	"guidinghand/pkg/requestcontext"
)

// Service defines the tracker subscription surface.
type Service interface {
	Subscribe(ctx context.Context, req *models.SubscribeRequest, missingID id.MissingPersonID) (id.TrackerID, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/missing-persons/{id}/trackers", h.HandleSubscribe)
}

// HandleSubscribe subscribes an email to a missing-person report. Repeating
// the call returns the same tracker id.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	missingID, err := id.ParseMissingPersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid missing person id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SubscribeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	trackerID, err := h.service.Subscribe(ctx, req, missingID)
	if err != nil {
		h.logger.WarnContext(ctx, "subscribe failed", "error", err, "request_id", requestID, "missing_person_id", missingID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SubscribeResponse{TrackerID: trackerID.String()})
}
