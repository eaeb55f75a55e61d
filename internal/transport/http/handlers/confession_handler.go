package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	confsvc "github.com/Envologia/unimatch-ethio/internal/services/confessions"
	"github.com/Envologia/unimatch-ethio/internal/transport/http/dto"
	httperrors "github.com/Envologia/unimatch-ethio/internal/transport/http/errors"
)

type ConfessionHandler struct {
	service *confsvc.Service
}

func NewConfessionHandler(service *confsvc.Service) *ConfessionHandler {
	return &ConfessionHandler{service: service}
}

// Next returns the head of the moderation queue.
func (h *ConfessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CONFESSION_SERVICE_UNAVAILABLE", "confession service is unavailable")
		return
	}

	confession, pending, err := h.service.NextPending(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, confsvc.ErrConfessionNotFound):
			w.WriteHeader(http.StatusNoContent)
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load moderation queue")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ConfessionQueueResponse{
		Confession: confessionResponse(confession),
		Pending:    pending,
	})
}

// Recent returns the latest published confessions.
func (h *ConfessionHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CONFESSION_SERVICE_UNAVAILABLE", "confession service is unavailable")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid limit")
			return
		}
		limit = parsed
	}

	confessions, err := h.service.ListRecentApproved(r.Context(), limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list confessions")
		return
	}

	items := make([]dto.ConfessionResponse, 0, len(confessions))
	for _, confession := range confessions {
		items = append(items, confessionResponse(confession))
	}
	httperrors.Write(w, http.StatusOK, dto.ConfessionListResponse{Confessions: items})
}

func (h *ConfessionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.serviceApprove)
}

func (h *ConfessionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.serviceReject)
}

func (h *ConfessionHandler) serviceApprove(r *http.Request, id int64) (model.Confession, error) {
	return h.service.Approve(r.Context(), id)
}

func (h *ConfessionHandler) serviceReject(r *http.Request, id int64) (model.Confession, error) {
	return h.service.Reject(r.Context(), id)
}

func (h *ConfessionHandler) decide(w http.ResponseWriter, r *http.Request, decide func(*http.Request, int64) (model.Confession, error)) {
	if h.service == nil {
		writeInternal(w, "CONFESSION_SERVICE_UNAVAILABLE", "confession service is unavailable")
		return
	}

	confessionID, ok := idFromRequest(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid confession id")
		return
	}

	confession, err := decide(r, confessionID)
	if err != nil {
		switch {
		case errors.Is(err, confsvc.ErrConfessionNotFound):
			writeNotFound(w, "NOT_FOUND", "confession not found")
		case errors.Is(err, confsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid confession id")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to decide confession")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, confessionResponse(confession))
}

func confessionResponse(confession model.Confession) dto.ConfessionResponse {
	return dto.ConfessionResponse{
		ID:        confession.ID,
		Content:   confession.Content,
		Status:    string(confession.Status),
		CreatedAt: confession.CreatedAt,
		DecidedAt: confession.DecidedAt,
	}
}

func idFromRequest(r *http.Request) (int64, bool) {
	if r == nil {
		return 0, false
	}
	rawID := strings.TrimSpace(chi.URLParam(r, "id"))
	if rawID == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
