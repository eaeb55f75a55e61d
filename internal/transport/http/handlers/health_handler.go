package handlers

import (
	"net/http"

	"github.com/Envologia/unimatch-ethio/internal/transport/http/dto"
	httperrors "github.com/Envologia/unimatch-ethio/internal/transport/http/errors"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}
