package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	adminauthsvc "github.com/Envologia/unimatch-ethio/internal/services/adminauth"
	"github.com/Envologia/unimatch-ethio/internal/transport/http/dto"
	httperrors "github.com/Envologia/unimatch-ethio/internal/transport/http/errors"
)

type AdminAuthHandler struct {
	service *adminauthsvc.Service
}

func NewAdminAuthHandler(service *adminauthsvc.Service) *AdminAuthHandler {
	return &AdminAuthHandler{service: service}
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || !h.service.IsConfigured() {
		writeInternal(w, "ADMIN_AUTH_UNAVAILABLE", "admin auth is unavailable")
		return
	}

	var req dto.AdminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	token, expiresAt, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, adminauthsvc.ErrUnauthorized):
			writeUnauthorized(w, "UNAUTHORIZED", "invalid credentials")
		default:
			writeInternal(w, "INTERNAL_ERROR", "internal server error")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminLoginResponse{
		AccessToken:  token,
		ExpiresInSec: maxInt64(0, int64(time.Until(expiresAt).Seconds())),
	})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
