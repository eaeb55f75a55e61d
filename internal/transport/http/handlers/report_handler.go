package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	reportsvc "github.com/Envologia/unimatch-ethio/internal/services/reports"
	"github.com/Envologia/unimatch-ethio/internal/transport/http/dto"
	httperrors "github.com/Envologia/unimatch-ethio/internal/transport/http/errors"
)

type ReportHandler struct {
	service *reportsvc.Service
}

func NewReportHandler(service *reportsvc.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REPORT_SERVICE_UNAVAILABLE", "report service is unavailable")
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

	reports, err := h.service.ListPending(r.Context(), limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list reports")
		return
	}

	httperrors.Write(w, http.StatusOK, reportListResponse(reports))
}

func (h *ReportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "REPORT_SERVICE_UNAVAILABLE", "report service is unavailable")
		return
	}

	reportID, ok := idFromRequest(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid report id")
		return
	}

	var req dto.ReportResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	status, ok := enums.ParseReportStatus(req.Status)
	if !ok || status == enums.ReportStatusPending {
		writeBadRequest(w, "VALIDATION_ERROR", "status must be reviewed or resolved")
		return
	}

	report, err := h.service.Resolve(r.Context(), reportID, status)
	if err != nil {
		switch {
		case errors.Is(err, reportsvc.ErrReportNotFound):
			writeNotFound(w, "NOT_FOUND", "report not found")
		case errors.Is(err, reportsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid resolve payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to resolve report")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, reportResponse(report))
}

func reportListResponse(reports []model.Report) dto.ReportListResponse {
	out := dto.ReportListResponse{Reports: make([]dto.ReportResponse, 0, len(reports))}
	for _, report := range reports {
		out.Reports = append(out.Reports, reportResponse(report))
	}
	return out
}

func reportResponse(report model.Report) dto.ReportResponse {
	return dto.ReportResponse{
		ID:         report.ID,
		ReporterID: report.ReporterID,
		TargetID:   report.TargetID,
		Reason:     report.Reason,
		Status:     string(report.Status),
		CreatedAt:  report.CreatedAt,
	}
}
