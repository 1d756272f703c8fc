package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/models"
	"github.com/ternarybob/roomathon/internal/services/reports"
)

// ReportServiceInterface defines the methods needed from the report pipeline
type ReportServiceInterface interface {
	GenerateReport(ctx context.Context, inspectionID, requesterEmail string) (*models.GenerationResult, error)
	GetInspection(ctx context.Context, inspectionID string) (*models.Inspection, error)
	ResendNotification(ctx context.Context, inspectionID, requesterEmail string) (models.NotificationResult, error)
}

// GenerateRequest is the body of POST /api/reports
type GenerateRequest struct {
	InspectionID   string `json:"inspection_id" validate:"required,max=128"`
	RequesterEmail string `json:"requester_email" validate:"omitempty,email"`
}

// NotifyRequest is the optional body of POST /api/reports/{id}/notify
type NotifyRequest struct {
	RequesterEmail string `json:"requester_email" validate:"omitempty,email"`
}

// ReportHandler handles report generation HTTP requests
type ReportHandler struct {
	reportService ReportServiceInterface
	validate      *validator.Validate
	logger        arbor.ILogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService ReportServiceInterface, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		validate:      validator.New(),
		logger:        logger,
	}
}

// GenerateHandler handles POST /api/reports - generates, publishes and emails a report
func (h *ReportHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.InspectionID = strings.TrimSpace(req.InspectionID)
	req.RequesterEmail = strings.TrimSpace(req.RequesterEmail)

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := h.reportService.GenerateReport(r.Context(), req.InspectionID, req.RequesterEmail)
	if err != nil {
		h.writeReportError(w, req.InspectionID, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// GetHandler handles GET /api/reports/{id} - returns the inspection's report state
func (h *ReportHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := PathParam(r, "/api/reports/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Inspection ID is required")
		return
	}

	inspection, err := h.reportService.GetInspection(r.Context(), id)
	if err != nil {
		h.writeReportError(w, id, err)
		return
	}

	response := map[string]interface{}{
		"inspection_id": inspection.ID,
		"status":        inspection.Status,
		"report_url":    inspection.ReportURL,
	}
	if inspection.ReportGeneratedAt != nil {
		response["report_generated_at"] = inspection.ReportGeneratedAt
	}
	WriteJSON(w, http.StatusOK, response)
}

// NotifyHandler handles POST /api/reports/{id}/notify - re-sends the report email
func (h *ReportHandler) NotifyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	id := PathParam(r, "/api/reports/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Inspection ID is required")
		return
	}

	var req NotifyRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := h.reportService.ResendNotification(r.Context(), id, req.RequesterEmail)
	if err != nil {
		h.writeReportError(w, id, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (h *ReportHandler) writeReportError(w http.ResponseWriter, inspectionID string, err error) {
	switch {
	case errors.Is(err, reports.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, reports.ErrNotPublished):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, reports.ErrPublish):
		h.logger.Error().Err(err).Str("inspection_id", inspectionID).Msg("Report publish failed")
		WriteError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error().Err(err).Str("inspection_id", inspectionID).Msg("Report request failed")
		WriteError(w, http.StatusInternalServerError, "Report generation failed")
	}
}

// validationMessage turns validator errors into a single readable line
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "email":
			parts = append(parts, fe.Field()+" must be a valid email address")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
