package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "dealbase/internal/errors"
	"dealbase/internal/services"
)

// IntakeHandler exposes document uploads and the normalized rent roll.
type IntakeHandler struct {
	service        *services.IntakeService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewIntakeHandler creates a new intake handler.
func NewIntakeHandler(service *services.IntakeService, maxUploadBytes int64, logger *slog.Logger) *IntakeHandler {
	return &IntakeHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "intake")),
	}
}

// UploadRentRoll handles POST /api/deals/{dealID}/documents/rent-roll.
func (h *IntakeHandler) UploadRentRoll(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	upload, err := h.readUpload(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	result, err := h.service.ProcessRentRoll(r.Context(), dealID, upload)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	if !result.Idempotent {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, result)
}

// UploadFinancials handles POST /api/deals/{dealID}/documents/t12.
func (h *IntakeHandler) UploadFinancials(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	upload, err := h.readUpload(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	result, err := h.service.ProcessFinancials(r.Context(), dealID, upload)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	if !result.Idempotent {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, result)
}

// ListDocuments handles GET /api/deals/{dealID}/documents.
func (h *IntakeHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	docs, err := h.service.ListDocuments(r.Context(), dealID)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, docs)
}

// ListUnits handles GET /api/deals/{dealID}/units.
func (h *IntakeHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	units, err := h.service.ListUnitRecords(r.Context(), dealID)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, units)
}

// readUpload extracts the multipart "file" field, bounded by the configured
// upload limit.
func (h *IntakeHandler) readUpload(r *http.Request) (services.Upload, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return services.Upload{}, apierrors.ErrValidation("file", fmt.Sprintf("invalid multipart body: %s", err))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return services.Upload{}, apierrors.ErrValidation("file", "multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return services.Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
