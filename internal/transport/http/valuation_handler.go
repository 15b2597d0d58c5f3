package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "dealbase/internal/errors"
	"dealbase/internal/services"
	"dealbase/pkg/contracts/domain"
)

// ValuationHandler exposes valuation runs.
type ValuationHandler struct {
	service  *services.ValuationService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValuationHandler creates a new valuation handler.
func NewValuationHandler(service *services.ValuationService, logger *slog.Logger) *ValuationHandler {
	return &ValuationHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With(slog.String("handler", "valuation")),
	}
}

// RunRequest is the body of POST /api/deals/{dealID}/valuations.
type RunRequest struct {
	Name        string             `json:"name" validate:"omitempty,max=200"`
	Assumptions domain.Assumptions `json:"assumptions"`
}

// Run handles POST /api/deals/{dealID}/valuations.
func (h *ValuationHandler) Run(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	var req RunRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			renderError(w, r, h.logger, apierrors.ErrInvalidRequest)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			renderError(w, r, h.logger, apierrors.ErrValidation("body", err.Error()))
			return
		}
	}

	run, err := h.service.Run(r.Context(), dealID, req.Name, req.Assumptions)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, run)
}

// List handles GET /api/deals/{dealID}/valuations.
func (h *ValuationHandler) List(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	runs, err := h.service.List(r.Context(), dealID)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, runs)
}
