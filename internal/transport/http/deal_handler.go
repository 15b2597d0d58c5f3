package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "dealbase/internal/errors"
	"dealbase/internal/services"
)

// DealHandler exposes the deal registry.
type DealHandler struct {
	service  *services.DealService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewDealHandler creates a new deal handler.
func NewDealHandler(service *services.DealService, logger *slog.Logger) *DealHandler {
	return &DealHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With(slog.String("handler", "deals")),
	}
}

// CreateDealRequest is the body of POST /api/deals.
type CreateDealRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	PropertyType string `json:"property_type" validate:"omitempty,max=100"`
}

// Create handles POST /api/deals.
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDealRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, h.logger, apierrors.ErrInvalidRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		renderError(w, r, h.logger, apierrors.ErrValidation("name", err.Error()))
		return
	}

	deal, err := h.service.Create(r.Context(), req.Name, req.PropertyType)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, deal)
}

// Get handles GET /api/deals/{dealID}.
func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	deal, err := h.service.Get(r.Context(), dealID)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, deal)
}

// List handles GET /api/deals.
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	deals, err := h.service.List(r.Context())
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, deals)
}

// AuditTrail handles GET /api/deals/{dealID}/audit.
func (h *DealHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	events, err := h.service.AuditTrail(r.Context(), dealID)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, events)
}
