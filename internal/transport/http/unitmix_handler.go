package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "dealbase/internal/errors"
	"dealbase/internal/services"
	"dealbase/internal/unitmix"
	"dealbase/pkg/contracts/domain"
)

// UnitMixHandler exposes the unit mix lifecycle.
type UnitMixHandler struct {
	service  *services.UnitMixService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewUnitMixHandler creates a new unit mix handler.
func NewUnitMixHandler(service *services.UnitMixService, logger *slog.Logger) *UnitMixHandler {
	return &UnitMixHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With(slog.String("handler", "unitmix")),
	}
}

// Get handles GET /api/deals/{dealID}/unit-mix.
func (h *UnitMixHandler) Get(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	groupBy := r.URL.Query().Get("group_by")
	if groupBy != "" && !domain.ValidGroupBy(groupBy) {
		renderError(w, r, h.logger, apierrors.ErrValidation("group_by", "must be unit_type, unit_label or square_feet"))
		return
	}

	mix, err := h.service.Get(r.Context(), dealID, groupBy)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, mix)
}

// DeriveRequest is the body of POST /api/deals/{dealID}/unit-mix/derive.
type DeriveRequest struct {
	GroupBy string `json:"group_by" validate:"omitempty,oneof=unit_type unit_label square_feet"`
}

// Derive handles POST /api/deals/{dealID}/unit-mix/derive.
func (h *UnitMixHandler) Derive(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	var req DeriveRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			renderError(w, r, h.logger, apierrors.ErrInvalidRequest)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			renderError(w, r, h.logger, apierrors.ErrValidation("group_by", err.Error()))
			return
		}
	}

	mix, err := h.service.Derive(r.Context(), dealID, req.GroupBy)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, mix)
}

// AddGroup handles POST /api/deals/{dealID}/unit-mix/groups.
func (h *UnitMixHandler) AddGroup(w http.ResponseWriter, r *http.Request) {
	dealID, err := dealIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	var edit unitmix.ManualEdit
	if err := render.DecodeJSON(r.Body, &edit); err != nil {
		renderError(w, r, h.logger, apierrors.ErrInvalidRequest)
		return
	}
	if err := h.validate.Struct(edit); err != nil {
		renderError(w, r, h.logger, apierrors.ErrValidation("body", err.Error()))
		return
	}

	group, err := h.service.AddManualGroup(r.Context(), dealID, edit)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, group)
}

// EditGroup handles PATCH /api/unit-mix/groups/{groupID}.
func (h *UnitMixHandler) EditGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	var edit unitmix.ManualEdit
	if err := render.DecodeJSON(r.Body, &edit); err != nil {
		renderError(w, r, h.logger, apierrors.ErrInvalidRequest)
		return
	}
	if err := h.validate.Struct(edit); err != nil {
		renderError(w, r, h.logger, apierrors.ErrValidation("body", err.Error()))
		return
	}

	group, err := h.service.EditGroup(r.Context(), groupID, edit)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, group)
}

// UnlinkGroup handles POST /api/unit-mix/groups/{groupID}/unlink.
func (h *UnitMixHandler) UnlinkGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	group, err := h.service.UnlinkGroup(r.Context(), groupID)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, group)
}

// DeleteGroup handles DELETE /api/unit-mix/groups/{groupID}.
func (h *UnitMixHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := groupIDParam(r)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	if err := h.service.DeleteGroup(r.Context(), groupID); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	render.NoContent(w, r)
}
