package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "dealbase/internal/errors"
)

// renderError writes the standard error envelope for err, logging server
// faults at error level and client faults at warn.
func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr := apierrors.AsAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	} else {
		logger.WarnContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path),
			slog.String("error_code", apiErr.ErrorCode),
			slog.String("error", apiErr.Message))
	}
	render.Render(w, r, apierrors.NewErrorResponse(apiErr))
}

// dealIDParam extracts the {dealID} route parameter.
func dealIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "dealID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.ErrValidation("dealID", "must be a positive integer")
	}
	return id, nil
}

// groupIDParam extracts the {groupID} route parameter.
func groupIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "groupID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.ErrValidation("groupID", "must be a positive integer")
	}
	return id, nil
}
