package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"dealbase/pkg/contracts/domain"
)

// APIError represents a structured, user-facing error response. The four
// fatal pipeline errors (UNREADABLE_FILE, UNMAPPABLE_SCHEMA,
// NO_UNIT_ROWS_REMAINING, MISSING_FINANCIAL_DATA) and the
// LINKED_GROUP_IMMUTABLE rejection are all expressed as APIError values so
// callers get an actionable message rather than a stack trace.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError with the given parameters.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Stable error codes for the parsing and valuation pipeline.
const (
	CodeUnreadableFile       = "UNREADABLE_FILE"
	CodeUnmappableSchema     = "UNMAPPABLE_SCHEMA"
	CodeNoUnitRowsRemaining  = "NO_UNIT_ROWS_REMAINING"
	CodeMissingFinancialData = "MISSING_FINANCIAL_DATA"
	CodeLinkedGroupImmutable = "LINKED_GROUP_IMMUTABLE"
)

// Predefined errors for common scenarios.
var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrDealNotFound     = New(http.StatusNotFound, "DEAL_NOT_FOUND", "Deal not found")
	ErrNotFound         = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrInternalServer   = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// UnreadableFile reports that no decoder could parse the uploaded bytes,
// naming the encodings or engines that were attempted.
func UnreadableFile(attempted []string) *APIError {
	return NewWithDetails(
		http.StatusUnprocessableEntity,
		CodeUnreadableFile,
		fmt.Sprintf("File could not be read; attempted: %s", strings.Join(attempted, ", ")),
		attempted,
	)
}

// UnmappableSchema reports that one or more required canonical fields could
// not be located among the file's columns.
func UnmappableSchema(missing ...string) *APIError {
	return NewWithDetails(
		http.StatusUnprocessableEntity,
		CodeUnmappableSchema,
		fmt.Sprintf("Required column(s) could not be detected: %s", strings.Join(missing, ", ")),
		missing,
	)
}

// NoUnitRowsRemaining reports that row classification filtered every row,
// carrying the per-category drop counts for diagnosis.
func NoUnitRowsRemaining(dropped domain.RowsDropped) *APIError {
	return NewWithDetails(
		http.StatusUnprocessableEntity,
		CodeNoUnitRowsRemaining,
		"No unit rows remained after filtering blank, header, total and applicant rows",
		dropped,
	)
}

// MissingFinancialData reports a valuation attempt on a deal with no period
// financial records.
func MissingFinancialData(dealID int64) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeMissingFinancialData,
		"No period financial records exist for this deal; upload a T-12 before running a valuation",
		dealID,
	)
}

// LinkedGroupImmutable rejects deletion or field edits of a unit mix group
// that is still linked to its source rent roll.
func LinkedGroupImmutable() *APIError {
	return New(
		http.StatusConflict,
		CodeLinkedGroupImmutable,
		"Unit mix group is linked to the rent roll and cannot be deleted or edited; unlink first",
	)
}

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrValidation creates a validation error with field details.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NotFoundError creates a not found error naming the resource.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource), resource)
}

// Code extracts the stable error code from err, or "" when err is not an
// APIError.
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode
	}
	return ""
}

// IsCode reports whether err carries the given stable error code.
func IsCode(err error, code string) bool {
	return Code(err) == code
}

// AsAPIError converts any error to an APIError, wrapping unknown errors as
// internal server errors so no raw error text leaks unclassified.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewWithDetails(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error", err.Error())
}

// ErrorResponse represents a standard error response envelope.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{Success: false, Error: err}
}

// Render implements the render.Renderer interface.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}
