package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Unexpected errors are attached to the gin context for the access log and
// reported with a generic message.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondValidation sends the field errors of a rejected request body.
func respondValidation(c *gin.Context, details map[string]string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: details})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrChatRoomNotFound):
		return http.StatusNotFound

	// Missing identity
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidSeatCount),
		errors.Is(err, service.ErrInvalidSchedule),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidPricing),
		errors.Is(err, service.ErrInvalidVehicleType),
		errors.Is(err, service.ErrInvalidDateRange):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrAlreadyBooked),
		errors.Is(err, service.ErrRideFull),
		errors.Is(err, service.ErrBelowCurrentOccupancy),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrCannotRemoveOrganizer):
		return http.StatusForbidden

	// Lock contention, retryable
	case errors.Is(err, service.ErrRideBusy):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
