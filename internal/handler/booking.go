package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// BookingHandler handles HTTP requests for seats on a ride.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// BookRideRequest is the HTTP request body for booking a seat.
type BookRideRequest struct {
	Contact ContactRequest `json:"contact"`
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	ID        string       `json:"id"`
	RideID    string       `json:"ride_id"`
	UserID    string       `json:"user_id"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	Ride      RideResponse `json:"ride"`
}

func toBookingResponse(b *domain.Booking, r *domain.Ride) BookingResponse {
	return BookingResponse{
		ID:        b.ID,
		RideID:    b.RideID,
		UserID:    b.UserID,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		Ride:      toRideResponse(r),
	}
}

// Book handles POST /v1/rides/:id/bookings
func (h *BookingHandler) Book(c *gin.Context) {
	var req BookRideRequest
	// The body is optional; a rider may book without sharing contact details.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
		if details := validateRequest(req); details != nil {
			respondValidation(c, details)
			return
		}
	}

	result, err := h.bookingService.Book(c.Request.Context(), service.BookRequest{
		RideID:  c.Param("id"),
		RiderID: middleware.CallerID(c),
		Contact: req.Contact.toDomain(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(result.Booking, result.Ride))
}

// Leave handles DELETE /v1/rides/:id/bookings/me
func (h *BookingHandler) Leave(c *gin.Context) {
	ride, err := h.bookingService.Leave(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// RemoveParticipant handles DELETE /v1/rides/:id/participants/:userId
func (h *BookingHandler) RemoveParticipant(c *gin.Context) {
	ride, err := h.bookingService.RemoveParticipant(c.Request.Context(), service.RemoveParticipantRequest{
		RideID:       c.Param("id"),
		TargetUserID: c.Param("userId"),
		RequesterID:  middleware.CallerID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ListMine handles GET /v1/me/bookings
func (h *BookingHandler) ListMine(c *gin.Context) {
	bookings, err := h.bookingService.ListUserBookings(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BookingResponse, 0, len(bookings))
	for _, ub := range bookings {
		response = append(response, toBookingResponse(ub.Booking, ub.Ride))
	}
	respondJSON(c, http.StatusOK, response)
}
