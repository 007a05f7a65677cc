package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// ContactRequest is the contact snapshot shared with a ride's chat room.
type ContactRequest struct {
	Name  string `json:"name" validate:"max=100"`
	Phone string `json:"phone" validate:"max=32"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (r ContactRequest) toDomain() domain.Contact {
	return domain.Contact{Name: r.Name, Phone: r.Phone, Email: r.Email}
}

// CreateRideRequest is the HTTP request body for posting a ride.
type CreateRideRequest struct {
	Origin       string         `json:"origin" validate:"required,max=255"`
	Destination  string         `json:"destination" validate:"required,max=255"`
	DepartureAt  time.Time      `json:"departure_at" validate:"required"`
	TotalSeats   int            `json:"total_seats" validate:"required,min=1"`
	VehicleType  string         `json:"vehicle_type" validate:"required,oneof=cab own"`
	TotalPrice   float64        `json:"total_price" validate:"gte=0"`
	PricePerSeat float64        `json:"price_per_seat" validate:"gte=0"`
	Contact      ContactRequest `json:"contact"`
}

// ResizeRideRequest is the HTTP request body for changing capacity.
type ResizeRideRequest struct {
	TotalSeats int `json:"total_seats" validate:"required,min=1"`
}

// CoordinatesResponse is a point on the map.
type CoordinatesResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                 string               `json:"id"`
	OrganizerID        string               `json:"organizer_id"`
	Origin             string               `json:"origin"`
	Destination        string               `json:"destination"`
	OriginCoords       *CoordinatesResponse `json:"origin_coords,omitempty"`
	DestinationCoords  *CoordinatesResponse `json:"destination_coords,omitempty"`
	DepartureAt        time.Time            `json:"departure_at"`
	EstimatedArrivalAt string               `json:"estimated_arrival_at"`
	TotalSeats         int                  `json:"total_seats"`
	AvailableSeats     int                  `json:"available_seats"`
	VehicleType        string               `json:"vehicle_type"`
	TotalPrice         float64              `json:"total_price,omitempty"`
	PricePerSeat       float64              `json:"price_per_seat,omitempty"`
	Status             string               `json:"status"`
	CreatedAt          time.Time            `json:"created_at"`
	CancelledAt        string               `json:"cancelled_at,omitempty"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:                 r.ID,
		OrganizerID:        r.OrganizerID,
		Origin:             r.Origin,
		Destination:        r.Destination,
		OriginCoords:       toCoordinatesResponse(r.OriginCoords),
		DestinationCoords:  toCoordinatesResponse(r.DestinationCoords),
		DepartureAt:        r.DepartureAt,
		EstimatedArrivalAt: r.ArrivalLabel(),
		TotalSeats:         r.TotalSeats,
		AvailableSeats:     r.AvailableSeats,
		VehicleType:        string(r.VehicleType),
		TotalPrice:         r.TotalPrice,
		PricePerSeat:       r.PricePerSeat,
		Status:             string(r.Status),
		CreatedAt:          r.CreatedAt,
	}
	if !r.CancelledAt.IsZero() {
		resp.CancelledAt = r.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	return out
}

func toCoordinatesResponse(c *domain.Coordinates) *CoordinatesResponse {
	if c == nil {
		return nil
	}
	return &CoordinatesResponse{Lat: c.Lat, Lng: c.Lng}
}

// HistoryEntryResponse is a cancelled ride kept in its organizer's history.
type HistoryEntryResponse struct {
	ID              string       `json:"id"`
	Ride            RideResponse `json:"ride"`
	RemovedBookings int          `json:"removed_bookings"`
	CreatedAt       time.Time    `json:"created_at"`
}

func toHistoryEntryResponse(e *domain.RideHistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:              e.ID,
		Ride:            toRideResponse(&e.Ride),
		RemovedBookings: e.RemovedBookings,
		CreatedAt:       e.CreatedAt,
	}
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if details := validateRequest(req); details != nil {
		respondValidation(c, details)
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		OrganizerID:  middleware.CallerID(c),
		Origin:       req.Origin,
		Destination:  req.Destination,
		DepartureAt:  req.DepartureAt,
		TotalSeats:   req.TotalSeats,
		VehicleType:  domain.VehicleType(req.VehicleType),
		TotalPrice:   req.TotalPrice,
		PricePerSeat: req.PricePerSeat,
		Contact:      req.Contact.toDomain(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ResizeRide handles PATCH /v1/rides/:id/seats
func (h *RideHandler) ResizeRide(c *gin.Context) {
	var req ResizeRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if details := validateRequest(req); details != nil {
		respondValidation(c, details)
		return
	}

	ride, err := h.rideService.ResizeRide(c.Request.Context(), service.ResizeRideRequest{
		RideID:        c.Param("id"),
		NewTotalSeats: req.TotalSeats,
		RequesterID:   middleware.CallerID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	entry, err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toHistoryEntryResponse(entry))
}

// ListHistory handles GET /v1/me/history
func (h *RideHandler) ListHistory(c *gin.Context) {
	entries, err := h.rideService.ListHistory(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, toHistoryEntryResponse(e))
	}
	respondJSON(c, http.StatusOK, response)
}
