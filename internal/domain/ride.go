package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusActive    RideStatus = "active"
	RideStatusFull      RideStatus = "full"
	RideStatusCancelled RideStatus = "cancelled"
)

// VehicleType decides how a ride is priced.
type VehicleType string

const (
	VehicleTypeCab VehicleType = "cab" // priced as a total fare split by riders
	VehicleTypeOwn VehicleType = "own" // priced per seat
)

// Ride represents a posted offer to share a vehicle.
type Ride struct {
	ID          string
	OrganizerID string

	// LegacyCreatedBy carries the historical createdBy owner key of
	// imported records. New rides never set it.
	LegacyCreatedBy string

	Origin            string
	Destination       string
	OriginCoords      *Coordinates
	DestinationCoords *Coordinates

	DepartureAt        time.Time
	EstimatedArrivalAt *time.Time // nil when no route estimate could be made

	TotalSeats     int
	AvailableSeats int

	VehicleType  VehicleType
	TotalPrice   float64 // cab only
	PricePerSeat float64 // own only

	Status      RideStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt time.Time
}

// IsOrganizer reports whether userID owns the ride.
func (r *Ride) IsOrganizer(userID string) bool {
	if userID == "" {
		return false
	}
	return r.OrganizerID == userID || r.LegacyCreatedBy == userID
}

// ApplyOccupancy recomputes the seat count and status from the number of
// active bookings. Cancelled rides keep their status.
func (r *Ride) ApplyOccupancy(activeBookings int) {
	available := r.TotalSeats - activeBookings
	if available < 0 {
		available = 0
	}
	r.AvailableSeats = available

	if r.Status == RideStatusCancelled {
		return
	}
	if available == 0 {
		r.Status = RideStatusFull
	} else {
		r.Status = RideStatusActive
	}
}

// Bookable reports whether the ride accepts new bookings.
func (r *Ride) Bookable() bool {
	return r.Status != RideStatusCancelled && r.AvailableSeats > 0
}

// ArrivalLabel renders the estimated arrival for display.
func (r *Ride) ArrivalLabel() string {
	if r.EstimatedArrivalAt == nil {
		return "Unknown"
	}
	return r.EstimatedArrivalAt.Format(time.RFC3339)
}
