package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusActive BookingStatus = "active"
)

// Booking is a rider's claim on one seat of a ride. Released seats are
// deleted rather than soft-deleted.
type Booking struct {
	ID        string
	RideID    string
	UserID    string
	Status    BookingStatus
	Contact   Contact
	CreatedAt time.Time
}
