package repository

import (
	"context"

	"carpool/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking. Returns ErrDuplicate if the user
	// already holds an active booking on the ride.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetActive retrieves the active booking of a user on a ride.
	GetActive(ctx context.Context, rideID, userID string) (*domain.Booking, error)

	// ListActiveByRide retrieves all active bookings of a ride.
	ListActiveByRide(ctx context.Context, rideID string) ([]*domain.Booking, error)

	// ListActiveByUser retrieves all active bookings held by a user.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Booking, error)

	// CountActiveByRide counts active bookings of a ride.
	CountActiveByRide(ctx context.Context, rideID string) (int, error)

	// Delete removes a booking.
	Delete(ctx context.Context, id string) error

	// DeleteByRide removes every booking of a ride and returns how many
	// were removed.
	DeleteByRide(ctx context.Context, rideID string) (int, error)
}
