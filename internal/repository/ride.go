package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// RideFilter narrows the open-ride listing used by search.
type RideFilter struct {
	// ExcludeOrganizer drops rides owned by this user.
	ExcludeOrganizer string

	// DepartFrom and DepartTo bound the departure time, inclusive.
	// Zero values leave the bound open.
	DepartFrom time.Time
	DepartTo   time.Time

	// After resumes the listing strictly after this position in
	// (departure, id) order. Nil starts from the beginning.
	After *RideCursor

	// Limit caps the number of rides returned. Zero means no cap.
	Limit int
}

// RideCursor is a position in the (departure, id) ordering of ListOpen.
type RideCursor struct {
	DepartureAt time.Time
	ID          string
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByIDForUpdate retrieves a ride by ID and locks it until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error)

	// ListOpen retrieves non-cancelled rides with free seats ordered by
	// departure then id.
	ListOpen(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// Update updates an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error

	// Delete removes a ride from the live set.
	Delete(ctx context.Context, id string) error
}
