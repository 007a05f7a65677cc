// Package geocode adapts external geocoding and routing providers.
package geocode

import (
	"context"
	"errors"
	"time"

	"carpool/internal/domain"
)

var (
	// ErrNoResult is returned when the provider knows no place or route.
	ErrNoResult = errors.New("geocode: no result")

	// ErrProviderStatus is returned when the provider answers with a non-2xx status.
	ErrProviderStatus = errors.New("geocode: unexpected provider status")
)

// Resolver turns a free-text address into a structured place.
type Resolver interface {
	Resolve(ctx context.Context, address string) (*domain.Place, error)
}

// Router estimates travel time between two points.
type Router interface {
	Route(ctx context.Context, origin, destination domain.Coordinates, departure time.Time) (time.Duration, error)
}
