package repository

import (
	"context"

	"carpool/internal/domain"
)

// ChatRepository defines the persistence operations for ride chat rooms.
type ChatRepository interface {
	// Create persists a new chat room together with its participants.
	Create(ctx context.Context, room *domain.ChatRoom) error

	// GetByRideID retrieves the chat room of a ride.
	GetByRideID(ctx context.Context, rideID string) (*domain.ChatRoom, error)

	// AddParticipant adds a member. Adding an existing member is a no-op.
	AddParticipant(ctx context.Context, roomID string, participant domain.Participant) error

	// RemoveParticipant removes a member. Removing a non-member is a no-op.
	RemoveParticipant(ctx context.Context, roomID, userID string) error

	// DeleteByRide removes the chat room of a ride, if any.
	DeleteByRide(ctx context.Context, rideID string) error
}
