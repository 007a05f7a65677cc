package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// ChatSynchronizer keeps a ride's chat membership equal to its organizer
// plus the riders holding active bookings. The On* hooks run inside the
// caller's transaction and receive its store.
type ChatSynchronizer struct {
	store repository.Store
	log   *zap.Logger
}

// NewChatSynchronizer creates a new ChatSynchronizer. store is used for reads
// outside of transactions.
func NewChatSynchronizer(store repository.Store, log *zap.Logger) *ChatSynchronizer {
	return &ChatSynchronizer{store: store, log: serviceLogger(log, "chat")}
}

// OnRideCreated creates the ride's room with the organizer as sole member.
func (s *ChatSynchronizer) OnRideCreated(ctx context.Context, store repository.Store, ride *domain.Ride, organizer domain.Contact) (*domain.ChatRoom, error) {
	room := newRoom(ride, domain.Participant{
		UserID:   ride.OrganizerID,
		Role:     domain.ParticipantRoleOrganizer,
		Contact:  organizer,
		JoinedAt: ride.CreatedAt,
	})

	if err := store.Chats.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create chat room: %w", err)
	}
	return room, nil
}

// OnBooked adds the rider to the ride's room. Re-adding a member is a no-op.
// A ride without a room gets one, so the rider is never left out.
func (s *ChatSynchronizer) OnBooked(ctx context.Context, store repository.Store, ride *domain.Ride, rider domain.Participant) error {
	rider.Role = domain.ParticipantRoleRider

	room, err := store.Chats.GetByRideID(ctx, ride.ID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("chat room missing, recreating", zap.String("ride_id", ride.ID))
		// The organizer's contact snapshot was only kept in the lost room,
		// so the organizer rejoins without one, as of the ride's creation.
		room = newRoom(ride,
			domain.Participant{
				UserID:   ride.OrganizerID,
				Role:     domain.ParticipantRoleOrganizer,
				JoinedAt: ride.CreatedAt,
			},
			rider,
		)
		if err := store.Chats.Create(ctx, room); err != nil {
			return fmt.Errorf("recreate chat room: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get chat room: %w", err)
	}

	if err := store.Chats.AddParticipant(ctx, room.ID, rider); err != nil {
		return fmt.Errorf("add chat participant: %w", err)
	}
	return nil
}

// OnRemoved drops userID from the ride's room. A missing room is ignored.
func (s *ChatSynchronizer) OnRemoved(ctx context.Context, store repository.Store, rideID, userID string) error {
	room, err := store.Chats.GetByRideID(ctx, rideID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get chat room: %w", err)
	}

	if err := store.Chats.RemoveParticipant(ctx, room.ID, userID); err != nil {
		return fmt.Errorf("remove chat participant: %w", err)
	}
	return nil
}

// GetRoom returns the ride's room to one of its members.
func (s *ChatSynchronizer) GetRoom(ctx context.Context, rideID, requesterID string) (*domain.ChatRoom, error) {
	if requesterID == "" {
		return nil, ErrUnauthenticated
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	room, err := s.store.Chats.GetByRideID(ctx, rideID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrChatRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	if !room.HasMember(requesterID) {
		return nil, ErrUnauthorized
	}
	return room, nil
}

func newRoom(ride *domain.Ride, participants ...domain.Participant) *domain.ChatRoom {
	return &domain.ChatRoom{
		ID:           uuid.New().String(),
		RideID:       ride.ID,
		OrganizerID:  ride.OrganizerID,
		Origin:       ride.Origin,
		Destination:  ride.Destination,
		DepartureAt:  ride.DepartureAt,
		Participants: participants,
		CreatedAt:    time.Now(),
	}
}
