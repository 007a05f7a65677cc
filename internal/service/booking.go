package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/observability"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// BookingService books and releases seats.
type BookingService struct {
	store     repository.Store
	aggregate *rideAggregate
	chat      *ChatSynchronizer
	publisher events.Publisher
	log       *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	store repository.Store,
	tx repository.Transactor,
	locks redis.LockStoreInterface,
	chat *ChatSynchronizer,
	publisher events.Publisher,
	lockOpts LockOptions,
	log *zap.Logger,
) *BookingService {
	log = serviceLogger(log, "booking")
	return &BookingService{
		store:     store,
		aggregate: newRideAggregate(tx, locks, lockOpts, log),
		chat:      chat,
		publisher: publisher,
		log:       log,
	}
}

// BookRequest contains the parameters for booking a seat.
type BookRequest struct {
	RideID  string
	RiderID string
	Contact domain.Contact // shared with the ride's chat room
}

// BookResult contains the result of a successful booking.
type BookResult struct {
	Booking *domain.Booking
	Ride    *domain.Ride
}

// Book claims one seat for the rider. The checks run in order: the
// organizer cannot book, a rider holds at most one seat, a seat must be free.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	if req.RiderID == "" {
		return nil, ErrUnauthenticated
	}
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	var result BookResult
	err := s.aggregate.mutate(ctx, req.RideID, func(ctx context.Context, store repository.Store, ride *domain.Ride) error {
		if ride.IsOrganizer(req.RiderID) {
			return ErrUnauthorized
		}
		if ride.Status == domain.RideStatusCancelled {
			return repository.ErrNotFound
		}

		_, err := store.Bookings.GetActive(ctx, ride.ID, req.RiderID)
		if err == nil {
			return ErrAlreadyBooked
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("get booking: %w", err)
		}

		active, err := recount(ctx, store, ride)
		if err != nil {
			return err
		}
		if ride.AvailableSeats == 0 {
			return ErrRideFull
		}

		now := time.Now()
		booking := &domain.Booking{
			ID:        uuid.New().String(),
			RideID:    ride.ID,
			UserID:    req.RiderID,
			Status:    domain.BookingStatusActive,
			Contact:   req.Contact,
			CreatedAt: now,
		}
		if err := store.Bookings.Create(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyBooked
			}
			return fmt.Errorf("create booking: %w", err)
		}

		ride.ApplyOccupancy(active + 1)
		ride.UpdatedAt = now
		if err := store.Rides.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		if err := s.chat.OnBooked(ctx, store, ride, domain.Participant{
			UserID:   req.RiderID,
			Contact:  req.Contact,
			JoinedAt: now,
		}); err != nil {
			return err
		}

		result = BookResult{Booking: booking, Ride: ride}
		return nil
	})

	observability.BookingOperationsTotal.WithLabelValues("book", outcome(err)).Inc()
	annotate(ctx, map[string]any{"ride_id": req.RideID, "booking_outcome": outcome(err)})
	if err != nil {
		return nil, err
	}

	observability.ChatMembershipChangesTotal.WithLabelValues("joined").Inc()
	s.log.Info("seat booked",
		zap.String("ride_id", req.RideID),
		zap.String("rider_id", req.RiderID),
		zap.Int("available_seats", result.Ride.AvailableSeats),
		zap.String("status", string(result.Ride.Status)))

	publish(ctx, s.publisher, s.log,
		events.New(events.TypeBookingCreated, req.RideID, req.RiderID, map[string]any{
			"booking_id":      result.Booking.ID,
			"available_seats": result.Ride.AvailableSeats,
			"status":          string(result.Ride.Status),
		}),
		events.New(events.TypeChatMembershipChanged, req.RideID, req.RiderID, map[string]any{"change": "joined"}),
	)

	return &result, nil
}

// RemoveParticipantRequest contains the parameters for removing a rider.
type RemoveParticipantRequest struct {
	RideID       string
	TargetUserID string
	RequesterID  string
}

// RemoveParticipant lets the organizer release another user's seat.
func (s *BookingService) RemoveParticipant(ctx context.Context, req RemoveParticipantRequest) (*domain.Ride, error) {
	if req.RequesterID == "" {
		return nil, ErrUnauthenticated
	}
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.TargetUserID == "" {
		return nil, ErrInvalidUserID
	}

	ride, err := s.release(ctx, "remove_participant", req.RideID, req.TargetUserID, func(ride *domain.Ride) error {
		if !ride.IsOrganizer(req.RequesterID) {
			return ErrUnauthorized
		}
		if ride.IsOrganizer(req.TargetUserID) {
			return ErrCannotRemoveOrganizer
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("participant removed",
		zap.String("ride_id", req.RideID),
		zap.String("user_id", req.TargetUserID),
		zap.String("requester_id", req.RequesterID))
	return ride, nil
}

// Leave releases the caller's own seat.
func (s *BookingService) Leave(ctx context.Context, rideID, riderID string) (*domain.Ride, error) {
	if riderID == "" {
		return nil, ErrUnauthenticated
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.release(ctx, "leave", rideID, riderID, func(ride *domain.Ride) error {
		if ride.IsOrganizer(riderID) {
			return ErrCannotRemoveOrganizer
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rider left", zap.String("ride_id", rideID), zap.String("user_id", riderID))
	return ride, nil
}

// release deletes userID's booking, frees the seat and drops them from chat.
// authorize runs first, against the locked ride.
func (s *BookingService) release(ctx context.Context, op, rideID, userID string, authorize func(*domain.Ride) error) (*domain.Ride, error) {
	var updated *domain.Ride
	err := s.aggregate.mutate(ctx, rideID, func(ctx context.Context, store repository.Store, ride *domain.Ride) error {
		if err := authorize(ride); err != nil {
			return err
		}

		booking, err := store.Bookings.GetActive(ctx, rideID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}

		if err := store.Bookings.Delete(ctx, booking.ID); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}

		if _, err := recount(ctx, store, ride); err != nil {
			return err
		}
		ride.UpdatedAt = time.Now()
		if err := store.Rides.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		if err := s.chat.OnRemoved(ctx, store, rideID, userID); err != nil {
			return err
		}

		updated = ride
		return nil
	})

	observability.BookingOperationsTotal.WithLabelValues(op, outcome(err)).Inc()
	annotate(ctx, map[string]any{"ride_id": rideID, "booking_outcome": outcome(err)})
	if err != nil {
		return nil, err
	}

	observability.ChatMembershipChangesTotal.WithLabelValues("left").Inc()
	publish(ctx, s.publisher, s.log,
		events.New(events.TypeBookingRemoved, rideID, userID, map[string]any{
			"reason":          op,
			"available_seats": updated.AvailableSeats,
			"status":          string(updated.Status),
		}),
		events.New(events.TypeChatMembershipChanged, rideID, userID, map[string]any{"change": "left"}),
	)
	return updated, nil
}

// UserBooking pairs a booking with its ride.
type UserBooking struct {
	Booking *domain.Booking
	Ride    *domain.Ride
}

// ListUserBookings returns the caller's active bookings. Bookings whose ride
// no longer exists are skipped.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]UserBooking, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	bookings, err := s.store.Bookings.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]UserBooking, 0, len(bookings))
	for _, b := range bookings {
		ride, err := s.store.Rides.GetByID(ctx, b.RideID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, UserBooking{Booking: b, Ride: ride})
	}
	return result, nil
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, ErrRideFull):
		return "ride_full"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrUnauthenticated):
		return "unauthorized"
	case errors.Is(err, ErrCannotRemoveOrganizer):
		return "cannot_remove_organizer"
	case errors.Is(err, ErrBelowCurrentOccupancy):
		return "below_occupancy"
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRideBusy):
		return "busy"
	default:
		return "error"
	}
}
