package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/geocode"
	"carpool/internal/observability"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// RideService handles the ride lifecycle.
type RideService struct {
	store     repository.Store
	tx        repository.Transactor
	aggregate *rideAggregate
	chat      *ChatSynchronizer
	resolver  geocode.Resolver // optional
	router    geocode.Router   // optional
	publisher events.Publisher
	log       *zap.Logger
}

// NewRideService creates a new RideService. resolver and router may be nil,
// in which case rides are stored without coordinates or arrival estimate.
func NewRideService(
	store repository.Store,
	tx repository.Transactor,
	locks redis.LockStoreInterface,
	chat *ChatSynchronizer,
	resolver geocode.Resolver,
	router geocode.Router,
	publisher events.Publisher,
	lockOpts LockOptions,
	log *zap.Logger,
) *RideService {
	log = serviceLogger(log, "ride")
	return &RideService{
		store:     store,
		tx:        tx,
		aggregate: newRideAggregate(tx, locks, lockOpts, log),
		chat:      chat,
		resolver:  resolver,
		router:    router,
		publisher: publisher,
		log:       log,
	}
}

// CreateRideRequest contains the parameters for posting a ride.
type CreateRideRequest struct {
	OrganizerID  string
	Origin       string
	Destination  string
	DepartureAt  time.Time
	TotalSeats   int
	VehicleType  domain.VehicleType
	TotalPrice   float64 // cab
	PricePerSeat float64 // own
	Contact      domain.Contact
}

// CreateRide posts a ride and opens its chat room in one transaction.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if req.OrganizerID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	ride := &domain.Ride{
		ID:             uuid.New().String(),
		OrganizerID:    req.OrganizerID,
		Origin:         strings.TrimSpace(req.Origin),
		Destination:    strings.TrimSpace(req.Destination),
		DepartureAt:    req.DepartureAt,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
		VehicleType:    req.VehicleType,
		Status:         domain.RideStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Cab rides split a total fare, own-vehicle rides charge per seat.
	switch req.VehicleType {
	case domain.VehicleTypeCab:
		ride.TotalPrice = req.TotalPrice
	case domain.VehicleTypeOwn:
		ride.PricePerSeat = req.PricePerSeat
	}

	s.locate(ctx, ride)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		if err := store.Rides.Create(ctx, ride); err != nil {
			return fmt.Errorf("create ride: %w", err)
		}
		_, err := s.chat.OnRideCreated(ctx, store, ride, req.Contact)
		return err
	})
	if err != nil {
		return nil, err
	}

	annotate(ctx, map[string]any{"ride_id": ride.ID})
	s.log.Info("ride created",
		zap.String("ride_id", ride.ID),
		zap.String("organizer_id", ride.OrganizerID),
		zap.Int("total_seats", ride.TotalSeats),
		zap.String("estimated_arrival", ride.ArrivalLabel()))

	publish(ctx, s.publisher, s.log, events.New(events.TypeRideCreated, ride.ID, ride.OrganizerID, map[string]any{
		"origin":       ride.Origin,
		"destination":  ride.Destination,
		"departure_at": ride.DepartureAt,
		"total_seats":  ride.TotalSeats,
	}))

	return ride, nil
}

// locate fills in coordinates and the arrival estimate. Every step is
// best-effort: provider failures leave the fields empty.
func (s *RideService) locate(ctx context.Context, ride *domain.Ride) {
	if s.resolver != nil {
		ride.OriginCoords = s.resolveCoords(ctx, ride.Origin)
		ride.DestinationCoords = s.resolveCoords(ctx, ride.Destination)
	}

	if s.router == nil || ride.OriginCoords == nil || ride.DestinationCoords == nil {
		return
	}
	d, err := s.router.Route(ctx, *ride.OriginCoords, *ride.DestinationCoords, ride.DepartureAt)
	if err != nil {
		s.log.Warn("arrival estimate failed", zap.String("ride_id", ride.ID), zap.Error(err))
		return
	}
	arrival := ride.DepartureAt.Add(d)
	ride.EstimatedArrivalAt = &arrival
}

func (s *RideService) resolveCoords(ctx context.Context, address string) *domain.Coordinates {
	place, err := s.resolver.Resolve(ctx, address)
	if err != nil {
		s.log.Warn("geocode failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	return place.Coordinates
}

func validateCreateRequest(req CreateRideRequest) error {
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return ErrInvalidLocation
	}
	if req.DepartureAt.IsZero() {
		return ErrInvalidSchedule
	}
	if req.TotalSeats < 1 {
		return ErrInvalidSeatCount
	}

	switch req.VehicleType {
	case domain.VehicleTypeCab:
		if req.TotalPrice < 0 {
			return ErrInvalidPricing
		}
	case domain.VehicleTypeOwn:
		if req.PricePerSeat < 0 {
			return ErrInvalidPricing
		}
	default:
		return ErrInvalidVehicleType
	}

	return nil
}

// GetRide retrieves a live ride.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	return s.store.Rides.GetByID(ctx, rideID)
}

// ResizeRideRequest contains the parameters for changing a ride's capacity.
type ResizeRideRequest struct {
	RideID        string
	NewTotalSeats int
	RequesterID   string
}

// ResizeRide changes the seat count. It cannot drop below the seats
// already booked.
func (s *RideService) ResizeRide(ctx context.Context, req ResizeRideRequest) (*domain.Ride, error) {
	if req.RequesterID == "" {
		return nil, ErrUnauthenticated
	}
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.NewTotalSeats < 1 {
		return nil, ErrInvalidSeatCount
	}

	var updated *domain.Ride
	err := s.aggregate.mutate(ctx, req.RideID, func(ctx context.Context, store repository.Store, ride *domain.Ride) error {
		if !ride.IsOrganizer(req.RequesterID) {
			return ErrUnauthorized
		}

		active, err := store.Bookings.CountActiveByRide(ctx, ride.ID)
		if err != nil {
			return fmt.Errorf("count bookings: %w", err)
		}
		if req.NewTotalSeats < active {
			return ErrBelowCurrentOccupancy
		}

		ride.TotalSeats = req.NewTotalSeats
		ride.ApplyOccupancy(active)
		ride.UpdatedAt = time.Now()
		if err := store.Rides.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		updated = ride
		return nil
	})

	observability.BookingOperationsTotal.WithLabelValues("resize", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info("ride resized",
		zap.String("ride_id", updated.ID),
		zap.Int("total_seats", updated.TotalSeats),
		zap.Int("available_seats", updated.AvailableSeats))

	publish(ctx, s.publisher, s.log, events.New(events.TypeRideResized, updated.ID, req.RequesterID, map[string]any{
		"total_seats":     updated.TotalSeats,
		"available_seats": updated.AvailableSeats,
		"status":          string(updated.Status),
	}))

	return updated, nil
}

// CancelRide moves the ride to the history of the owner who cancelled it,
// which is the legacy creator when that is who asked. Its bookings and chat
// room are removed in the same transaction.
func (s *RideService) CancelRide(ctx context.Context, rideID, requesterID string) (*domain.RideHistoryEntry, error) {
	if requesterID == "" {
		return nil, ErrUnauthenticated
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	var entry *domain.RideHistoryEntry
	var riders []string
	err := s.aggregate.mutate(ctx, rideID, func(ctx context.Context, store repository.Store, ride *domain.Ride) error {
		if !ride.IsOrganizer(requesterID) {
			return ErrUnauthorized
		}

		bookings, err := store.Bookings.ListActiveByRide(ctx, ride.ID)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		for _, b := range bookings {
			riders = append(riders, b.UserID)
		}

		removed, err := store.Bookings.DeleteByRide(ctx, ride.ID)
		if err != nil {
			return fmt.Errorf("delete bookings: %w", err)
		}
		if err := store.Chats.DeleteByRide(ctx, ride.ID); err != nil {
			return fmt.Errorf("delete chat room: %w", err)
		}

		now := time.Now()
		ride.Status = domain.RideStatusCancelled
		ride.CancelledAt = now
		ride.UpdatedAt = now

		entry = &domain.RideHistoryEntry{
			ID:              uuid.New().String(),
			UserID:          requesterID,
			Ride:            *ride,
			RemovedBookings: removed,
			CreatedAt:       now,
		}
		if err := store.History.Create(ctx, entry); err != nil {
			return fmt.Errorf("create history entry: %w", err)
		}

		if err := store.Rides.Delete(ctx, ride.ID); err != nil {
			return fmt.Errorf("delete ride: %w", err)
		}
		return nil
	})

	observability.BookingOperationsTotal.WithLabelValues("cancel_ride", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info("ride cancelled",
		zap.String("ride_id", rideID),
		zap.Int("removed_bookings", entry.RemovedBookings))

	publish(ctx, s.publisher, s.log, events.New(events.TypeRideCancelled, rideID, requesterID, map[string]any{
		"removed_riders": riders,
	}))

	return entry, nil
}

// ListHistory returns the caller's cancelled rides.
func (s *RideService) ListHistory(ctx context.Context, userID string) ([]*domain.RideHistoryEntry, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	return s.store.History.ListByUser(ctx, userID)
}
