package service

import "errors"

var (
	// ErrUnauthenticated is returned when an operation is called without a caller identity.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrUnauthorized is returned when the caller may not perform the operation:
	// a non-organizer acting on someone else's ride, or an organizer booking their own ride.
	ErrUnauthorized = errors.New("not authorized for this ride")

	// ErrAlreadyBooked is returned when the rider already holds a seat on the ride.
	ErrAlreadyBooked = errors.New("ride already booked by this user")

	// ErrRideFull is returned when no seat is left.
	ErrRideFull = errors.New("ride is full")

	// ErrBelowCurrentOccupancy is returned when resizing below the number of booked seats.
	ErrBelowCurrentOccupancy = errors.New("seat count below current occupancy")

	// ErrCannotRemoveOrganizer is returned when the organizer is targeted by a seat release.
	ErrCannotRemoveOrganizer = errors.New("organizer cannot be removed from own ride")

	// ErrBookingNotFound is returned when the user holds no active booking on the ride.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrChatRoomNotFound is returned when a ride has no chat room.
	ErrChatRoomNotFound = errors.New("chat room not found")

	// ErrRideBusy is returned when the ride lock could not be acquired in time.
	ErrRideBusy = errors.New("ride is being modified, try again")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidUserID is returned when a target user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidSeatCount is returned when a seat count is below 1.
	ErrInvalidSeatCount = errors.New("seat count must be at least 1")

	// ErrInvalidSchedule is returned when the departure time is missing.
	ErrInvalidSchedule = errors.New("invalid departure time")

	// ErrInvalidLocation is returned when origin or destination is blank.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidPricing is returned when the price does not fit the vehicle type.
	ErrInvalidPricing = errors.New("invalid pricing for vehicle type")

	// ErrInvalidVehicleType is returned for a vehicle type other than cab or own.
	ErrInvalidVehicleType = errors.New("invalid vehicle type")

	// ErrInvalidDateRange is returned when a search range ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range")
)
