package domain

import "time"

// RideHistoryEntry is a snapshot of a cancelled ride kept for its organizer.
type RideHistoryEntry struct {
	ID              string
	UserID          string
	Ride            Ride
	RemovedBookings int
	CreatedAt       time.Time
}
