// Package events publishes ride domain events to a message broker.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies a domain event and doubles as its routing key.
type Type string

const (
	TypeRideCreated           Type = "ride.created"
	TypeRideResized           Type = "ride.resized"
	TypeRideCancelled         Type = "ride.cancelled"
	TypeBookingCreated        Type = "booking.created"
	TypeBookingRemoved        Type = "booking.removed"
	TypeChatMembershipChanged Type = "chat.membership_changed"
)

// Event is the envelope published for every state change.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	RideID     string         `json:"ride_id"`
	UserID     string         `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New creates an event with a fresh id and timestamp.
func New(t Type, rideID, userID string, data map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		RideID:     rideID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers events. Callers publish after their transaction has
// committed and treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
