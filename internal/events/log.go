package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the application log. Used when no broker
// is configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log.With(zap.String("component", "events"))}
}

// Publish logs event.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.log.Info("event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("ride_id", event.RideID),
		zap.String("user_id", event.UserID),
		zap.Any("data", event.Data),
	)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
