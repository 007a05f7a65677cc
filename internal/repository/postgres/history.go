package postgres

import (
	"context"
	"encoding/json"
	"time"

	"carpool/internal/domain"
)

// HistoryRepository is a PostgreSQL implementation of repository.HistoryRepository.
// The ride snapshot is stored as JSONB so later schema changes to rides do
// not rewrite history.
type HistoryRepository struct {
	q Querier
}

// NewHistoryRepository creates a PostgreSQL history repository over q, which is
// either the connection pool or a transaction.
func NewHistoryRepository(q Querier) *HistoryRepository {
	return &HistoryRepository{q: q}
}

// rideSnapshot is the JSON shape of a ride inside ride_history.snapshot.
type rideSnapshot struct {
	ID                 string              `json:"id"`
	OrganizerID        string              `json:"organizer_id"`
	LegacyCreatedBy    string              `json:"created_by,omitempty"`
	Origin             string              `json:"origin"`
	Destination        string              `json:"destination"`
	OriginCoords       *domain.Coordinates `json:"origin_coords,omitempty"`
	DestinationCoords  *domain.Coordinates `json:"destination_coords,omitempty"`
	DepartureAt        time.Time           `json:"departure_at"`
	EstimatedArrivalAt *time.Time          `json:"estimated_arrival_at,omitempty"`
	TotalSeats         int                 `json:"total_seats"`
	AvailableSeats     int                 `json:"available_seats"`
	VehicleType        domain.VehicleType  `json:"vehicle_type"`
	TotalPrice         float64             `json:"total_price,omitempty"`
	PricePerSeat       float64             `json:"price_per_seat,omitempty"`
	Status             domain.RideStatus   `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
	CancelledAt        time.Time           `json:"cancelled_at"`
}

func newRideSnapshot(ride domain.Ride) rideSnapshot {
	return rideSnapshot{
		ID:                 ride.ID,
		OrganizerID:        ride.OrganizerID,
		LegacyCreatedBy:    ride.LegacyCreatedBy,
		Origin:             ride.Origin,
		Destination:        ride.Destination,
		OriginCoords:       ride.OriginCoords,
		DestinationCoords:  ride.DestinationCoords,
		DepartureAt:        ride.DepartureAt,
		EstimatedArrivalAt: ride.EstimatedArrivalAt,
		TotalSeats:         ride.TotalSeats,
		AvailableSeats:     ride.AvailableSeats,
		VehicleType:        ride.VehicleType,
		TotalPrice:         ride.TotalPrice,
		PricePerSeat:       ride.PricePerSeat,
		Status:             ride.Status,
		CreatedAt:          ride.CreatedAt,
		CancelledAt:        ride.CancelledAt,
	}
}

func (s rideSnapshot) toRide() domain.Ride {
	return domain.Ride{
		ID:                 s.ID,
		OrganizerID:        s.OrganizerID,
		LegacyCreatedBy:    s.LegacyCreatedBy,
		Origin:             s.Origin,
		Destination:        s.Destination,
		OriginCoords:       s.OriginCoords,
		DestinationCoords:  s.DestinationCoords,
		DepartureAt:        s.DepartureAt,
		EstimatedArrivalAt: s.EstimatedArrivalAt,
		TotalSeats:         s.TotalSeats,
		AvailableSeats:     s.AvailableSeats,
		VehicleType:        s.VehicleType,
		TotalPrice:         s.TotalPrice,
		PricePerSeat:       s.PricePerSeat,
		Status:             s.Status,
		CreatedAt:          s.CreatedAt,
		CancelledAt:        s.CancelledAt,
	}
}

// Create persists a history entry.
func (r *HistoryRepository) Create(ctx context.Context, entry *domain.RideHistoryEntry) error {
	snapshot, err := json.Marshal(newRideSnapshot(entry.Ride))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ride_history (id, user_id, ride_id, snapshot, removed_bookings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.q.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Ride.ID,
		snapshot,
		entry.RemovedBookings,
		entry.CreatedAt,
	)
	return err
}

// ListByUser retrieves a user's history, most recent first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.RideHistoryEntry, error) {
	query := `
		SELECT id, user_id, snapshot, removed_bookings, created_at
		FROM ride_history WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.RideHistoryEntry
	for rows.Next() {
		var entry domain.RideHistoryEntry
		var raw []byte
		if err := rows.Scan(&entry.ID, &entry.UserID, &raw, &entry.RemovedBookings, &entry.CreatedAt); err != nil {
			return nil, err
		}

		var snap rideSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, err
		}
		entry.Ride = snap.toRide()
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
