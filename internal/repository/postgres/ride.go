package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a PostgreSQL ride repository over q, which is
// either the connection pool or a transaction.
func NewRideRepository(q Querier) *RideRepository {
	return &RideRepository{q: q}
}

const rideColumns = `id, organizer_id, created_by, origin, destination,
	origin_lat, origin_lng, destination_lat, destination_lng,
	departure_at, estimated_arrival_at, total_seats, available_seats,
	vehicle_type, total_price, price_per_seat, status, created_at, updated_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	originLat, originLng := coordsToNull(ride.OriginCoords)
	destLat, destLng := coordsToNull(ride.DestinationCoords)

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.OrganizerID,
		nullString(ride.LegacyCreatedBy),
		ride.Origin,
		ride.Destination,
		originLat,
		originLng,
		destLat,
		destLng,
		ride.DepartureAt,
		timeToNull(ride.EstimatedArrivalAt),
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.VehicleType,
		ride.TotalPrice,
		ride.PricePerSeat,
		ride.Status,
		ride.CreatedAt,
		ride.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a ride by ID holding a row lock. Only
// meaningful inside a transaction.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *RideRepository) getOne(ctx context.Context, query, id string) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// ListOpen retrieves non-cancelled rides with free seats, earliest departure
// first, one keyset page at a time when the filter sets After or Limit.
func (r *RideRepository) ListOpen(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	query, args := listOpenQuery(filter)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

func listOpenQuery(filter repository.RideFilter) (string, []any) {
	conditions := []string{"status <> 'cancelled'", "available_seats > 0"}
	var args []any

	if filter.ExcludeOrganizer != "" {
		args = append(args, filter.ExcludeOrganizer)
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("organizer_id <> $%d AND COALESCE(created_by, '') <> $%d", n, n))
	}
	if !filter.DepartFrom.IsZero() {
		args = append(args, filter.DepartFrom)
		conditions = append(conditions, fmt.Sprintf("departure_at >= $%d", len(args)))
	}
	if !filter.DepartTo.IsZero() {
		args = append(args, filter.DepartTo)
		conditions = append(conditions, fmt.Sprintf("departure_at <= $%d", len(args)))
	}
	if filter.After != nil {
		args = append(args, filter.After.DepartureAt, filter.After.ID)
		conditions = append(conditions, fmt.Sprintf("(departure_at, id) > ($%d, $%d)", len(args)-1, len(args)))
	}

	query := `SELECT ` + rideColumns + ` FROM rides WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY departure_at ASC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET origin = $1, destination = $2, origin_lat = $3, origin_lng = $4,
			destination_lat = $5, destination_lng = $6, departure_at = $7,
			estimated_arrival_at = $8, total_seats = $9, available_seats = $10,
			vehicle_type = $11, total_price = $12, price_per_seat = $13,
			status = $14, updated_at = $15
		WHERE id = $16
	`

	originLat, originLng := coordsToNull(ride.OriginCoords)
	destLat, destLng := coordsToNull(ride.DestinationCoords)

	result, err := r.q.ExecContext(ctx, query,
		ride.Origin,
		ride.Destination,
		originLat,
		originLng,
		destLat,
		destLng,
		ride.DepartureAt,
		timeToNull(ride.EstimatedArrivalAt),
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.VehicleType,
		ride.TotalPrice,
		ride.PricePerSeat,
		ride.Status,
		ride.UpdatedAt,
		ride.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a ride from the live set.
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM rides WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var createdBy sql.NullString
	var originLat, originLng, destLat, destLng sql.NullFloat64
	var arrival sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.OrganizerID,
		&createdBy,
		&ride.Origin,
		&ride.Destination,
		&originLat,
		&originLng,
		&destLat,
		&destLng,
		&ride.DepartureAt,
		&arrival,
		&ride.TotalSeats,
		&ride.AvailableSeats,
		&ride.VehicleType,
		&ride.TotalPrice,
		&ride.PricePerSeat,
		&ride.Status,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		ride.LegacyCreatedBy = createdBy.String
	}
	ride.OriginCoords = nullToCoords(originLat, originLng)
	ride.DestinationCoords = nullToCoords(destLat, destLng)
	if arrival.Valid {
		t := arrival.Time
		ride.EstimatedArrivalAt = &t
	}

	return &ride, nil
}

func coordsToNull(c *domain.Coordinates) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}

func nullToCoords(lat, lng sql.NullFloat64) *domain.Coordinates {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
}

func timeToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
