package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a PostgreSQL booking repository over q, which is
// either the connection pool or a transaction.
func NewBookingRepository(q Querier) *BookingRepository {
	return &BookingRepository{q: q}
}

const bookingColumns = `id, ride_id, user_id, status, contact_name, contact_phone, contact_email, created_at`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.RideID,
		booking.UserID,
		booking.Status,
		booking.Contact.Name,
		booking.Contact.Phone,
		booking.Contact.Email,
		booking.CreatedAt,
	)
	if err != nil {
		// bookings_active_ride_user_idx guards one active booking per (ride, user).
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetActive retrieves the active booking of a user on a ride.
func (r *BookingRepository) GetActive(ctx context.Context, rideID, userID string) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings WHERE ride_id = $1 AND user_id = $2 AND status = 'active'
	`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, rideID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

// ListActiveByRide retrieves all active bookings of a ride, oldest first.
func (r *BookingRepository) ListActiveByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings WHERE ride_id = $1 AND status = 'active'
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, rideID)
}

// ListActiveByUser retrieves all active bookings held by a user, newest first.
func (r *BookingRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *BookingRepository) list(ctx context.Context, query string, arg string) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// CountActiveByRide counts active bookings of a ride.
func (r *BookingRepository) CountActiveByRide(ctx context.Context, rideID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE ride_id = $1 AND status = 'active'`,
		rideID,
	).Scan(&count)
	return count, err
}

// Delete removes a booking.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteByRide removes every booking of a ride.
func (r *BookingRepository) DeleteByRide(ctx context.Context, rideID string) (int, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE ride_id = $1`, rideID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	if err := row.Scan(
		&booking.ID,
		&booking.RideID,
		&booking.UserID,
		&booking.Status,
		&booking.Contact.Name,
		&booking.Contact.Phone,
		&booking.Contact.Email,
		&booking.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &booking, nil
}
