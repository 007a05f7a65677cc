package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// ChatRepository is a PostgreSQL implementation of repository.ChatRepository.
// Rooms live in chat_rooms and members in chat_participants.
type ChatRepository struct {
	q Querier
}

// NewChatRepository creates a PostgreSQL chat repository over q, which is
// either the connection pool or a transaction.
func NewChatRepository(q Querier) *ChatRepository {
	return &ChatRepository{q: q}
}

// Create persists a new chat room together with its participants.
func (r *ChatRepository) Create(ctx context.Context, room *domain.ChatRoom) error {
	query := `
		INSERT INTO chat_rooms (id, ride_id, organizer_id, origin, destination, departure_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		room.ID,
		room.RideID,
		room.OrganizerID,
		room.Origin,
		room.Destination,
		room.DepartureAt,
		room.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	for _, p := range room.Participants {
		if err := r.AddParticipant(ctx, room.ID, p); err != nil {
			return err
		}
	}
	return nil
}

// GetByRideID retrieves the chat room of a ride with its participants.
func (r *ChatRepository) GetByRideID(ctx context.Context, rideID string) (*domain.ChatRoom, error) {
	query := `
		SELECT id, ride_id, organizer_id, origin, destination, departure_at, created_at
		FROM chat_rooms WHERE ride_id = $1
	`

	var room domain.ChatRoom
	err := r.q.QueryRowContext(ctx, query, rideID).Scan(
		&room.ID,
		&room.RideID,
		&room.OrganizerID,
		&room.Origin,
		&room.Destination,
		&room.DepartureAt,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	participants, err := r.listParticipants(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	room.Participants = participants

	return &room, nil
}

func (r *ChatRepository) listParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	query := `
		SELECT user_id, role, contact_name, contact_phone, contact_email, joined_at
		FROM chat_participants WHERE room_id = $1
		ORDER BY joined_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(
			&p.UserID,
			&p.Role,
			&p.Contact.Name,
			&p.Contact.Phone,
			&p.Contact.Email,
			&p.JoinedAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// AddParticipant adds a member. The primary key on (room_id, user_id)
// makes re-adding a no-op.
func (r *ChatRepository) AddParticipant(ctx context.Context, roomID string, p domain.Participant) error {
	query := `
		INSERT INTO chat_participants (room_id, user_id, role, contact_name, contact_phone, contact_email, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`

	_, err := r.q.ExecContext(ctx, query,
		roomID,
		p.UserID,
		p.Role,
		p.Contact.Name,
		p.Contact.Phone,
		p.Contact.Email,
		p.JoinedAt,
	)
	return err
}

// RemoveParticipant removes a member.
func (r *ChatRepository) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM chat_participants WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	)
	return err
}

// DeleteByRide removes the chat room of a ride. Participants cascade.
func (r *ChatRepository) DeleteByRide(ctx context.Context, rideID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM chat_rooms WHERE ride_id = $1`, rideID)
	return err
}
