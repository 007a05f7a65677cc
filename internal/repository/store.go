package repository

import "context"

// Store groups the repositories that make up a ride aggregate. Inside
// Transactor.WithinTx every repository shares one transaction.
type Store struct {
	Rides    RideRepository
	Bookings BookingRepository
	Chats    ChatRepository
	History  HistoryRepository
}

// Transactor runs fn inside a single storage transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
