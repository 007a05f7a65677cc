package repository

import (
	"context"

	"carpool/internal/domain"
)

// HistoryRepository stores snapshots of rides removed from the live set.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.RideHistoryEntry) error
	ListByUser(ctx context.Context, userID string) ([]*domain.RideHistoryEntry, error)
}
