package postgres

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"carpool/internal/repository"
)

func TestListOpenQuery_FirstPage(t *testing.T) {
	from := time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)
	query, args := listOpenQuery(repository.RideFilter{
		ExcludeOrganizer: "user-1",
		DepartFrom:       from,
		Limit:            500,
	})

	if strings.Contains(query, "(departure_at, id) >") {
		t.Errorf("first page must not carry a cursor condition: %s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY departure_at ASC, id ASC LIMIT $3") {
		t.Errorf("expected keyset ordering with a bound limit, got %s", query)
	}
	if len(args) != 3 || args[0] != "user-1" || args[1] != from || args[2] != 500 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestListOpenQuery_ResumesAfterCursor(t *testing.T) {
	departure := time.Date(2030, 3, 10, 9, 30, 0, 0, time.UTC)
	query, args := listOpenQuery(repository.RideFilter{
		After: &repository.RideCursor{DepartureAt: departure, ID: "ride-42"},
		Limit: 500,
	})

	if !strings.Contains(query, "(departure_at, id) > ($1, $2)") {
		t.Errorf("expected a row comparison on the cursor, got %s", query)
	}
	if len(args) != 3 || args[0] != departure || args[1] != "ride-42" || args[2] != 500 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestListOpenQuery_NoLimitReadsEverything(t *testing.T) {
	query, args := listOpenQuery(repository.RideFilter{})
	if strings.Contains(query, "LIMIT") {
		t.Errorf("unexpected limit in %s", query)
	}
	if len(args) != 0 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestNewStore_UsesRepositoryConstructors(t *testing.T) {
	// sql.Open only validates the driver name; no connection is made.
	db, err := sql.Open("postgres", "postgres://localhost/carpool?sslmode=disable")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	rides, ok := store.Rides.(*RideRepository)
	if !ok || rides.q != Querier(db) {
		t.Errorf("expected a pool-bound RideRepository, got %T", store.Rides)
	}
	if _, ok := store.Bookings.(*BookingRepository); !ok {
		t.Errorf("unexpected bookings repository %T", store.Bookings)
	}
	if _, ok := store.Chats.(*ChatRepository); !ok {
		t.Errorf("unexpected chats repository %T", store.Chats)
	}
	if _, ok := store.History.(*HistoryRepository); !ok {
		t.Errorf("unexpected history repository %T", store.History)
	}
}
