package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// CONCURRENT SEAT CLAIMS
// ──────────────────────────────────────────────

// A read-check-write sequence without the ride lock lets every reader
// see the last free seat.
func TestUnguardedCheckThenWrite_Oversells(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := NewMockDB()
	store := db.Store()
	db.AddRide(&domain.Ride{
		ID:             "ride-1",
		OrganizerID:    "organizer-1",
		TotalSeats:     1,
		AvailableSeats: 1,
		Status:         domain.RideStatusActive,
	})

	const riders = 5
	var read, wrote sync.WaitGroup
	read.Add(riders)
	wrote.Add(riders)

	for i := 0; i < riders; i++ {
		go func(i int) {
			defer wrote.Done()
			ride, err := store.Rides.GetByID(ctx, "ride-1")
			read.Done()
			if err != nil {
				return
			}
			read.Wait() // every rider has seen the same seat count

			if ride.AvailableSeats <= 0 {
				return
			}
			_ = store.Bookings.Create(ctx, &domain.Booking{
				ID:     uuid.New().String(),
				RideID: "ride-1",
				UserID: fmt.Sprintf("rider-%d", i),
				Status: domain.BookingStatusActive,
			})
			ride.AvailableSeats--
			_ = store.Rides.Update(ctx, ride)
		}(i)
	}
	wrote.Wait()

	if n := db.CountActiveBookings("ride-1"); n <= 1 {
		t.Fatalf("expected the unguarded path to oversell, got %d bookings", n)
	}
}

func TestConcurrentBook_NeverOversells(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		redisError error
	}{
		{"with ride lock", nil},
		{"redis down, row lock only", ErrMockTimeout},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			ride := h.createRide(t, "organizer-1", "Noida", "Delhi", 3, tomorrow())
			h.locks.AcquireError = tc.redisError

			const riders = 20
			var succeeded, full, other int32
			var wg sync.WaitGroup
			for i := 0; i < riders; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := h.bookings.Book(context.Background(), service.BookRequest{
						RideID:  ride.ID,
						RiderID: fmt.Sprintf("rider-%d", i),
					})
					switch {
					case err == nil:
						atomic.AddInt32(&succeeded, 1)
					case errors.Is(err, service.ErrRideFull):
						atomic.AddInt32(&full, 1)
					default:
						atomic.AddInt32(&other, 1)
						t.Errorf("rider-%d: unexpected error: %v", i, err)
					}
				}(i)
			}
			wg.Wait()

			if succeeded != 3 {
				t.Errorf("expected 3 successful bookings, got %d", succeeded)
			}
			if full != riders-3 {
				t.Errorf("expected %d ErrRideFull, got %d", riders-3, full)
			}

			stored := h.db.GetRide(ride.ID)
			if n := h.db.CountActiveBookings(ride.ID); n != 3 {
				t.Errorf("expected 3 stored bookings, got %d", n)
			}
			if stored.AvailableSeats != 0 || stored.Status != domain.RideStatusFull {
				t.Errorf("expected full ride, got %d seats / %s", stored.AvailableSeats, stored.Status)
			}
			h.assertMembership(t, ride.ID, "organizer-1")
		})
	}
}

func TestConcurrentBookAndLeave_KeepsSeatsConsistent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ride := h.createRide(t, "organizer-1", "Noida", "Delhi", 4, tomorrow())

	// Half of the riders start with a seat and leave; the other half book.
	for i := 0; i < 4; i++ {
		h.book(t, ride.ID, fmt.Sprintf("leaver-%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := h.bookings.Leave(context.Background(), ride.ID, fmt.Sprintf("leaver-%d", i)); err != nil {
				t.Errorf("leave: %v", err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			// Retry until a seat frees up.
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				_, err := h.bookings.Book(context.Background(), service.BookRequest{RideID: ride.ID, RiderID: fmt.Sprintf("joiner-%d", i)})
				if err == nil {
					return
				}
				if !errors.Is(err, service.ErrRideFull) {
					t.Errorf("book: %v", err)
					return
				}
				time.Sleep(5 * time.Millisecond)
			}
			t.Errorf("joiner-%d never got a seat", i)
		}(i)
	}
	wg.Wait()

	stored := h.db.GetRide(ride.ID)
	active := h.db.CountActiveBookings(ride.ID)
	if active != 4 {
		t.Errorf("expected 4 active bookings, got %d", active)
	}
	if stored.AvailableSeats != stored.TotalSeats-active {
		t.Errorf("available %d != total %d - active %d", stored.AvailableSeats, stored.TotalSeats, active)
	}
	h.assertMembership(t, ride.ID, "organizer-1")
}
