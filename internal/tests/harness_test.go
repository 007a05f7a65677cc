package tests

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// harness wires the services over in-memory collaborators.
type harness struct {
	db       *MockDB
	tx       *MockTransactor
	locks    *MockLockStore
	pub      *MockPublisher
	resolver *MockResolver
	router   *MockRouter

	chat     *service.ChatSynchronizer
	rides    *service.RideService
	bookings *service.BookingService
	search   *service.SearchService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := zaptest.NewLogger(t)
	h := &harness{
		db:       NewMockDB(),
		locks:    NewMockLockStore(),
		pub:      NewMockPublisher(),
		resolver: NewMockResolver(),
		router:   &MockRouter{Duration: 90 * time.Minute},
	}
	h.tx = NewMockTransactor(h.db)

	store := h.db.Store()
	lockOpts := service.LockOptions{TTL: 5 * time.Second, Wait: 5 * time.Second}

	h.chat = service.NewChatSynchronizer(store, log)
	h.rides = service.NewRideService(store, h.tx, h.locks, h.chat, h.resolver, h.router, h.pub, lockOpts, log)
	h.bookings = service.NewBookingService(store, h.tx, h.locks, h.chat, h.pub, lockOpts, log)
	h.search = service.NewSearchService(store.Rides, h.resolver, log)
	return h
}

// createRide posts a ride through RideService.
func (h *harness) createRide(t *testing.T, organizerID, origin, destination string, seats int, departure time.Time) *domain.Ride {
	t.Helper()

	ride, err := h.rides.CreateRide(context.Background(), service.CreateRideRequest{
		OrganizerID:  organizerID,
		Origin:       origin,
		Destination:  destination,
		DepartureAt:  departure,
		TotalSeats:   seats,
		VehicleType:  domain.VehicleTypeOwn,
		PricePerSeat: 150,
		Contact:      domain.Contact{Name: organizerID},
	})
	if err != nil {
		t.Fatalf("failed to create ride: %v", err)
	}
	return ride
}

func (h *harness) book(t *testing.T, rideID, riderID string) *service.BookResult {
	t.Helper()

	result, err := h.bookings.Book(context.Background(), service.BookRequest{RideID: rideID, RiderID: riderID})
	if err != nil {
		t.Fatalf("book %s by %s: %v", rideID, riderID, err)
	}
	return result
}

// assertMembership checks that the chat room holds exactly the organizer
// and the riders with active bookings.
func (h *harness) assertMembership(t *testing.T, rideID, organizerID string) {
	t.Helper()

	room := h.db.GetRoom(rideID)
	if room == nil {
		t.Fatalf("ride %s has no chat room", rideID)
	}

	want := map[string]bool{organizerID: true}
	for _, id := range h.db.ActiveRiders(rideID) {
		want[id] = true
	}

	got := make(map[string]bool)
	for _, id := range room.MemberIDs() {
		if got[id] {
			t.Errorf("member %s appears twice", id)
		}
		got[id] = true
	}

	if len(got) != len(want) {
		t.Errorf("expected members %v, got %v", want, got)
	}
	for id := range want {
		if !got[id] {
			t.Errorf("expected %s in chat room", id)
		}
	}
}

func tomorrow() time.Time {
	return time.Now().Add(24 * time.Hour).Truncate(time.Minute)
}
