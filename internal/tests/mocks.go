package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/geocode"
	"carpool/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK DATABASE
// ──────────────────────────────────────────────

// MockDB is an in-memory stand-in for the PostgreSQL schema. Repositories
// returned by Store share its state and always hand out copies.
type MockDB struct {
	mu       sync.Mutex
	rides    map[string]domain.Ride
	bookings map[string]domain.Booking
	rooms    map[string]domain.ChatRoom // keyed by ride id
	history  []domain.RideHistoryEntry

	// Counters
	ListOpenCallCount int32

	// Error injection
	BookingCreateError  error
	AddParticipantError error
	HistoryCreateError  error
}

// NewMockDB creates an empty mock database.
func NewMockDB() *MockDB {
	return &MockDB{
		rides:    make(map[string]domain.Ride),
		bookings: make(map[string]domain.Booking),
		rooms:    make(map[string]domain.ChatRoom),
	}
}

// Store returns repositories bound to the mock database.
func (db *MockDB) Store() repository.Store {
	return repository.Store{
		Rides:    &MockRideRepository{db: db},
		Bookings: &MockBookingRepository{db: db},
		Chats:    &MockChatRepository{db: db},
		History:  &MockHistoryRepository{db: db},
	}
}

// AddRide seeds a ride.
func (db *MockDB) AddRide(ride *domain.Ride) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.rides[ride.ID] = *ride
}

// GetRide returns the stored ride for test assertions, or nil.
func (db *MockDB) GetRide(id string) *domain.Ride {
	db.mu.Lock()
	defer db.mu.Unlock()
	ride, ok := db.rides[id]
	if !ok {
		return nil
	}
	return &ride
}

// GetRoom returns the stored room of a ride for test assertions, or nil.
func (db *MockDB) GetRoom(rideID string) *domain.ChatRoom {
	db.mu.Lock()
	defer db.mu.Unlock()
	room, ok := db.rooms[rideID]
	if !ok {
		return nil
	}
	c := copyRoom(room)
	return &c
}

// CountActiveBookings counts active bookings of a ride.
func (db *MockDB) CountActiveBookings(rideID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.countActiveLocked(rideID)
}

// ActiveRiders returns the user ids with an active booking on a ride.
func (db *MockDB) ActiveRiders(rideID string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	var ids []string
	for _, b := range db.bookings {
		if b.RideID == rideID && b.Status == domain.BookingStatusActive {
			ids = append(ids, b.UserID)
		}
	}
	sort.Strings(ids)
	return ids
}

// CountHistory returns the number of history entries.
func (db *MockDB) CountHistory() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.history)
}

func (db *MockDB) countActiveLocked(rideID string) int {
	n := 0
	for _, b := range db.bookings {
		if b.RideID == rideID && b.Status == domain.BookingStatusActive {
			n++
		}
	}
	return n
}

type mockSnapshot struct {
	rides    map[string]domain.Ride
	bookings map[string]domain.Booking
	rooms    map[string]domain.ChatRoom
	history  []domain.RideHistoryEntry
}

func (db *MockDB) snapshot() mockSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := mockSnapshot{
		rides:    make(map[string]domain.Ride, len(db.rides)),
		bookings: make(map[string]domain.Booking, len(db.bookings)),
		rooms:    make(map[string]domain.ChatRoom, len(db.rooms)),
		history:  append([]domain.RideHistoryEntry(nil), db.history...),
	}
	for k, v := range db.rides {
		s.rides[k] = v
	}
	for k, v := range db.bookings {
		s.bookings[k] = v
	}
	for k, v := range db.rooms {
		s.rooms[k] = copyRoom(v)
	}
	return s
}

func (db *MockDB) restore(s mockSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.rides = s.rides
	db.bookings = s.bookings
	db.rooms = s.rooms
	db.history = s.history
}

func copyRoom(room domain.ChatRoom) domain.ChatRoom {
	room.Participants = append([]domain.Participant(nil), room.Participants...)
	return room
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor serializes transactions and rolls back the mock database
// when fn fails.
type MockTransactor struct {
	db *MockDB
	mu sync.Mutex

	// Counters
	CommitCount   int32
	RollbackCount int32
}

// NewMockTransactor creates a transactor over db.
func NewMockTransactor(db *MockDB) *MockTransactor {
	return &MockTransactor{db: db}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.db.snapshot()
	if err := fn(ctx, m.db.Store()); err != nil {
		m.db.restore(snap)
		atomic.AddInt32(&m.RollbackCount, 1)
		return err
	}
	atomic.AddInt32(&m.CommitCount, 1)
	return nil
}

// ──────────────────────────────────────────────
// MOCK REPOSITORIES
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository.
type MockRideRepository struct {
	db *MockDB
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.rides[ride.ID]; ok {
		return repository.ErrDuplicate
	}
	m.db.rides[ride.ID] = *ride
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	ride, ok := m.db.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ride, nil
}

func (m *MockRideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return m.GetByID(ctx, id)
}

func (m *MockRideRepository) ListOpen(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var result []*domain.Ride
	for _, r := range m.db.rides {
		if r.Status == domain.RideStatusCancelled || r.AvailableSeats <= 0 {
			continue
		}
		if filter.ExcludeOrganizer != "" && (r.OrganizerID == filter.ExcludeOrganizer || r.LegacyCreatedBy == filter.ExcludeOrganizer) {
			continue
		}
		if !filter.DepartFrom.IsZero() && r.DepartureAt.Before(filter.DepartFrom) {
			continue
		}
		if !filter.DepartTo.IsZero() && r.DepartureAt.After(filter.DepartTo) {
			continue
		}
		ride := r
		result = append(result, &ride)
	}
	sort.Slice(result, func(i, j int) bool { return rideBefore(result[i], result[j].DepartureAt, result[j].ID) })

	if filter.After != nil {
		start := sort.Search(len(result), func(i int) bool {
			return rideBefore(&domain.Ride{DepartureAt: filter.After.DepartureAt, ID: filter.After.ID}, result[i].DepartureAt, result[i].ID)
		})
		result = result[start:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	atomic.AddInt32(&m.db.ListOpenCallCount, 1)
	return result, nil
}

// rideBefore orders rides by departure, then id.
func rideBefore(r *domain.Ride, departure time.Time, id string) bool {
	if !r.DepartureAt.Equal(departure) {
		return r.DepartureAt.Before(departure)
	}
	return r.ID < id
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	m.db.rides[ride.ID] = *ride
	return nil
}

// Delete removes the ride and, like the foreign keys of the real schema,
// its bookings and chat room.
func (m *MockRideRepository) Delete(ctx context.Context, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.rides[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.rides, id)
	for bid, b := range m.db.bookings {
		if b.RideID == id {
			delete(m.db.bookings, bid)
		}
	}
	delete(m.db.rooms, id)
	return nil
}

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	db *MockDB
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.BookingCreateError != nil {
		return m.db.BookingCreateError
	}
	for _, b := range m.db.bookings {
		if b.RideID == booking.RideID && b.UserID == booking.UserID && b.Status == domain.BookingStatusActive {
			return repository.ErrDuplicate
		}
	}
	m.db.bookings[booking.ID] = *booking
	return nil
}

func (m *MockBookingRepository) GetActive(ctx context.Context, rideID, userID string) (*domain.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, b := range m.db.bookings {
		if b.RideID == rideID && b.UserID == userID && b.Status == domain.BookingStatusActive {
			booking := b
			return &booking, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockBookingRepository) ListActiveByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	return m.list(func(b domain.Booking) bool { return b.RideID == rideID }), nil
}

func (m *MockBookingRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Booking, error) {
	return m.list(func(b domain.Booking) bool { return b.UserID == userID }), nil
}

func (m *MockBookingRepository) list(keep func(domain.Booking) bool) []*domain.Booking {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []*domain.Booking
	for _, b := range m.db.bookings {
		if b.Status == domain.BookingStatusActive && keep(b) {
			booking := b
			result = append(result, &booking)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (m *MockBookingRepository) CountActiveByRide(ctx context.Context, rideID string) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.countActiveLocked(rideID), nil
}

func (m *MockBookingRepository) Delete(ctx context.Context, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.bookings, id)
	return nil
}

func (m *MockBookingRepository) DeleteByRide(ctx context.Context, rideID string) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for id, b := range m.db.bookings {
		if b.RideID == rideID {
			delete(m.db.bookings, id)
			n++
		}
	}
	return n, nil
}

// MockChatRepository is a mock implementation of ChatRepository.
type MockChatRepository struct {
	db *MockDB
}

func (m *MockChatRepository) Create(ctx context.Context, room *domain.ChatRoom) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.rooms[room.RideID]; ok {
		return repository.ErrDuplicate
	}
	m.db.rooms[room.RideID] = copyRoom(*room)
	return nil
}

func (m *MockChatRepository) GetByRideID(ctx context.Context, rideID string) (*domain.ChatRoom, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	room, ok := m.db.rooms[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := copyRoom(room)
	return &c, nil
}

func (m *MockChatRepository) AddParticipant(ctx context.Context, roomID string, participant domain.Participant) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.AddParticipantError != nil {
		return m.db.AddParticipantError
	}
	for rideID, room := range m.db.rooms {
		if room.ID != roomID {
			continue
		}
		if room.HasMember(participant.UserID) {
			return nil
		}
		room = copyRoom(room)
		room.Participants = append(room.Participants, participant)
		m.db.rooms[rideID] = room
		return nil
	}
	return repository.ErrNotFound
}

func (m *MockChatRepository) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for rideID, room := range m.db.rooms {
		if room.ID != roomID {
			continue
		}
		kept := make([]domain.Participant, 0, len(room.Participants))
		for _, p := range room.Participants {
			if p.UserID != userID {
				kept = append(kept, p)
			}
		}
		room.Participants = kept
		m.db.rooms[rideID] = room
		return nil
	}
	return nil
}

func (m *MockChatRepository) DeleteByRide(ctx context.Context, rideID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	delete(m.db.rooms, rideID)
	return nil
}

// MockHistoryRepository is a mock implementation of HistoryRepository.
type MockHistoryRepository struct {
	db *MockDB
}

func (m *MockHistoryRepository) Create(ctx context.Context, entry *domain.RideHistoryEntry) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.HistoryCreateError != nil {
		return m.db.HistoryCreateError
	}
	m.db.history = append(m.db.history, *entry)
	return nil
}

func (m *MockHistoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.RideHistoryEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []*domain.RideHistoryEntry
	for i := len(m.db.history) - 1; i >= 0; i-- {
		if m.db.history[i].UserID == userID {
			entry := m.db.history[i]
			result = append(result, &entry)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore. Each lock carries
// the token of its holder; a release with another token is ignored.
type MockLockStore struct {
	mu     sync.Mutex
	locks  map[string]mockLock
	tokens int

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32
	StaleReleases    int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool

	// BeforeRelease runs at the start of every release, outside the mutex.
	BeforeRelease func(rideID string)
}

type mockLock struct {
	token  string
	expiry time.Time
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]mockLock),
	}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return "", false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:ride:" + rideID
	if held, exists := m.locks[key]; exists && time.Now().Before(held.expiry) {
		return "", false, nil // Lock still held.
	}

	m.tokens++
	token := fmt.Sprintf("token-%d", m.tokens)
	m.locks[key] = mockLock{token: token, expiry: time.Now().Add(ttl)}
	return token, true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if m.BeforeRelease != nil {
		m.BeforeRelease(rideID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:ride:" + rideID
	if held, exists := m.locks[key]; exists && held.token != token {
		atomic.AddInt32(&m.StaleReleases, 1)
		return nil
	}
	delete(m.locks, key)
	return nil
}

// Takeover simulates the lock expiring and another instance acquiring it.
func (m *MockLockStore) Takeover(rideID string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens++
	m.locks["lock:ride:"+rideID] = mockLock{token: fmt.Sprintf("other-%d", m.tokens), expiry: time.Now().Add(ttl)}
}

// IsLocked checks if a ride is locked (for test assertions).
func (m *MockLockStore) IsLocked(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, exists := m.locks["lock:ride:"+rideID]
	return exists && time.Now().Before(held.expiry)
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// OfType returns the recorded events of one type, in publish order.
func (m *MockPublisher) OfType(t events.Type) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []events.Event
	for _, e := range m.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK GEOCODING
// ──────────────────────────────────────────────

// MockResolver resolves addresses from a fixed table.
type MockResolver struct {
	mu     sync.Mutex
	places map[string]*domain.Place

	// Error injection
	ResolveError error

	// Counters
	ResolveCallCount int32
}

// NewMockResolver creates a resolver with no known places.
func NewMockResolver() *MockResolver {
	return &MockResolver{places: make(map[string]*domain.Place)}
}

// AddPlace registers the place an address resolves to.
func (m *MockResolver) AddPlace(address string, place *domain.Place) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places[address] = place
}

func (m *MockResolver) Resolve(ctx context.Context, address string) (*domain.Place, error) {
	atomic.AddInt32(&m.ResolveCallCount, 1)
	if m.ResolveError != nil {
		return nil, m.ResolveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	place, ok := m.places[address]
	if !ok {
		return nil, geocode.ErrNoResult
	}
	return place, nil
}

// MockRouter returns a fixed route duration.
type MockRouter struct {
	Duration   time.Duration
	RouteError error
}

func (m *MockRouter) Route(ctx context.Context, origin, destination domain.Coordinates, departure time.Time) (time.Duration, error) {
	if m.RouteError != nil {
		return 0, m.RouteError
	}
	return m.Duration, nil
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
