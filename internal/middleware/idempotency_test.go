package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// memoryIdempotencyStore is an in-memory IdempotencyStoreInterface.
type memoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{entries: make(map[string][]byte)}
}

func (s *memoryIdempotencyStore) Get(ctx context.Context, scope, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.entries[scope+":"+key], nil
}

func (s *memoryIdempotencyStore) Set(ctx context.Context, scope, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[scope+":"+key] = data
	return nil
}

// newIdempotentRouter counts handler invocations and answers with status.
func newIdempotentRouter(store *memoryIdempotencyStore, status int, calls *int) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(callerIDKey, c.GetHeader("X-Test-Caller"))
		c.Next()
	})
	r.Use(IdempotencyMiddleware(store, zap.NewNop()))
	handler := func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	}
	r.POST("/rides", handler)
	r.GET("/rides", handler)
	r.POST("/rides/:id/bookings", handler)
	return r
}

func doRequest(r *gin.Engine, method, caller, key string) *httptest.ResponseRecorder {
	return doRequestTo(r, method, "/rides", caller, key)
}

func doRequestTo(r *gin.Engine, method, path, caller, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Test-Caller", caller)
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls int
	r := newIdempotentRouter(newMemoryIdempotencyStore(), http.StatusCreated, &calls)

	first := doRequest(r, http.MethodPost, "user-1", "abc")
	second := doRequest(r, http.MethodPost, "user-1", "abc")

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("expected replayed 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("expected replayed body %s, got %s", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("Idempotent-Replay") != "true" {
		t.Error("expected Idempotent-Replay header on replay")
	}
}

func TestIdempotency_KeysAreScopedPerCaller(t *testing.T) {
	var calls int
	r := newIdempotentRouter(newMemoryIdempotencyStore(), http.StatusCreated, &calls)

	doRequest(r, http.MethodPost, "user-1", "abc")
	rec := doRequest(r, http.MethodPost, "user-2", "abc")

	if calls != 2 {
		t.Errorf("expected separate executions per caller, got %d", calls)
	}
	if rec.Header().Get("Idempotent-Replay") != "" {
		t.Error("another caller's response must not be replayed")
	}
}

func TestIdempotency_KeysAreScopedPerEndpoint(t *testing.T) {
	var calls int
	r := newIdempotentRouter(newMemoryIdempotencyStore(), http.StatusCreated, &calls)

	doRequestTo(r, http.MethodPost, "/rides", "user-1", "abc")
	onRideA := doRequestTo(r, http.MethodPost, "/rides/ride-a/bookings", "user-1", "abc")
	onRideB := doRequestTo(r, http.MethodPost, "/rides/ride-b/bookings", "user-1", "abc")

	if calls != 3 {
		t.Errorf("expected each endpoint to run once, got %d calls", calls)
	}
	for _, rec := range []*httptest.ResponseRecorder{onRideA, onRideB} {
		if rec.Header().Get("Idempotent-Replay") != "" {
			t.Error("a response from another endpoint must not be replayed")
		}
	}

	replay := doRequestTo(r, http.MethodPost, "/rides/ride-a/bookings", "user-1", "abc")
	if calls != 3 || replay.Header().Get("Idempotent-Replay") != "true" {
		t.Errorf("expected a replay for the same endpoint, got %d calls", calls)
	}
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	var calls int
	r := newIdempotentRouter(newMemoryIdempotencyStore(), http.StatusServiceUnavailable, &calls)

	doRequest(r, http.MethodPost, "user-1", "abc")
	doRequest(r, http.MethodPost, "user-1", "abc")

	if calls != 2 {
		t.Errorf("expected retry after 503 to run again, got %d calls", calls)
	}
}

func TestIdempotency_Passthrough(t *testing.T) {
	testCases := []struct {
		name   string
		method string
		key    string
		getErr error
	}{
		{"no key", http.MethodPost, "", nil},
		{"safe method", http.MethodGet, "abc", nil},
		{"store down", http.MethodPost, "abc", errors.New("connection refused")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryIdempotencyStore()
			store.getErr = tc.getErr
			var calls int
			r := newIdempotentRouter(store, http.StatusOK, &calls)

			doRequest(r, tc.method, "user-1", tc.key)
			doRequest(r, tc.method, "user-1", tc.key)

			if calls != 2 {
				t.Errorf("expected both requests to reach the handler, got %d", calls)
			}
		})
	}
}
