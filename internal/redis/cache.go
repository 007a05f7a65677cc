package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"

	"carpool/internal/domain"
)

// CacheStore caches geocoding and routing results in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	PlaceCacheTTL = 7 * 24 * time.Hour // addresses rarely move
	RouteCacheTTL = 6 * time.Hour      // traffic-free estimates, refreshed a few times a day
)

// Key prefixes
const (
	placeCachePrefix = "cache:place:"
	routeCachePrefix = "cache:route:"
)

// routeGeohashPrecision of 7 is a cell of roughly 150m.
const routeGeohashPrecision = 7

// CachedPlace represents a cached geocoding result.
type CachedPlace struct {
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Locality    string   `json:"locality,omitempty"`
	AdminRegion string   `json:"admin_region,omitempty"`
	Country     string   `json:"country,omitempty"`
}

// GetPlace retrieves a resolved place by normalized address.
// Returns nil, nil on a cache miss.
func (s *CacheStore) GetPlace(ctx context.Context, address string) (*domain.Place, error) {
	data, err := s.client.Get(ctx, placeCachePrefix+address).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedPlace
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	place := &domain.Place{
		Locality:    cached.Locality,
		AdminRegion: cached.AdminRegion,
		Country:     cached.Country,
	}
	if cached.Lat != nil && cached.Lng != nil {
		place.Coordinates = &domain.Coordinates{Lat: *cached.Lat, Lng: *cached.Lng}
	}
	return place, nil
}

// SetPlace stores a resolved place under its normalized address.
func (s *CacheStore) SetPlace(ctx context.Context, address string, place *domain.Place) error {
	cached := CachedPlace{
		Locality:    place.Locality,
		AdminRegion: place.AdminRegion,
		Country:     place.Country,
	}
	if place.Coordinates != nil {
		lat, lng := place.Coordinates.Lat, place.Coordinates.Lng
		cached.Lat, cached.Lng = &lat, &lng
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, placeCachePrefix+address, data, PlaceCacheTTL).Err()
}

// routeKey buckets both endpoints into geohash cells so nearby requests
// share an entry.
func routeKey(origin, destination domain.Coordinates) string {
	return fmt.Sprintf("%s%s:%s", routeCachePrefix,
		geohash.EncodeWithPrecision(origin.Lat, origin.Lng, routeGeohashPrecision),
		geohash.EncodeWithPrecision(destination.Lat, destination.Lng, routeGeohashPrecision),
	)
}

// GetRouteDuration retrieves a cached travel time. The bool is false on a miss.
func (s *CacheStore) GetRouteDuration(ctx context.Context, origin, destination domain.Coordinates) (time.Duration, bool, error) {
	seconds, err := s.client.Get(ctx, routeKey(origin, destination)).Float64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return time.Duration(seconds * float64(time.Second)), true, nil
}

// SetRouteDuration stores a travel time.
func (s *CacheStore) SetRouteDuration(ctx context.Context, origin, destination domain.Coordinates, d time.Duration) error {
	return s.client.Set(ctx, routeKey(origin, destination), d.Seconds(), RouteCacheTTL).Err()
}
