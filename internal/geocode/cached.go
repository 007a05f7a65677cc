package geocode

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"carpool/internal/domain"
	"carpool/internal/redis"
)

// CachedResolver serves repeated lookups from a cache. Cache failures are
// logged and never fail the lookup.
type CachedResolver struct {
	next  Resolver
	cache redis.GeoCacheInterface
	log   *zap.Logger
}

// NewCachedResolver creates a new CachedResolver.
func NewCachedResolver(next Resolver, cache redis.GeoCacheInterface, log *zap.Logger) *CachedResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedResolver{next: next, cache: cache, log: log.With(zap.String("component", "geocode_cache"))}
}

// Resolve implements Resolver.
func (r *CachedResolver) Resolve(ctx context.Context, address string) (*domain.Place, error) {
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))

	cached, err := r.cache.GetPlace(ctx, key)
	if err != nil {
		r.log.Warn("place cache read failed", zap.String("address", key), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	place, err := r.next.Resolve(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetPlace(ctx, key, place); err != nil {
		r.log.Warn("place cache write failed", zap.String("address", key), zap.Error(err))
	}
	return place, nil
}

// CachedRouter serves repeated route estimates from a cache.
type CachedRouter struct {
	next  Router
	cache redis.GeoCacheInterface
	log   *zap.Logger
}

// NewCachedRouter creates a new CachedRouter.
func NewCachedRouter(next Router, cache redis.GeoCacheInterface, log *zap.Logger) *CachedRouter {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedRouter{next: next, cache: cache, log: log.With(zap.String("component", "route_cache"))}
}

// Route implements Router.
func (r *CachedRouter) Route(ctx context.Context, origin, destination domain.Coordinates, departure time.Time) (time.Duration, error) {
	d, ok, err := r.cache.GetRouteDuration(ctx, origin, destination)
	if err != nil {
		r.log.Warn("route cache read failed", zap.Error(err))
	} else if ok {
		return d, nil
	}

	d, err = r.next.Route(ctx, origin, destination, departure)
	if err != nil {
		return 0, err
	}

	if err := r.cache.SetRouteDuration(ctx, origin, destination, d); err != nil {
		r.log.Warn("route cache write failed", zap.Error(err))
	}
	return d, nil
}
