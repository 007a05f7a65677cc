package service

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/observability"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

const (
	defaultLockTTL    = 10 * time.Second
	defaultLockWait   = 2 * time.Second
	lockRetryInterval = 25 * time.Millisecond
)

// LockOptions tunes the per-ride lock taken before every write.
type LockOptions struct {
	TTL  time.Duration // lock expiry if the holder dies
	Wait time.Duration // how long to retry before ErrRideBusy
}

func (o LockOptions) withDefaults() LockOptions {
	if o.TTL <= 0 {
		o.TTL = defaultLockTTL
	}
	if o.Wait <= 0 {
		o.Wait = defaultLockWait
	}
	return o
}

// rideAggregate is the single write path for a ride, its bookings and its
// chat room. Writers are serialized per ride by a Redis lock across
// instances and by a row lock inside one storage transaction, so seat
// checks and the writes that depend on them cannot interleave.
type rideAggregate struct {
	tx    repository.Transactor
	locks redis.LockStoreInterface
	opts  LockOptions
	log   *zap.Logger
}

func newRideAggregate(tx repository.Transactor, locks redis.LockStoreInterface, opts LockOptions, log *zap.Logger) *rideAggregate {
	return &rideAggregate{tx: tx, locks: locks, opts: opts.withDefaults(), log: log}
}

// mutate loads the ride under lock and runs fn in the same transaction.
// fn may modify the ride but must persist it itself.
func (a *rideAggregate) mutate(ctx context.Context, rideID string, fn func(ctx context.Context, store repository.Store, ride *domain.Ride) error) error {
	release, err := a.lock(ctx, rideID)
	if err != nil {
		return err
	}
	defer release()

	return a.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		ride, err := store.Rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		return fn(ctx, store, ride)
	})
}

// lock acquires the Redis ride lock. Without a lock store, or when Redis
// fails, the row lock taken by mutate is the only serialization.
func (a *rideAggregate) lock(ctx context.Context, rideID string) (func(), error) {
	noop := func() {}
	if a.locks == nil {
		return noop, nil
	}

	start := time.Now()
	deadline := start.Add(a.opts.Wait)
	for {
		token, ok, err := a.locks.AcquireRideLock(ctx, rideID, a.opts.TTL)
		if err != nil {
			a.log.Warn("ride lock unavailable, relying on row lock",
				zap.String("ride_id", rideID), zap.Error(err))
			return noop, nil
		}
		if ok {
			observability.RideLockWaitSeconds.Observe(time.Since(start).Seconds())
			return func() {
				if err := a.locks.ReleaseRideLock(context.WithoutCancel(ctx), rideID, token); err != nil {
					a.log.Warn("release ride lock failed", zap.String("ride_id", rideID), zap.Error(err))
				}
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrRideBusy, rideID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// recount sets the ride's seats and status from the stored active bookings.
func recount(ctx context.Context, store repository.Store, ride *domain.Ride) (int, error) {
	active, err := store.Bookings.CountActiveByRide(ctx, ride.ID)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	ride.ApplyOccupancy(active)
	return active, nil
}

// publish sends events after commit. Failures are logged and counted,
// never returned.
func publish(ctx context.Context, pub events.Publisher, log *zap.Logger, evs ...events.Event) {
	if pub == nil {
		return
	}
	for _, ev := range evs {
		if err := pub.Publish(ctx, ev); err != nil {
			observability.EventsPublishFailuresTotal.WithLabelValues(string(ev.Type)).Inc()
			log.Error("publish event failed",
				zap.String("type", string(ev.Type)),
				zap.String("ride_id", ev.RideID),
				zap.Error(err))
		}
	}
}

// annotate adds attributes to the New Relic transaction of ctx, if any.
func annotate(ctx context.Context, attrs map[string]any) {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return
	}
	for k, v := range attrs {
		txn.AddAttribute(k, v)
	}
}

func serviceLogger(log *zap.Logger, name string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return log.With(zap.String("service", name))
}
