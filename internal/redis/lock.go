package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("booking lock not acquired")
)

// BookingLocker guards the critical section of a booking. A booking touches
// two slots at once: the doctor's and the patient's, so the lock covers one
// key per slot.
type BookingLocker interface {
	WithBookingLock(ctx context.Context, doctorTaxID, patientSSN, date, timeOfDay string, fn func(ctx context.Context) error) error
}

type redisBookingLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBookingLocker creates a locker backed by per-slot Redis keys.
func NewRedisBookingLocker(client *redis.Client, ttl time.Duration) BookingLocker {
	return &redisBookingLocker{
		client: client,
		ttl:    ttl,
	}
}

// WithBookingLock acquires the doctor key then the patient key. The fixed
// acquisition order keeps two contending bookings from deadlocking on each
// other's held key.
func (l *redisBookingLocker) WithBookingLock(ctx context.Context, doctorTaxID, patientSSN, date, timeOfDay string, fn func(ctx context.Context) error) error {
	keys := []string{
		fmt.Sprintf("lock:doctor:%s:%s:%s", doctorTaxID, date, timeOfDay),
		fmt.Sprintf("lock:patient:%s:%s:%s", patientSSN, date, timeOfDay),
	}
	token := uuid.NewString()

	var held []string
	release := func() {
		for _, key := range held {
			_ = l.release(ctx, key, token)
		}
	}

	for _, key := range keys {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			release()
			return fmt.Errorf("acquire booking lock: %w", err)
		}
		if !ok {
			release()
			return ErrLockNotAcquired
		}
		held = append(held, key)
	}

	defer release()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisBookingLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}
