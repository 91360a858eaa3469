package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RefreshLocker serializes refresh cycles. Acquire blocks until the lock is
// held or the wait budget runs out; the returned func releases it.
type RefreshLocker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// lockUnavailable reports a lock that was not acquired; running out of
// wait budget is a timeout, a cancelled caller is not
func lockUnavailable(operation string, cause error) error {
	category := shared.ErrorCategoryProcessing
	if errors.Is(cause, context.DeadlineExceeded) {
		category = shared.ErrorCategoryTimeout
	}
	return shared.NewServiceError(
		category,
		shared.CodeLockUnavailable,
		fmt.Sprintf("another refresh is in progress: %v", cause),
		"RefreshLocker",
		operation,
		cause,
	)
}

// LocalRefreshLocker serializes refreshes within one process
type LocalRefreshLocker struct {
	slot chan struct{}
	wait time.Duration
}

// NewLocalRefreshLocker returns a locker; wait <= 0 means wait for ctx only
func NewLocalRefreshLocker(wait time.Duration) *LocalRefreshLocker {
	return &LocalRefreshLocker{
		slot: make(chan struct{}, 1),
		wait: wait,
	}
}

func (l *LocalRefreshLocker) Acquire(ctx context.Context) (func(), error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case l.slot <- struct{}{}:
		return func() { <-l.slot }, nil
	case <-ctx.Done():
		return nil, lockUnavailable("Acquire", ctx.Err())
	}
}

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript renews the lease only while the key still holds our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisRefreshLocker serializes refreshes across replicas sharing a Redis.
// The lease is renewed every TTL/3 while held, so a refresh may outlive TTL.
type RedisRefreshLocker struct {
	Client       redis.Cmdable
	Key          string
	TTL          time.Duration
	Wait         time.Duration
	PollInterval time.Duration
}

func NewRedisRefreshLocker(client redis.Cmdable, wait time.Duration) *RedisRefreshLocker {
	return &RedisRefreshLocker{
		Client:       client,
		Key:          "country-currency-api:refresh-lock",
		TTL:          5 * time.Minute,
		Wait:         wait,
		PollInterval: 250 * time.Millisecond,
	}
}

func (l *RedisRefreshLocker) Acquire(ctx context.Context) (func(), error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "RedisRefreshLocker",
		"key":       l.Key,
	})

	if l.Wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Wait)
		defer cancel()
	}

	token := uuid.New().String()
	ticker := time.NewTicker(l.PollInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.Client.SetNX(ctx, l.Key, token, l.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeLockUnavailable, "RedisRefreshLocker", "Acquire")
		}
		if acquired {
			logger.Debug("Acquired refresh lock")
			stop := make(chan struct{})
			stopped := make(chan struct{})
			go l.keepAlive(token, stop, stopped)

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-stopped
					l.release(token)
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, lockUnavailable("Acquire", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisRefreshLocker) keepAlive(token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	interval := l.TTL / 3
	if interval <= 0 {
		return
	}
	logger := logrus.WithFields(logrus.Fields{
		"component": "RedisRefreshLocker",
		"key":       l.Key,
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			extended, err := extendScript.Run(ctx, l.Client, []string{l.Key}, token, l.TTL.Milliseconds()).Int()
			cancel()
			if err != nil {
				logger.WithError(err).Warn("Failed to extend refresh lock")
				continue
			}
			if extended == 0 {
				logger.Error("Refresh lock lost before release")
				return
			}
		}
	}
}

func (l *RedisRefreshLocker) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.Client, []string{l.Key}, token).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "RedisRefreshLocker",
			"key":       l.Key,
		}).WithError(err).Warn("Failed to release refresh lock; it will expire")
	}
}
