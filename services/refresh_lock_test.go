package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRefreshLocker_SerializesAndTimesOut(t *testing.T) {
	locker := NewLocalRefreshLocker(50 * time.Millisecond)

	release, err := locker.Acquire(context.Background())
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another refresh is in progress")
	category, ok := shared.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, shared.ErrorCategoryTimeout, category)

	release()

	release, err = locker.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestLocalRefreshLocker_RespectsContext(t *testing.T) {
	locker := NewLocalRefreshLocker(0)
	release, err := locker.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Acquire(ctx)
	require.Error(t, err)
	category, ok := shared.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, shared.ErrorCategoryProcessing, category)
}

func TestRedisRefreshLocker(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	first := NewRedisRefreshLocker(client, 300*time.Millisecond)
	first.Key = "country-currency-api:test-lock:" + t.Name()
	first.PollInterval = 20 * time.Millisecond
	second := *first

	release, err := first.Acquire(ctx)
	require.NoError(t, err)

	_, err = second.Acquire(ctx)
	require.Error(t, err)

	release()

	releaseSecond, err := second.Acquire(ctx)
	require.NoError(t, err)
	releaseSecond()

	exists, err := client.Exists(ctx, first.Key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRedisRefreshLocker_ExtendsLeaseWhileHeld(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	locker := NewRedisRefreshLocker(client, 100*time.Millisecond)
	locker.Key = "country-currency-api:test-lock:" + t.Name()
	locker.TTL = 300 * time.Millisecond
	locker.PollInterval = 20 * time.Millisecond

	release, err := locker.Acquire(ctx)
	require.NoError(t, err)

	time.Sleep(time.Second)

	exists, err := client.Exists(ctx, locker.Key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "lease must outlive TTL while held")

	contender := *locker
	_, err = contender.Acquire(ctx)
	assert.Error(t, err)

	release()
	release()

	exists, err = client.Exists(ctx, locker.Key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
