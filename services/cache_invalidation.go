package services

import (
	"context"
	"encoding/json"

	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Invalidation kinds carried between replicas
const (
	InvalidateAll     = "all"
	InvalidateCountry = "country"
)

// CacheInvalidation names the query cache entries another replica must drop
type CacheInvalidation struct {
	Origin string `json:"origin"`
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
}

// InvalidationPublisher announces a local cache invalidation
type InvalidationPublisher interface {
	Publish(ctx context.Context, inv CacheInvalidation) error
}

// RedisInvalidationBus fans query cache invalidations out to every replica
// subscribed to the same Redis channel. Messages from this process are ignored.
type RedisInvalidationBus struct {
	Client  *redis.Client
	Channel string
	origin  string
}

func NewRedisInvalidationBus(client *redis.Client) *RedisInvalidationBus {
	return &RedisInvalidationBus{
		Client:  client,
		Channel: "country-currency-api:cache-invalidation",
		origin:  uuid.New().String(),
	}
}

func (b *RedisInvalidationBus) Publish(ctx context.Context, inv CacheInvalidation) error {
	inv.Origin = b.origin
	payload, err := json.Marshal(inv)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryProcessing, "INVALIDATION_ENCODE", "RedisInvalidationBus", "Publish")
	}

	if err := b.Client.Publish(ctx, b.Channel, payload).Err(); err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "INVALIDATION_PUBLISH", "RedisInvalidationBus", "Publish")
	}
	return nil
}

// Listen subscribes and hands each remote invalidation to apply until ctx is
// cancelled. It returns once the subscription is confirmed.
func (b *RedisInvalidationBus) Listen(ctx context.Context, apply func(CacheInvalidation)) error {
	logger := logrus.WithFields(logrus.Fields{
		"component": "RedisInvalidationBus",
		"channel":   b.Channel,
	})

	pubsub := b.Client.Subscribe(ctx, b.Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "INVALIDATION_SUBSCRIBE", "RedisInvalidationBus", "Listen")
	}

	messages := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var inv CacheInvalidation
				if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
					logger.WithError(err).Warn("Dropping malformed cache invalidation")
					continue
				}
				if inv.Origin == b.origin {
					continue
				}
				apply(inv)
			}
		}
	}()

	logger.Info("Listening for cache invalidations")
	return nil
}
