package presence

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/meetnearby/meetnearby/internal/storage"
)

// Subscription is one live attachment to the presence channel.
type Subscription interface {
	Events() <-chan StatusEvent
	Close() error
}

// Subscriber establishes presence subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// RedisSubscriber implements Subscriber over Redis pub/sub.
type RedisSubscriber struct {
	redis storage.RedisClient
}

func NewRedisSubscriber(redisClient storage.RedisClient) *RedisSubscriber {
	return &RedisSubscriber{redis: redisClient}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := s.redis.Subscribe(ctx, Channel)

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan StatusEvent, 64),
	}
	go sub.pump()

	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan StatusEvent
}

func (s *redisSubscription) pump() {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var ev StatusEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			continue
		}
		select {
		case s.events <- ev:
		default:
			// Slow consumer; presence is last-write-wins, dropping is fine.
		}
	}
}

func (s *redisSubscription) Events() <-chan StatusEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
