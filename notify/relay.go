package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultChannelPrefix = "notify:"

// RedisRelay publishes events to Redis channels keyed by recipient and
// relays events from other processes into a local [Hub].
type RedisRelay struct {
	redis  redis.UniversalClient
	prefix string
	log    *zap.Logger
}

// NewRedisRelay returns a relay publishing on prefix-scoped channels. A nil
// logger discards relay errors.
func NewRedisRelay(client redis.UniversalClient, prefix string, log *zap.Logger) *RedisRelay {
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRelay{redis: client, prefix: prefix, log: log}
}

// Channel returns the Redis channel for recipientID.
func (r *RedisRelay) Channel(recipientID string) string {
	return r.prefix + recipientID
}

// Publish sends ev to every instance subscribed through Run.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.redis.Publish(ctx, r.Channel(ev.Notification.RecipientID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run relays every event under the prefix into local until ctx is done.
// ready, when non-nil, is closed once the subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, local Publisher, ready chan<- struct{}) error {
	sub := r.redis.PSubscribe(ctx, r.prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.Warn("dropping malformed relay event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if strings.TrimPrefix(msg.Channel, r.prefix) != ev.Notification.RecipientID {
				r.log.Warn("dropping relay event with mismatched recipient", zap.String("channel", msg.Channel))
				continue
			}
			_ = local.Publish(ctx, ev)
		}
	}
}
