package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/store"
)

type Redis struct {
	rdb     *redis.Client
	channel string
}

func NewRedis(rdb *redis.Client, channel string) *Redis {
	return &Redis{
		rdb:     rdb,
		channel: channel,
	}
}

// Connect parses a redis:// URL and verifies the server is reachable.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Publish(ctx context.Context, payload store.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, string(data)).Err()
}

func (r *Redis) Subscribe(ctx context.Context) (<-chan store.Action, error) {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	out := make(chan store.Action, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				action, err := store.DecodePayload([]byte(msg.Payload))
				if err != nil {
					log.WithError(err).WithField("channel", msg.Channel).Warning("Ignoring malformed broadcast")
					continue
				}
				select {
				case out <- action:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
