package broadcast

import (
	"context"
	"fmt"
)

// New returns a Redis broadcaster when redisURL is set and an in-memory one
// otherwise.
func New(ctx context.Context, redisURL, channel string) (Broadcaster, error) {
	if redisURL == "" {
		return NewInMemory(), nil
	}
	if channel == "" {
		return nil, fmt.Errorf("redis channel must be set")
	}
	rdb, err := Connect(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedis(rdb, channel), nil
}
