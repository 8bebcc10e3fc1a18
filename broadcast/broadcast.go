// Package broadcast fans store payloads out from the server to watching
// clients. Subscriptions yield decoded store actions, ready for
// store.Dispatcher.Pump.
package broadcast

import (
	"context"
	"errors"

	"github.com/VacantAardvark/joseki/store"
)

const (
	InMemoryType = "inmemory"
	RedisType    = "redis"

	subscriberBuffer = 64
)

var ErrClosed = errors.New("broadcaster is closed")

type Broadcaster interface {
	Publish(ctx context.Context, payload store.Payload) error
	// Subscribe returns a channel that is closed when ctx is done or the
	// broadcaster is closed.
	Subscribe(ctx context.Context) (<-chan store.Action, error)
	Close() error
}
