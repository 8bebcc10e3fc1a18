package broadcast

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/store"
)

type InMemory struct {
	lock        sync.Mutex
	subscribers map[chan store.Action]struct{}
	closed      bool
}

func NewInMemory() *InMemory {
	return &InMemory{
		subscribers: make(map[chan store.Action]struct{}),
	}
}

// Publish never blocks. A subscriber whose buffer is full misses the payload.
func (m *InMemory) Publish(ctx context.Context, payload store.Payload) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return ErrClosed
	}

	action := payload.Action()
	for ch := range m.subscribers {
		select {
		case ch <- action:
		default:
			log.WithField("actionType", payload.ActionType).Warning("Dropping broadcast for slow subscriber")
		}
	}
	return nil
}

func (m *InMemory) Subscribe(ctx context.Context) (<-chan store.Action, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	ch := make(chan store.Action, subscriberBuffer)
	m.subscribers[ch] = struct{}{}
	go func() {
		<-ctx.Done()
		m.unsubscribe(ch)
	}()
	return ch, nil
}

func (m *InMemory) unsubscribe(ch chan store.Action) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.subscribers[ch]; ok {
		delete(m.subscribers, ch)
		close(ch)
	}
}

func (m *InMemory) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for ch := range m.subscribers {
		delete(m.subscribers, ch)
		close(ch)
	}
	return nil
}
