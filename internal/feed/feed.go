// Package feed is the change feed: row-level note events fanned out to
// owner-scoped subscriptions, in-process or over a websocket.
package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"example.com/notesync/internal/notes"
)

// Subscription delivers events for one owner predicate. The channel is
// closed by Close or when the subscriber lags too far behind.
type Subscription interface {
	Events() <-chan notes.Event
	// Lagged reports whether events were dropped; the consumer should
	// re-fetch instead of trusting its local state.
	Lagged() bool
	Close() error
}

// Feed hands out subscriptions. Implemented by Broker (in-process) and
// Dialer (websocket client).
type Feed interface {
	Subscribe(ctx context.Context, owner uuid.UUID) (Subscription, error)
}

type subscription struct {
	owner  uuid.UUID
	ch     chan notes.Event
	broker *Broker

	mu     sync.Mutex
	closed bool
	lagged bool
}

func (s *subscription) Events() <-chan notes.Event { return s.ch }

func (s *subscription) Lagged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagged
}

func (s *subscription) Close() error {
	s.broker.remove(s)
	return nil
}

// Broker fans events out to matching subscriptions. Publish never
// blocks: a subscription whose buffer is full has the event dropped and
// is marked lagged.
type Broker struct {
	buffer int

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{buffer: buffer, subs: make(map[*subscription]struct{})}
}

// Publish implements notes.Publisher.
func (b *Broker) Publish(ev notes.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if s.owner != ev.OwnerID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			s.mu.Lock()
			s.lagged = true
			s.mu.Unlock()
		}
	}
}

// Subscribe opens an owner-scoped subscription.
func (b *Broker) Subscribe(ctx context.Context, owner uuid.UUID) (Subscription, error) {
	s := &subscription{
		owner:  owner,
		ch:     make(chan notes.Event, b.buffer),
		broker: b,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			b.remove(s)
		}()
	}
	return s, nil
}

func (b *Broker) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
}
