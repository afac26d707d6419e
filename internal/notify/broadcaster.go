// ABOUTME: In-memory fan-out broadcaster for store change notifications
// ABOUTME: Drops values for full subscribers by default, or queues them without bound when configured

package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

type options struct {
	queued bool
}

// Option configures a Broadcaster.
type Option func(*options)

// WithQueue makes delivery lossless: values a subscriber has not yet received
// are held in an unbounded per-subscriber queue instead of being dropped.
func WithQueue() Option {
	return func(o *options) { o.queued = true }
}

// subscriber is one registered channel. In queued mode a forwarding
// goroutine owns ch and closes it; otherwise the broadcaster does.
type subscriber[T any] struct {
	ch   chan T
	done chan struct{} // closed on unsubscribe

	mu    sync.Mutex
	queue []T
	wake  chan struct{}
}

// Broadcaster provides in-memory pub/sub for values of type T.
// Subscribers receive values published after they subscribed, in order.
type Broadcaster[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber[T] // subID -> subscriber
	closed      bool
	done        chan struct{} // closed by Close
	queued      bool
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster[T any](logger *slog.Logger, opts ...Option) *Broadcaster[T] {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Broadcaster[T]{
		subscribers: make(map[string]*subscriber[T]),
		done:        make(chan struct{}),
		queued:      o.queued,
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber and returns its channel and ID.
// The subscription is removed and its channel closed when ctx is cancelled.
// Subscribing to a closed broadcaster returns an already closed channel.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) (<-chan T, string) {
	subID := uuid.New().String()
	sub := &subscriber[T]{
		ch:   make(chan T, subscriberBufferSize),
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, subID
	}
	b.subscribers[subID] = sub
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	if b.queued {
		go sub.forward()
	}

	go func() {
		select {
		case <-ctx.Done():
			b.Unsubscribe(subID)
		case <-sub.done:
		case <-b.done:
		}
	}()

	return sub.ch, subID
}

// forward moves queued values into ch until the subscriber is removed.
// Values still queued at that point are discarded.
func (s *subscriber[T]) forward() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		v := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- v:
		case <-s.done:
			return
		}
	}
}

func (s *subscriber[T]) enqueue(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Publish sends v to every subscriber without blocking.
// Unless WithQueue was given, values are dropped for subscribers whose
// channels are full.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if b.queued {
			sub.enqueue(v)
			continue
		}
		select {
		case sub.ch <- v:
		default:
			b.logger.Warn("dropped notification for slow subscriber", "sub_id", id)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster[T]) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	b.remove(sub)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// remove stops one subscriber. Callers hold b.mu.
func (b *Broadcaster[T]) remove(sub *subscriber[T]) {
	close(sub.done)
	if !b.queued {
		close(sub.ch)
	}
}

// Close shuts down the broadcaster and closes all subscriber channels.
// Calling Close again has no effect.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for subID, sub := range b.subscribers {
		b.remove(sub)
		delete(b.subscribers, subID)
	}
	b.closed = true
	close(b.done)

	b.logger.Debug("broadcaster closed")
}
