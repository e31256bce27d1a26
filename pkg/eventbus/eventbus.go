package eventbus

import (
	"sync"
)

// EventBus is a simple event bus with topic-based publish/subscribe.
// Delivery is best-effort: publishing never blocks, slow subscribers miss messages.
type EventBus interface {
	Publish(topic string, message any)
	Subscribe(topic string, bufSize int, filter func(any) bool) Subscriber
}

type Subscriber interface {
	C() <-chan any
	Unsubscribe()
}

type eventBus struct {
	subscribers map[string]map[*subscriber]func(any) bool
	mu          sync.Mutex
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan any
	closed bool
}

func MatchAll(any) bool {
	return true
}

// MatchType only lets messages of type T through.
func MatchType[T any](msg any) bool {
	_, ok := msg.(T)
	return ok
}

// New returns an initialized EventBus.
func New() EventBus {
	return &eventBus{
		subscribers: make(map[string]map[*subscriber]func(any) bool),
	}
}

// Publish a message to a topic. Subscribers with a full receive queue skip the message.
func (eb *eventBus) Publish(topic string, message any) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs, ok := eb.subscribers[topic]
	if !ok {
		return
	}

	for sub, filter := range subs {
		sub.mu.Lock()
		if sub.closed {
			sub.mu.Unlock()
			delete(subs, sub)
			continue
		}

		if filter(message) {
			select {
			case sub.ch <- message:
			default:
			}
		}
		sub.mu.Unlock()
	}

	if len(subs) == 0 {
		delete(eb.subscribers, topic)
	}
}

// Subscribe to a topic with a filter function. Returns a channel with given buffer size.
func (eb *eventBus) Subscribe(topic string, bufSize int, filter func(any) bool) Subscriber {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	sub := &subscriber{
		ch: make(chan any, bufSize),
	}

	if _, ok := eb.subscribers[topic]; !ok {
		eb.subscribers[topic] = make(map[*subscriber]func(any) bool)
	}
	eb.subscribers[topic][sub] = filter

	return sub
}

func (s *subscriber) C() <-chan any {
	return s.ch
}

// Unsubscribe closes the channel. Calling it more than once is a no-op.
func (s *subscriber) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	close(s.ch)
	s.closed = true
}
