package apicore

import (
	"context"
	"fmt"
	"sync"
)

// Event names.
const (
	EventRouteCollectionFilled = "route.collection_filled"
	EventPreRequest            = "request.pre"
	EventPostRequest           = "request.post"
)

// RouteCollectionFilledEvent is dispatched once, after the routes have been
// resolved and before any of them is registered.
type RouteCollectionFilledEvent struct {
	Routes []Route
}

// PreRequestEvent is dispatched before the action runs.
type PreRequestEvent struct {
	Route    Configuration
	Exchange Exchange
}

// PostRequestEvent is dispatched after the action returns and carries its response.
type PostRequestEvent struct {
	Route    Configuration
	Exchange Exchange
}

// Listener receives an event and returns the event passed to the next
// listener. Returning an error stops the dispatch.
type Listener[E any] func(ctx context.Context, event E) (E, error)

// Topic is a named, synchronous event channel. Listeners run in
// subscription order on the dispatching goroutine.
type Topic[E any] struct {
	name      string
	mu        sync.RWMutex
	listeners []Listener[E]
}

func NewTopic[E any](name string) *Topic[E] {
	return &Topic[E]{name: name}
}

func (t *Topic[E]) Name() string {
	return t.name
}

// Subscribe appends l to the topic.
func (t *Topic[E]) Subscribe(l Listener[E]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// Observe subscribes a listener that only reads the event.
func (t *Topic[E]) Observe(fn func(ctx context.Context, event E)) {
	t.Subscribe(func(ctx context.Context, event E) (E, error) {
		fn(ctx, event)
		return event, nil
	})
}

// Dispatch passes event through every listener subscribed at call time and
// returns the final value.
func (t *Topic[E]) Dispatch(ctx context.Context, event E) (E, error) {
	t.mu.RLock()
	listeners := make([]Listener[E], len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.RUnlock()

	for i, l := range listeners {
		next, err := l(ctx, event)
		if err != nil {
			return event, fmt.Errorf("dispatch %s: listener %d: %w", t.name, i, err)
		}
		event = next
	}
	return event, nil
}

// Dispatcher holds the lifecycle topics.
type Dispatcher struct {
	CollectionFilled *Topic[RouteCollectionFilledEvent]
	PreRequest       *Topic[PreRequestEvent]
	PostRequest      *Topic[PostRequestEvent]
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		CollectionFilled: NewTopic[RouteCollectionFilledEvent](EventRouteCollectionFilled),
		PreRequest:       NewTopic[PreRequestEvent](EventPreRequest),
		PostRequest:      NewTopic[PostRequestEvent](EventPostRequest),
	}
}
