package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrDispatcherSealed is returned when registering after dispatching started.
var ErrDispatcherSealed = errors.New("dispatcher is sealed: listeners must be registered before the first dispatch")

// =============================================================================
// Listener Contract
// =============================================================================

// Dispatcher dispatches events to their listeners.
type Dispatcher interface {
	Dispatch(ctx context.Context, name Name, event Event) error
}

// Listener handles one event. It receives the dispatcher so it can
// dispatch nested events. A returned error aborts the remaining listeners
// of the current dispatch and is propagated to the caller.
type Listener func(ctx context.Context, event Event, name Name, dispatcher Dispatcher) error

// Subscription pairs a listener with its priority. Higher runs first.
type Subscription struct {
	Listener Listener
	Priority int
}

// Subscriber exposes the listeners it wants registered.
// Subscriptions is consulted once, when the subscriber is added.
type Subscriber interface {
	Subscriptions() map[Name][]Subscription
}

// =============================================================================
// EventDispatcher
// =============================================================================

// EventDispatcher is the priority-ordered Dispatcher.
//
// The subscription table is built before the first dispatch and is read-only
// afterwards, so concurrent dispatches from independent host runs are safe.
type EventDispatcher struct {
	mu        sync.RWMutex
	listeners map[Name][]Subscription // kept sorted: priority desc, registration order
	sealed    atomic.Bool
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		listeners: make(map[Name][]Subscription),
	}
}

// Register adds a listener for the named event.
func (d *EventDispatcher) Register(name Name, listener Listener, priority int) error {
	if !name.IsValid() {
		return fmt.Errorf("register %q: %w", name, ErrUnknownEvent)
	}
	if listener == nil {
		return fmt.Errorf("register %q: listener is nil", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sealed.Load() {
		return ErrDispatcherSealed
	}

	// Insert after every listener with the same or a higher priority
	subs := d.listeners[name]
	i := len(subs)
	for i > 0 && subs[i-1].Priority < priority {
		i--
	}
	subs = append(subs, Subscription{})
	copy(subs[i+1:], subs[i:])
	subs[i] = Subscription{Listener: listener, Priority: priority}
	d.listeners[name] = subs

	return nil
}

// AddSubscriber registers every subscription of the subscriber.
func (d *EventDispatcher) AddSubscriber(subscriber Subscriber) error {
	subscriptions := subscriber.Subscriptions()
	for name := range subscriptions {
		if !name.IsValid() {
			return fmt.Errorf("subscriber %T: %q: %w", subscriber, name, ErrUnknownEvent)
		}
	}

	// Register in lifecycle order for a deterministic table
	for _, name := range Names() {
		for _, sub := range subscriptions[name] {
			if err := d.Register(name, sub.Listener, sub.Priority); err != nil {
				return err
			}
		}
	}
	return nil
}

// Dispatch calls every listener of the named event in priority order.
// It stops early when a listener stops propagation or returns an error.
func (d *EventDispatcher) Dispatch(ctx context.Context, name Name, event Event) error {
	d.sealed.Store(true)

	for _, sub := range d.Listeners(name) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if event.IsPropagationStopped() {
			return nil
		}
		if err := sub.Listener(ctx, event, name, d); err != nil {
			return err
		}
	}
	return nil
}

// Listeners returns a snapshot of the subscriptions for an event, in
// dispatch order.
func (d *EventDispatcher) Listeners(name Name) []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()

	subs := d.listeners[name]
	out := make([]Subscription, len(subs))
	copy(out, subs)
	return out
}

// HasListeners reports whether any listener is registered for the event.
func (d *EventDispatcher) HasListeners(name Name) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[name]) > 0
}

// Seal freezes the subscription table. Dispatch seals implicitly.
func (d *EventDispatcher) Seal() {
	d.sealed.Store(true)
}
