// Package events provides the typed publish/subscribe channel that keeps
// independent observers of activity state consistent without polling.
package events

import (
	"runtime/debug"
	"sync"

	"stride/internal/models"
	"stride/internal/observability"
)

// Event is the tagged union of notifications carried by the bus.
type Event interface {
	Kind() string
}

// ActivityUpdated announces that an activity's social state changed. The
// carried activity is a snapshot; observers must clone before mutating.
type ActivityUpdated struct {
	Activity *models.Activity
}

func (ActivityUpdated) Kind() string { return "activity_updated" }

// ActivityDeleted announces that an activity was removed; observers purge
// the id and everything under it.
type ActivityDeleted struct {
	ActivityID string
}

func (ActivityDeleted) Kind() string { return "activity_deleted" }

// Subscriber receives events. Delivery is at-least-once and fire-and-forget,
// so subscribers must be idempotent under redelivery of the same update.
type Subscriber func(Event)

type subscription struct {
	id int
	fn Subscriber
}

// Bus is a process-wide synchronous, in-order publish/subscribe channel.
// There is no backlog: late subscribers only see events published after they
// register.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	log    *observability.Logger
}

// NewBus creates an empty bus.
func NewBus(log *observability.Logger) *Bus {
	if log == nil {
		log = observability.Discard()
	}
	return &Bus{log: log}
}

// Subscribe registers fn and returns its teardown. Subscribers are invoked
// in registration order on the publisher's goroutine.
func (b *Bus) Subscribe(fn Subscriber) (cancel func()) {
	id := b.subscribe(fn)
	return func() { b.unsubscribe(id) }
}

func (b *Bus) subscribe(fn Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return id
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every current subscriber, in order. A panicking
// subscriber is logged and skipped; delivery to the rest continues.
func (b *Bus) Publish(ev Event) {
	b.publishExcept(0, ev)
}

func (b *Bus) publishExcept(skipID int, ev Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.id == skipID {
			continue
		}
		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event subscriber panicked",
				"kind", ev.Kind(), "panic", r, "stack", string(debug.Stack()))
		}
	}()
	s.fn(ev)
}
