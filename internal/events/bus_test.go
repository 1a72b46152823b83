package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stride/internal/models"
)

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var order []string
	bus.Subscribe(func(Event) { order = append(order, "first") })
	bus.Subscribe(func(Event) { order = append(order, "second") })
	bus.Subscribe(func(Event) { order = append(order, "third") })

	bus.Publish(ActivityDeleted{ActivityID: "a1"})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var got int
	cancel := bus.Subscribe(func(Event) { got++ })

	bus.Publish(ActivityDeleted{ActivityID: "a1"})
	cancel()
	bus.Publish(ActivityDeleted{ActivityID: "a2"})

	assert.Equal(t, 1, got)

	// Cancelling twice is harmless.
	cancel()
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	var survived bool
	bus.Subscribe(func(Event) { panic("observer bug") })
	bus.Subscribe(func(Event) { survived = true })

	bus.Publish(ActivityUpdated{Activity: &models.Activity{ID: "a1"}})

	assert.True(t, survived, "a panicking subscriber must not break delivery to the rest")
}

func TestBus_NoBacklogForLateSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	bus.Publish(ActivityDeleted{ActivityID: "early"})

	var got []Event
	bus.Subscribe(func(ev Event) { got = append(got, ev) })
	bus.Publish(ActivityDeleted{ActivityID: "late"})

	assert.Len(t, got, 1)
	assert.Equal(t, "late", got[0].(ActivityDeleted).ActivityID)
}

func TestBus_EventKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "activity_updated", ActivityUpdated{}.Kind())
	assert.Equal(t, "activity_deleted", ActivityDeleted{}.Kind())
}
