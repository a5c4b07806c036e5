package realtime

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanOut(t *testing.T) {
	bus := NewBus(4, zerolog.Nop())
	a := bus.Subscribe(TopicVehicleAdmitted)
	b := bus.Subscribe(TopicVehicleAdmitted, TopicZoneUpdated)
	defer a.Close()
	defer b.Close()

	bus.Publish(TopicVehicleAdmitted, "rec-1")
	bus.Publish(TopicZoneUpdated, "zone-1")

	ev := <-a.C
	assert.Equal(t, TopicVehicleAdmitted, ev.Topic)
	assert.Equal(t, "rec-1", ev.Payload)
	select {
	case ev := <-a.C:
		t.Fatalf("subscriber a got event for unsubscribed topic: %v", ev)
	case <-time.After(20 * time.Millisecond):
	}

	ev = <-b.C
	assert.Equal(t, TopicVehicleAdmitted, ev.Topic)
	ev = <-b.C
	assert.Equal(t, TopicZoneUpdated, ev.Topic)
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus(1, zerolog.Nop())
	slow := bus.Subscribe(TopicZoneUpdated)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			bus.Publish(TopicZoneUpdated, i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber buffer")
	}

	// the first event is still deliverable, the overflow was dropped
	ev := <-slow.C
	assert.Equal(t, 0, ev.Payload)
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := NewBus(4, zerolog.Nop())
	sub := bus.Subscribe(TopicVehicleAdmitted)
	require.Equal(t, 1, bus.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, bus.SubscriberCount())

	// channel is closed, a receive returns immediately
	_, open := <-sub.C
	assert.False(t, open)

	// double close is safe
	sub.Close()
	bus.Publish(TopicVehicleAdmitted, "ignored")
}
