package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Topics published by the admission engine.
const (
	TopicVehicleAdmitted = "vehicleAdmitted"
	TopicZoneUpdated     = "zoneUpdated"
)

// Event is a single published message.
type Event struct {
	Topic   string      `json:"event"`
	Payload interface{} `json:"data"`
}

type subscriber struct {
	id     uuid.UUID
	topics map[string]struct{}
	ch     chan Event
}

// Bus is an in-process fan-out channel for decision and zone-update
// events. Delivery is best-effort: a subscriber whose buffer is full
// has the event dropped rather than blocking the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*subscriber
	buffer int
	log    zerolog.Logger
}

func NewBus(buffer int, log zerolog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[uuid.UUID]*subscriber),
		buffer: buffer,
		log:    log,
	}
}

// Publish delivers the payload to every current subscriber of the
// topic. It never blocks and never fails.
func (b *Bus) Publish(topic string, payload interface{}) {
	ev := Event{Topic: topic, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if _, ok := sub.topics[topic]; !ok {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.log.Warn().
				Str("topic", topic).
				Str("subscriber", sub.id.String()).
				Msg("subscriber buffer full, dropping event")
		}
	}
}

// Subscription is a live event feed. Close it to stop delivery; the
// channel is closed once the subscription is removed from the bus.
type Subscription struct {
	C    <-chan Event
	id   uuid.UUID
	bus  *Bus
	once sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		sub, ok := s.bus.subs[s.id]
		if ok {
			delete(s.bus.subs, s.id)
		}
		s.bus.mu.Unlock()
		if ok {
			close(sub.ch)
		}
	})
}

// Subscribe registers a listener for the given topics.
func (b *Bus) Subscribe(topics ...string) *Subscription {
	sub := &subscriber{
		id:     uuid.New(),
		topics: make(map[string]struct{}, len(topics)),
		ch:     make(chan Event, b.buffer),
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return &Subscription{C: sub.ch, id: sub.id, bus: b}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
