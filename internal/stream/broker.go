package stream

import (
	"sync"

	"go.uber.org/zap"
)

const defaultSubscriberBuffer = 256

// Broker is a topic-keyed broadcast of pipeline events. Publish never
// blocks: a subscriber whose buffer is full misses the event. Topics are
// brand IDs.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Event
	nextID int
	buffer int
}

// Subscription is one subscriber's feed. Close it when done or the
// broker keeps delivering into the buffer.
type Subscription struct {
	C      <-chan Event
	broker *Broker
	topic  string
	id     int
	once   sync.Once
}

// Close unsubscribes and closes the channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.unsubscribe(s.topic, s.id)
	})
}

// NewBroker creates a Broker. bufferSize is the per-subscriber channel
// capacity; zero or negative uses the default.
func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	return &Broker{
		subs:   make(map[string]map[int]chan Event),
		buffer: bufferSize,
	}
}

// Subscribe starts receiving events published to the topic.
func (b *Broker) Subscribe(topic string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan Event)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = ch

	return &Subscription{C: ch, broker: b, topic: topic, id: id}
}

func (b *Broker) unsubscribe(topic string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[topic]; ok {
		if ch, ok := subs[id]; ok {
			delete(subs, id)
			close(ch)
		}
		if len(subs) == 0 {
			delete(b.subs, topic)
		}
	}
}

// Publish fans the event out to every subscriber of the topic without
// blocking. Slow subscribers drop events.
func (b *Broker) Publish(topic string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs[topic] {
		select {
		case ch <- ev:
		default:
			zap.L().Warn("stream: subscriber buffer full, dropping event",
				zap.String("topic", topic),
				zap.Int("subscriber", id),
				zap.String("event_type", string(ev.Type)),
			)
		}
	}
}

// SubscriberCount reports how many subscribers a topic has.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
