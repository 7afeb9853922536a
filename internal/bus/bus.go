// Package bus is the coordinator's outbound event channel: an explicitly
// constructed instance handed to the coordinator and its consumers, with
// topic-filtered subscriptions.
package bus

import (
	"sync"

	"hivemind.ai/internal/protocol"
)

type Bus struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

type Subscriber struct {
	// C delivers matching envelopes. Slow consumers lose the oldest
	// buffered message rather than stalling the coordinator loop.
	C chan protocol.Envelope

	bus    *Bus
	topics map[string]struct{} // nil = all topics
}

func New() *Bus {
	return &Bus{subs: map[*Subscriber]struct{}{}}
}

// Subscribe registers a consumer. No topics means every topic.
func (b *Bus) Subscribe(buffer int, topics ...string) *Subscriber {
	if buffer <= 0 {
		buffer = 64
	}
	s := &Subscriber{C: make(chan protocol.Envelope, buffer), bus: b}
	if len(topics) > 0 {
		s.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (s *Subscriber) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
}

func (s *Subscriber) wants(topic string) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// Publish fans the envelope out to every matching subscriber without ever
// blocking the caller.
func (b *Bus) Publish(env protocol.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if !s.wants(env.Topic) {
			continue
		}
		sendLatest(s.C, env)
	}
}

func sendLatest(ch chan protocol.Envelope, env protocol.Envelope) {
	select {
	case ch <- env:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- env:
	default:
	}
}
