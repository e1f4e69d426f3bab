package bus

import (
	"encoding/json"
	"sync"
)

// Topics carried by the gateway. Payloads are raw JSON documents.
const (
	TopicDenmOutgoing = "denm.outgoing" // HTTP ingress -> interchange
	TopicDenmIncoming = "denm.incoming" // interchange -> WebSocket egress
)

// Handler receives the payload published on a topic. Handlers run
// synchronously on the publisher's goroutine while the bus lock is held,
// so they must not block and must not call back into the bus.
type Handler func(payload json.RawMessage)

// Bus is a process-local publish/subscribe dispatcher over named topics.
// It is an explicit handle passed to the services at construction; there is
// no package-level instance.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string][]Handler
}

func New() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe appends a handler to the topic. Handlers are invoked in
// subscription order on every publish.
func (b *Bus) Subscribe(topic string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], h)
}

// Publish delivers payload to every subscriber of topic, in subscription
// order, on the calling goroutine.
func (b *Bus) Publish(topic string, payload json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range b.subscribers[topic] {
		h(payload)
	}
}
