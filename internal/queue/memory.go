package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryTransport is an in-process Transport for tests and local runs.
// Published payloads are recorded per queue; tests drive consumption
// explicitly through Deliver so redelivery and handler failures can be
// exercised deterministically.
type MemoryTransport struct {
	mu         sync.Mutex
	published  map[string][][]byte
	handlers   map[string]Handler
	publishErr error
}

var _ Transport = (*MemoryTransport)(nil)

// NewMemoryTransport returns an empty in-memory transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		published: make(map[string][][]byte),
		handlers:  make(map[string]Handler),
	}
}

// FailPublishes makes every subsequent Publish return err (nil restores
// normal behaviour). Used to test broker-outage handling.
func (m *MemoryTransport) FailPublishes(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

func (m *MemoryTransport) Publish(ctx context.Context, queueName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", queueName, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published[queueName] = append(m.published[queueName], body)
	return nil
}

func (m *MemoryTransport) Subscribe(ctx context.Context, queueName string, prefetch int, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.handlers[queueName]; exists {
		return fmt.Errorf("queue %s already has a subscriber", queueName)
	}
	m.handlers[queueName] = handler
	return nil
}

func (m *MemoryTransport) Close(ctx context.Context) error { return nil }

// Published returns the bodies published to queueName in order.
func (m *MemoryTransport) Published(queueName string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	bodies := make([][]byte, len(m.published[queueName]))
	copy(bodies, m.published[queueName])
	return bodies
}

// Deliver invokes the subscribed handler with payload, mimicking one broker
// delivery. The handler's error is returned unacknowledged-style: callers
// simulate redelivery by calling Deliver again.
func (m *MemoryTransport) Deliver(ctx context.Context, queueName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", queueName, err)
	}
	return m.DeliverRaw(ctx, queueName, body)
}

// DeliverRaw delivers a pre-encoded body, for malformed-message tests.
func (m *MemoryTransport) DeliverRaw(ctx context.Context, queueName string, body []byte) error {
	m.mu.Lock()
	handler := m.handlers[queueName]
	m.mu.Unlock()
	if handler == nil {
		return fmt.Errorf("queue %s has no subscriber", queueName)
	}
	return handler(ctx, body)
}
