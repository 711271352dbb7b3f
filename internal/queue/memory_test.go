package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMemoryTransportPublishRecordsBodies(t *testing.T) {
	transport := NewMemoryTransport()
	ctx := context.Background()

	if err := transport.Publish(ctx, QueueVideoProcess, map[string]int{"videoId": 7}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	bodies := transport.Published(QueueVideoProcess)
	if len(bodies) != 1 {
		t.Fatalf("expected 1 published body, got %d", len(bodies))
	}
	var decoded map[string]int
	if err := json.Unmarshal(bodies[0], &decoded); err != nil {
		t.Fatalf("unmarshal published body: %v", err)
	}
	if decoded["videoId"] != 7 {
		t.Fatalf("unexpected body: %v", decoded)
	}
	if got := transport.Published(QueueSetVideoStatus); len(got) != 0 {
		t.Fatalf("unrelated queue should be empty, got %d bodies", len(got))
	}
}

func TestMemoryTransportFailPublishes(t *testing.T) {
	transport := NewMemoryTransport()
	brokerDown := errors.New("broker down")
	transport.FailPublishes(brokerDown)

	if err := transport.Publish(context.Background(), QueueVideoProcess, "x"); !errors.Is(err, brokerDown) {
		t.Fatalf("err = %v, want broker down", err)
	}
	if got := transport.Published(QueueVideoProcess); len(got) != 0 {
		t.Fatalf("failed publish must not be recorded, got %d", len(got))
	}

	transport.FailPublishes(nil)
	if err := transport.Publish(context.Background(), QueueVideoProcess, "x"); err != nil {
		t.Fatalf("publish after recovery: %v", err)
	}
}

func TestMemoryTransportDeliverRoutesToHandler(t *testing.T) {
	transport := NewMemoryTransport()
	ctx := context.Background()

	var seen []string
	handler := func(ctx context.Context, body []byte) error {
		seen = append(seen, string(body))
		if len(seen) == 1 {
			return errors.New("first attempt fails")
		}
		return nil
	}
	if err := transport.Subscribe(ctx, QueueSetVideoStatus, 10, handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := transport.Subscribe(ctx, QueueSetVideoStatus, 10, handler); err == nil {
		t.Fatal("double subscribe should fail")
	}

	// First delivery fails, second (the redelivery) succeeds.
	if err := transport.Deliver(ctx, QueueSetVideoStatus, "payload"); err == nil {
		t.Fatal("expected handler failure on first delivery")
	}
	if err := transport.Deliver(ctx, QueueSetVideoStatus, "payload"); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("handler saw %d deliveries, want 2", len(seen))
	}
}

func TestMemoryTransportDeliverWithoutSubscriber(t *testing.T) {
	transport := NewMemoryTransport()
	if err := transport.Deliver(context.Background(), QueueLiveProcess, "x"); err == nil {
		t.Fatal("expected error for queue without subscriber")
	}
}

func TestAMQPConfigDefaults(t *testing.T) {
	cfg := AMQPConfig{URL: "amqp://localhost"}.withDefaults()
	if cfg.PublishTimeout != defaultPublishTimeout {
		t.Fatalf("publish timeout = %v", cfg.PublishTimeout)
	}
	if cfg.ReconnectDelay != defaultReconnectDelay {
		t.Fatalf("reconnect delay = %v", cfg.ReconnectDelay)
	}
	if len(cfg.Queues) != len(Names) {
		t.Fatalf("queues = %v, want all well-known names", cfg.Queues)
	}
	if cfg.Logger == nil {
		t.Fatal("logger default missing")
	}
}
