// Package queue provides the durable point-to-point message transport the
// lifecycle services coordinate through. Delivery is at-least-once: a
// handler error leaves the message unacknowledged and the broker redelivers
// it, so every consumer must tolerate duplicates.
package queue

import "context"

// Queue names shared with the external transcode and live workers.
const (
	// QueueVideoProcess carries transcode job snapshots to the worker.
	QueueVideoProcess = "q.video.process"
	// QueueSetVideoStatus carries status/log reports back from the worker.
	QueueSetVideoStatus = "q.set.video.status"
	// QueueLiveProcess carries live-stream job notices to the live worker.
	QueueLiveProcess = "q.live.process"
	// QueueObjectEvents receives object-store creation notifications routed
	// to the broker by the object store.
	QueueObjectEvents = "q.object.events"
)

// Names lists every queue the transport asserts as durable on connect.
var Names = []string{QueueVideoProcess, QueueSetVideoStatus, QueueLiveProcess, QueueObjectEvents}

// Handler consumes one delivered message body. Returning nil acknowledges
// the message; returning an error leaves it unacknowledged for redelivery.
type Handler func(ctx context.Context, body []byte) error

// Transport publishes to and subscribes on named durable queues.
//
// Publish persists the payload on the broker and returns once the broker has
// accepted it; it does not wait for a consumer. Subscribe registers handler
// for queueName with at most prefetch unacknowledged messages in flight and
// returns after the consumer is installed; deliveries are dispatched on
// background goroutines until ctx is cancelled.
type Transport interface {
	Publish(ctx context.Context, queueName string, payload any) error
	Subscribe(ctx context.Context, queueName string, prefetch int, handler Handler) error
	Close(ctx context.Context) error
}
