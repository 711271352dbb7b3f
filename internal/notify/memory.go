package notify

import (
	"context"
	"sync"

	"github.com/miadabdi/streamy/internal/lifecycle"
)

// Event is one recorded notification.
type Event struct {
	AssetID  int64
	PublicID string
	Status   lifecycle.Status
}

// MemoryNotifier records notifications for tests.
type MemoryNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// Fail makes subsequent StatusChanged calls return err. Pass nil to recover.
func (n *MemoryNotifier) Fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *MemoryNotifier) StatusChanged(_ context.Context, assetID int64, publicID string, status lifecycle.Status) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, Event{AssetID: assetID, PublicID: publicID, Status: status})
	return nil
}

// Events returns a copy of everything recorded so far.
func (n *MemoryNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.events))
	copy(out, n.events)
	return out
}

func (n *MemoryNotifier) Close() error { return nil }
