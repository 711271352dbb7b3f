// Package notify pushes processing status changes to interested frontends
// over a redis pub/sub channel. Delivery is best effort: the lifecycle
// record in the store stays authoritative.
package notify

import (
	"context"

	"github.com/miadabdi/streamy/internal/lifecycle"
)

// Notifier broadcasts a status change for an asset.
type Notifier interface {
	StatusChanged(ctx context.Context, assetID int64, publicID string, status lifecycle.Status) error
	Close() error
}
