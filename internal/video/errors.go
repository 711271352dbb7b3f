package video

import (
	"errors"
	"fmt"

	"github.com/miadabdi/streamy/internal/lifecycle"
)

var (
	// ErrForbidden reports that the acting user does not own the asset's
	// channel. Surfaced directly to the caller, never retried.
	ErrForbidden = errors.New("actor does not own the channel")

	// ErrConflict reports that a concurrent writer moved the asset between
	// the caller's read and its conditional write. The caller must re-read
	// the current state before retrying.
	ErrConflict = errors.New("asset was modified concurrently")

	// ErrNoMediaFile reports a dispatch attempt on an asset that has no
	// media file linked.
	ErrNoMediaFile = errors.New("asset has no media file")
)

// StateError is the precondition failure returned when an operation is not
// valid for the asset's current processing status. It names the actual
// current status for debuggability.
type StateError struct {
	AssetID   int64
	Operation string
	Current   lifecycle.Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("asset %d cannot %s, current state: %s", e.AssetID, e.Operation, e.Current)
}
