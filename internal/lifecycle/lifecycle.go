// Package lifecycle defines the processing state machine for media assets.
// Statuses use the same spellings the external transcoder reports on the
// wire, so a consumed status value can be parsed and applied directly.
package lifecycle

import "fmt"

// Status is the processing state of an asset. The zero value is not a valid
// status; assets are created in StatusReadyForUpload (on-demand) or
// StatusReadyForProcessing (live).
type Status string

const (
	StatusReadyForUpload     Status = "ready_for_upload"
	StatusReadyForProcessing Status = "ready_for_processing"
	StatusWaitingInQueue     Status = "waiting_in_queue"
	StatusProcessing         Status = "processing"
	StatusDone               Status = "done"
	StatusFailed             Status = "failed"
)

// Event names a cause for a status change. Events, not statuses, are the
// unit of validation: an event is either legal in the current status or the
// transition is rejected without touching the record.
type Event string

const (
	// EventUploadCorrelated fires when an object-store creation notification
	// has been matched to the asset's media file record.
	EventUploadCorrelated Event = "upload-correlated"
	// EventDispatchRequested fires when the owner queues the asset for
	// processing. It is also the retry path out of StatusFailed.
	EventDispatchRequested Event = "dispatch-requested"
	// EventWorkerProcessing, EventWorkerDone and EventWorkerFailed are
	// reported back by the transcode worker through the status queue.
	EventWorkerProcessing Event = "worker-processing"
	EventWorkerDone       Event = "worker-done"
	EventWorkerFailed     Event = "worker-failed"
)

var transitions = map[Status]map[Event]Status{
	StatusReadyForUpload: {
		EventUploadCorrelated: StatusReadyForProcessing,
	},
	StatusReadyForProcessing: {
		EventDispatchRequested: StatusWaitingInQueue,
	},
	StatusWaitingInQueue: {
		EventWorkerProcessing: StatusProcessing,
	},
	StatusProcessing: {
		EventWorkerDone:   StatusDone,
		EventWorkerFailed: StatusFailed,
	},
	StatusFailed: {
		EventDispatchRequested: StatusWaitingInQueue,
	},
}

// InvalidTransitionError reports an event that is not legal in the current
// status. It carries the actual current status so callers can surface it.
type InvalidTransitionError struct {
	Current Status
	Event   Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("event %s is not valid in status %s", e.Event, e.Current)
}

// Next returns the status reached by applying event to current. Anything not
// present in the transition table yields an InvalidTransitionError and the
// caller must not mutate the record.
func Next(current Status, event Event) (Status, error) {
	if next, ok := transitions[current][event]; ok {
		return next, nil
	}
	return "", &InvalidTransitionError{Current: current, Event: event}
}

// Allows reports whether event is legal in the current status.
func Allows(current Status, event Event) bool {
	_, ok := transitions[current][event]
	return ok
}

// Initial returns the status a freshly created asset starts in. Live assets
// have no upload phase and start ready for processing.
func Initial(live bool) Status {
	if live {
		return StatusReadyForProcessing
	}
	return StatusReadyForUpload
}

// ParseStatus validates a wire status value.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusReadyForUpload, StatusReadyForProcessing, StatusWaitingInQueue,
		StatusProcessing, StatusDone, StatusFailed:
		return Status(value), nil
	}
	return "", fmt.Errorf("unknown processing status %q", value)
}

// EventForReported maps a worker-reported status to the event that reaches
// it. Workers claim target states on the wire; the state machine still
// decides whether the claim is legal for the asset's recorded status.
func EventForReported(status Status) (Event, error) {
	switch status {
	case StatusProcessing:
		return EventWorkerProcessing, nil
	case StatusDone:
		return EventWorkerDone, nil
	case StatusFailed:
		return EventWorkerFailed, nil
	}
	return "", fmt.Errorf("status %q cannot be reported by a worker", status)
}
