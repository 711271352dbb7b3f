package lifecycle

import (
	"errors"
	"testing"
)

func TestNextHappyPath(t *testing.T) {
	steps := []struct {
		current Status
		event   Event
		want    Status
	}{
		{StatusReadyForUpload, EventUploadCorrelated, StatusReadyForProcessing},
		{StatusReadyForProcessing, EventDispatchRequested, StatusWaitingInQueue},
		{StatusWaitingInQueue, EventWorkerProcessing, StatusProcessing},
		{StatusProcessing, EventWorkerDone, StatusDone},
	}
	for _, step := range steps {
		got, err := Next(step.current, step.event)
		if err != nil {
			t.Fatalf("Next(%s, %s): %v", step.current, step.event, err)
		}
		if got != step.want {
			t.Fatalf("Next(%s, %s) = %s, want %s", step.current, step.event, got, step.want)
		}
	}
}

func TestNextFailureAndRetry(t *testing.T) {
	got, err := Next(StatusProcessing, EventWorkerFailed)
	if err != nil || got != StatusFailed {
		t.Fatalf("Next(processing, worker-failed) = %s, %v", got, err)
	}
	got, err = Next(StatusFailed, EventDispatchRequested)
	if err != nil || got != StatusWaitingInQueue {
		t.Fatalf("Next(failed, dispatch-requested) = %s, %v", got, err)
	}
}

func TestNextRejectsEverythingOffTheTable(t *testing.T) {
	statuses := []Status{
		StatusReadyForUpload, StatusReadyForProcessing, StatusWaitingInQueue,
		StatusProcessing, StatusDone, StatusFailed,
	}
	events := []Event{
		EventUploadCorrelated, EventDispatchRequested,
		EventWorkerProcessing, EventWorkerDone, EventWorkerFailed,
	}
	for _, status := range statuses {
		for _, event := range events {
			if Allows(status, event) {
				continue
			}
			_, err := Next(status, event)
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("Next(%s, %s) error = %v, want InvalidTransitionError", status, event, err)
			}
			if invalid.Current != status || invalid.Event != event {
				t.Fatalf("InvalidTransitionError = %+v, want current=%s event=%s", invalid, status, event)
			}
		}
	}
	// Done is terminal.
	for _, event := range events {
		if Allows(StatusDone, event) {
			t.Fatalf("done must be terminal, but allows %s", event)
		}
	}
}

func TestInitial(t *testing.T) {
	if got := Initial(false); got != StatusReadyForUpload {
		t.Fatalf("Initial(false) = %s", got)
	}
	if got := Initial(true); got != StatusReadyForProcessing {
		t.Fatalf("Initial(true) = %s", got)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("waiting_in_queue"); err != nil {
		t.Fatalf("ParseStatus(waiting_in_queue): %v", err)
	}
	if _, err := ParseStatus("sideways"); err == nil {
		t.Fatal("ParseStatus(sideways) should fail")
	}
}

func TestEventForReported(t *testing.T) {
	cases := []struct {
		status  Status
		want    Event
		wantErr bool
	}{
		{StatusProcessing, EventWorkerProcessing, false},
		{StatusDone, EventWorkerDone, false},
		{StatusFailed, EventWorkerFailed, false},
		{StatusReadyForUpload, "", true},
		{StatusWaitingInQueue, "", true},
	}
	for _, tc := range cases {
		got, err := EventForReported(tc.status)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("EventForReported(%s) should fail", tc.status)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("EventForReported(%s) = %s, %v, want %s", tc.status, got, err, tc.want)
		}
	}
}
