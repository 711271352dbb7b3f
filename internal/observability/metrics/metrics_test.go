package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecorderCountsAndRenders(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest(http.MethodPost, "/hooks/srs", 200, 12*time.Millisecond)
	recorder.ObserveRequest(http.MethodPost, "/hooks/srs", 200, 8*time.Millisecond)
	recorder.ObservePublish("q.video.process", nil)
	recorder.ObservePublish("q.video.process", errors.New("broker down"))
	recorder.ObserveConsume("q.set.video.status", nil)
	recorder.ObserveTransition("processing", "done")

	var builder strings.Builder
	recorder.WriteTo(&builder)
	output := builder.String()

	expectations := []string{
		`streamy_http_requests_total{method="POST",path="/hooks/srs",status="200"} 2`,
		`streamy_queue_published_total{queue="q.video.process",result="ok"} 1`,
		`streamy_queue_published_total{queue="q.video.process",result="error"} 1`,
		`streamy_queue_consumed_total{queue="q.set.video.status",result="ok"} 1`,
		`streamy_lifecycle_transitions_total{from="processing",to="done"} 1`,
	}
	for _, line := range expectations {
		if !strings.Contains(output, line) {
			t.Fatalf("output missing %q:\n%s", line, output)
		}
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	recorder := New()
	recorder.ObserveConsume("q.object.events", nil)

	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	response := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(response, request)

	if got := response.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("content type = %q", got)
	}
	if !strings.Contains(response.Body.String(), "streamy_queue_consumed_total") {
		t.Fatalf("body missing counters: %s", response.Body.String())
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	recorder := New()
	handler := Middleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	request := httptest.NewRequest(http.MethodPost, "/videos/dispatch", nil)
	handler.ServeHTTP(httptest.NewRecorder(), request)

	var builder strings.Builder
	recorder.WriteTo(&builder)
	if !strings.Contains(builder.String(), `status="403"`) {
		t.Fatalf("middleware did not record status: %s", builder.String())
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var recorder *Recorder
	recorder.ObserveRequest("GET", "/", 200, time.Millisecond)
	recorder.ObservePublish("q", nil)
	recorder.ObserveConsume("q", nil)
	recorder.ObserveTransition("a", "b")
}
