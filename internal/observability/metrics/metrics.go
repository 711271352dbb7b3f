// Package metrics aggregates in-memory counters for HTTP traffic, queue
// activity and lifecycle transitions, exposed in Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

type queueLabel struct {
	queue  string
	result string
}

type transitionLabel struct {
	from string
	to   string
}

// Recorder aggregates counters for HTTP requests, queue publishes and
// consumes, and processing-status transitions. It is safe for concurrent
// use.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	publishCount    map[queueLabel]uint64
	consumeCount    map[queueLabel]uint64
	transitionCount map[transitionLabel]uint64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		publishCount:    make(map[queueLabel]uint64),
		consumeCount:    make(map[queueLabel]uint64),
		transitionCount: make(map[transitionLabel]uint64),
	}
}

// Default returns the singleton Recorder shared by the package helpers.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest records one HTTP request with its final status and latency.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	label := requestLabel{method: method, path: path, status: fmt.Sprintf("%d", status)}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
}

// ObservePublish records one publish attempt; result is "ok" or "error".
func (r *Recorder) ObservePublish(queue string, err error) {
	if r == nil {
		return
	}
	label := queueLabel{queue: queue, result: resultLabel(err)}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishCount[label]++
}

// ObserveConsume records one handled delivery; result is "ok" (acked) or
// "error" (left unacked for redelivery).
func (r *Recorder) ObserveConsume(queue string, err error) {
	if r == nil {
		return
	}
	label := queueLabel{queue: queue, result: resultLabel(err)}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumeCount[label]++
}

// ObserveTransition records one accepted processing-status transition.
func (r *Recorder) ObserveTransition(from, to string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitionCount[transitionLabel{from: from, to: to}]++
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the recorder's counters in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.WriteTo(w)
	})
}

// WriteTo renders the counters with stable label ordering.
func (r *Recorder) WriteTo(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lines []string
	for label, count := range r.requestCount {
		lines = append(lines, fmt.Sprintf(
			`streamy_http_requests_total{method=%q,path=%q,status=%q} %d`,
			label.method, label.path, label.status, count))
	}
	for label, total := range r.requestDuration {
		lines = append(lines, fmt.Sprintf(
			`streamy_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %.6f`,
			label.method, label.path, label.status, total.Seconds()))
	}
	for label, count := range r.publishCount {
		lines = append(lines, fmt.Sprintf(
			`streamy_queue_published_total{queue=%q,result=%q} %d`,
			label.queue, label.result, count))
	}
	for label, count := range r.consumeCount {
		lines = append(lines, fmt.Sprintf(
			`streamy_queue_consumed_total{queue=%q,result=%q} %d`,
			label.queue, label.result, count))
	}
	for label, count := range r.transitionCount {
		lines = append(lines, fmt.Sprintf(
			`streamy_lifecycle_transitions_total{from=%q,to=%q} %d`,
			label.from, label.to, count))
	}
	sort.Strings(lines)
	fmt.Fprint(w, strings.Join(lines, "\n"))
	if len(lines) > 0 {
		fmt.Fprint(w, "\n")
	}
}
