// Package api exposes the orchestrator's HTTP surface: health, metrics and
// the media-server webhooks. Asset CRUD is a service-layer concern; nothing
// here grows into a general REST API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/miadabdi/streamy/internal/live"
	"github.com/miadabdi/streamy/internal/storage"
	"github.com/miadabdi/streamy/internal/video"
)

// Handler bundles the dependencies of the HTTP endpoints.
type Handler struct {
	Store        storage.Repository
	Live         *live.Service
	Logger       *slog.Logger
	SRSHookToken string
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Health reports the datastore's reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	components, overall, status := h.componentHealth(r.Context())
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"components": components,
	})
}

func (h *Handler) componentHealth(ctx context.Context) ([]componentStatus, string, int) {
	overall := "ok"
	statusCode := http.StatusOK
	record := func(component string, err error) componentStatus {
		status := "ok"
		message := ""
		if err != nil {
			status = "degraded"
			message = err.Error()
			overall = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		return componentStatus{Component: component, Status: status, Error: message}
	}

	components := make([]componentStatus, 0, 1)
	if h.Store != nil {
		components = append(components, record("datastore", h.Store.Ping(ctx)))
	}
	return components, overall, statusCode
}

// statusForError maps the service error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	var stateErr *video.StateError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, video.ErrForbidden), errors.Is(err, live.ErrAppNotAllowed):
		return http.StatusForbidden
	case errors.As(err, &stateErr):
		return http.StatusPreconditionFailed
	case errors.Is(err, video.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
