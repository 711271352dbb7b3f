// Package server assembles the HTTP server: routes, request identifiers and
// metrics middleware.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/miadabdi/streamy/internal/api"
	"github.com/miadabdi/streamy/internal/observability/metrics"
)

// Config carries everything the HTTP server needs.
type Config struct {
	Addr     string
	Handler  *api.Handler
	Recorder *metrics.Recorder
	Logger   *slog.Logger
}

// New builds the http.Server with the orchestrator's routes. The surface is
// deliberately small: health, metrics and the media-server webhooks.
func New(cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", cfg.Handler.Health)
	mux.Handle("/metrics", recorder.Handler())
	mux.HandleFunc("/hooks/srs", cfg.Handler.SRSHook)

	handler := requestIDMiddleware(logger, metrics.Middleware(recorder, mux))

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
