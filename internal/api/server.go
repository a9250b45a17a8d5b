// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the control HTTP API: watch commands, scans, favorites,
// status and a relay of the monitored live stream.
package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/tunewatch/internal/api/middleware"
	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/engine"
	"github.com/ManuGH/tunewatch/internal/favorites"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/scan"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Controller is the subset of the engine the API drives.
type Controller interface {
	Watch(ctx context.Context, channel string) error
	StopWatching(ctx context.Context) error
	StartScan(ctx context.Context, opts scan.Options) error
	StopScan(ctx context.Context) error
	Status() engine.Status
}

// Channels lists the catalog.
type Channels interface {
	Records() []catalog.Record
	Find(name string) (catalog.Record, bool)
	Len() int
}

// Stream hands out raw datagrams of the monitored live stream.
type Stream interface {
	Subscribe() (<-chan []byte, func())
}

// Config configures the HTTP surface.
type Config struct {
	// RateLimit is requests per minute per client, 0 disables limiting.
	RateLimit int
	// TracingService enables otelhttp spans under this service name.
	TracingService string
	// ScanDefaults seeds scan requests; the body overrides fields it sets.
	ScanDefaults scan.Options
	Version      string
}

// Server wires the control API handlers.
type Server struct {
	cfg       Config
	ctrl      Controller
	channels  Channels
	favorites *favorites.List
	stream    Stream
	logger    zerolog.Logger
}

// New creates a Server. stream may be nil, in which case /api/live.ts answers 503.
func New(cfg Config, ctrl Controller, channels Channels, favs *favorites.List, stream Stream) *Server {
	return &Server{
		cfg:       cfg,
		ctrl:      ctrl,
		channels:  channels,
		favorites: favs,
		stream:    stream,
		logger:    log.WithComponent("api"),
	}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
		RateLimitPerMinute:    s.cfg.RateLimit,
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/channels", s.handleChannels)

		r.Post("/scan", s.handleStartScan)
		r.Delete("/scan", s.handleStopScan)

		r.Post("/watch", s.handleWatch)
		r.Post("/watch/slot/{slot}", s.handleWatchSlot)
		r.Delete("/watch", s.handleStopWatching)

		r.Get("/favorites", s.handleListFavorites)
		r.Post("/favorites", s.handleAddFavorite)
		r.Delete("/favorites/{channel}", s.handleRemoveFavorite)

		r.Get("/live.ts", s.handleLive)
	})

	return r
}
