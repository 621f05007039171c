/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package api provides the HTTP surface of the realtime-svg server:
// session CRUD for the public and owned keyspaces, token issuance,
// the JWKS view, and the multipart stream endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realtime-svg/realtime-svg/internal/bus"
	"github.com/realtime-svg/realtime-svg/internal/credential"
	"github.com/realtime-svg/realtime-svg/internal/httputil"
	"github.com/realtime-svg/realtime-svg/internal/session"
	"github.com/realtime-svg/realtime-svg/internal/stream"
)

// Fixed TTL windows.
const (
	// defaultCreateExpire applies when a public create omits expire.
	defaultCreateExpire = "1d"
	// updateTTL is the window every update resets a session to.
	updateTTL = time.Hour
	// defaultOwnedTTL applies when an owned create omits ttl_seconds.
	defaultOwnedTTL = time.Hour
)

// Config holds handler behavior toggles.
type Config struct {
	// RequirePassword makes token issuance demand a password. When
	// false the service issues tokens by user ID alone and treats any
	// supplied password as advisory (verified when present).
	RequirePassword bool
}

// Handler composes the store, bus, credential service, and stream
// engine behind the HTTP routes.
type Handler struct {
	store           session.Store
	bus             *bus.Bus
	creds           *credential.Manager
	engine          *stream.Engine
	requirePassword bool
	log             logr.Logger
}

// NewHandler creates the API handler.
func NewHandler(store session.Store, b *bus.Bus, creds *credential.Manager, engine *stream.Engine, cfg Config, log logr.Logger) *Handler {
	return &Handler{
		store:           store,
		bus:             b,
		creds:           creds,
		engine:          engine,
		requirePassword: cfg.RequirePassword,
		log:             log.WithName("api"),
	}
}

// NewRouter assembles the full route table with request-ID, logging,
// and metrics middleware.
func NewRouter(h *Handler, metrics *HTTPMetrics, log logr.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(metrics))

	r.Post("/api/auth/token", h.handleIssueToken)
	r.Get("/.well-known/jwks.json", h.handleJWKS)

	r.Post("/api/session", h.handleCreateSession)
	r.Get("/api/session/{sessionID}", h.handleGetSession)
	r.Put("/api/session/{sessionID}", h.handleUpdateSession)

	r.Route("/api/user/{userID}/session", func(r chi.Router) {
		r.Post("/", h.handleCreateOwnedSession)
		r.Get("/", h.handleListOwnedSessions)
		r.Get("/{sessionID}", h.handleGetOwnedSession)
		r.Put("/{sessionID}", h.handleUpdateOwnedSession)
	})

	r.Get("/stream/{sessionID}", h.handlePublicStream)
	r.Get("/stream/{userID}/{sessionID}", h.handleOwnedStream)

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// saveAndPublish renders the session's current frame, stores the
// session, and broadcasts the frame on the session's topic (which is
// its key). Set and publish are two successive operations, not one
// atomic step; stream joins cover the gap by emitting the current
// frame synchronously after subscribing.
func (h *Handler) saveAndPublish(ctx context.Context, key string, sess *session.Session, ttl time.Duration) error {
	frame := sess.CurrentFrame()

	if err := h.store.SetSession(ctx, key, sess, ttl); err != nil {
		return err
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", session.ErrSerialization)
	}
	return h.bus.Publish(ctx, key, payload)
}

// handleHealthz reports process liveness.
func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
