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

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/common/model"

	"github.com/realtime-svg/realtime-svg/internal/httputil"
	"github.com/realtime-svg/realtime-svg/internal/session"
	"github.com/realtime-svg/realtime-svg/pkg/logctx"
)

// SessionInfo is the JSON response naming one session.
type SessionInfo struct {
	SessionID string `json:"session_id"`
}

// SessionDetail is the JSON response carrying a session's content.
type SessionDetail struct {
	SessionID string         `json:"session_id"`
	Template  string         `json:"template"`
	Args      map[string]any `json:"args"`
}

// CreateSessionRequest is the body of a public create.
type CreateSessionRequest struct {
	SessionID string         `json:"session_id"`
	Template  string         `json:"template"`
	Args      map[string]any `json:"args"`
	// Expire is a human-readable duration ("1d", "2h30m"). Default one day.
	Expire string `json:"expire"`
}

// UpdateSessionRequest is the body of an update; Args replace the
// stored map wholesale. A body without args is rejected.
type UpdateSessionRequest struct {
	Args map[string]any `json:"args"`
}

// handleCreateSession creates a public session and publishes its
// first frame.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errInvalidInput, err))
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		writeError(w, session.ErrInvalidSessionID)
		return
	}

	expire := req.Expire
	if expire == "" {
		expire = defaultCreateExpire
	}
	ttl, err := model.ParseDuration(expire)
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid expire duration %q", errInvalidInput, expire))
		return
	}

	ctx := logctx.WithSessionID(r.Context(), sessionID)

	exists, err := h.store.SessionExists(ctx, session.PublicKey(sessionID))
	if err != nil {
		logctx.LoggerWithContext(h.log, ctx).Error(err, "existence check failed")
		writeError(w, err)
		return
	}
	if exists {
		writeError(w, fmt.Errorf("%w: %s", session.ErrSessionExists, sessionID))
		return
	}

	sess := &session.Session{Template: req.Template, Args: req.Args}
	if sess.Args == nil {
		sess.Args = map[string]any{}
	}

	if err := h.saveAndPublish(ctx, session.PublicKey(sessionID), sess, time.Duration(ttl)); err != nil {
		logctx.LoggerWithContext(h.log, ctx).Error(err, "create failed")
		writeError(w, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusCreated, SessionInfo{SessionID: sessionID})
}

// handleGetSession returns a public session's template and args.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.store.GetSession(r.Context(), session.PublicKey(sessionID))
	if err != nil {
		writeError(w, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusOK, SessionDetail{
		SessionID: sessionID,
		Template:  sess.Template,
		Args:      sess.Args,
	})
}

// handleUpdateSession replaces a public session's args wholesale,
// resets its TTL, and republishes.
func (h *Handler) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req UpdateSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errInvalidInput, err))
		return
	}
	if req.Args == nil {
		writeError(w, fmt.Errorf("%w: args is required", errInvalidInput))
		return
	}

	ctx := logctx.WithSessionID(r.Context(), sessionID)

	sess, err := h.store.GetSession(ctx, session.PublicKey(sessionID))
	if err != nil {
		writeError(w, err)
		return
	}
	sess.Args = req.Args

	if err := h.saveAndPublish(ctx, session.PublicKey(sessionID), sess, updateTTL); err != nil {
		logctx.LoggerWithContext(h.log, ctx).Error(err, "update failed")
		writeError(w, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusOK, SessionInfo{SessionID: sessionID})
}
