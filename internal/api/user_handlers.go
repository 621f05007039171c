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

	"github.com/realtime-svg/realtime-svg/internal/credential"
	"github.com/realtime-svg/realtime-svg/internal/httputil"
	"github.com/realtime-svg/realtime-svg/internal/session"
	"github.com/realtime-svg/realtime-svg/pkg/logctx"
)

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// CreateOwnedSessionRequest is the body of an owned create.
type CreateOwnedSessionRequest struct {
	SessionID  string         `json:"session_id"`
	Template   string         `json:"template"`
	Args       map[string]any `json:"args"`
	TTLSeconds uint64         `json:"ttl_seconds"`
}

// CreateOwnedSessionResponse names the created owned session.
type CreateOwnedSessionResponse struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// authenticate extracts and verifies the bearer token, returning the
// authenticated subject. Every defect is Unauthorized.
func (h *Handler) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: missing Authorization header", credential.ErrUnauthorized)
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", fmt.Errorf("%w: invalid Authorization format", credential.ErrUnauthorized)
	}
	return h.creds.VerifyToken(r.Context(), token)
}

// authorizeUser verifies the bearer and requires its subject to equal
// the path user ID. Owner is the sole authorization input.
func (h *Handler) authorizeUser(r *http.Request, userID string) error {
	subject, err := h.authenticate(r)
	if err != nil {
		return err
	}
	if subject != userID {
		h.log.V(1).Info("subject mismatch", "subject", subject, "user_id", userID)
		return fmt.Errorf("%w: user %s cannot access sessions of user %s", errForbidden, subject, userID)
	}
	return nil
}

// handleCreateOwnedSession creates a session in the caller's own
// keyspace and publishes its first frame.
func (h *Handler) handleCreateOwnedSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.authorizeUser(r, userID); err != nil {
		writeError(w, err)
		return
	}

	var req CreateOwnedSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errInvalidInput, err))
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		writeError(w, session.ErrInvalidSessionID)
		return
	}

	ttl := defaultOwnedTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	sess := &session.Session{Template: req.Template, Args: req.Args, Owner: userID}
	if sess.Args == nil {
		sess.Args = map[string]any{}
	}

	ctx := logctx.WithSessionID(logctx.WithUserID(r.Context(), userID), sessionID)
	if err := h.saveAndPublish(ctx, session.OwnedKey(userID, sessionID), sess, ttl); err != nil {
		logctx.LoggerWithContext(h.log, ctx).Error(err, "owned create failed")
		writeError(w, err)
		return
	}

	_ = httputil.WriteJSON(w, http.StatusCreated, CreateOwnedSessionResponse{
		UserID:    userID,
		SessionID: sessionID,
	})
}

// handleListOwnedSessions returns the caller's session IDs.
func (h *Handler) handleListOwnedSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.authorizeUser(r, userID); err != nil {
		writeError(w, err)
		return
	}

	ids, err := h.store.ListOwnedSessions(r.Context(), userID)
	if err != nil {
		h.log.Error(err, "list failed", "user_id", userID)
		writeError(w, err)
		return
	}

	items := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		items = append(items, SessionInfo{SessionID: id})
	}
	_ = httputil.WriteJSON(w, http.StatusOK, ListResponse[SessionInfo]{Items: items})
}

// handleGetOwnedSession returns one of the caller's sessions. A miss
// never falls back to the public keyspace.
func (h *Handler) handleGetOwnedSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.authorizeUser(r, userID); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.store.GetSession(r.Context(), session.OwnedKey(userID, sessionID))
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

// handleUpdateOwnedSession replaces args wholesale, resets the TTL to
// the fixed window, and republishes.
func (h *Handler) handleUpdateOwnedSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.authorizeUser(r, userID); err != nil {
		writeError(w, err)
		return
	}

	var req UpdateSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errInvalidInput, err))
		return
	}
	if req.Args == nil {
		writeError(w, fmt.Errorf("%w: args is required", errInvalidInput))
		return
	}

	key := session.OwnedKey(userID, sessionID)
	sess, err := h.store.GetSession(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	sess.Args = req.Args

	ctx := logctx.WithSessionID(logctx.WithUserID(r.Context(), userID), sessionID)
	if err := h.saveAndPublish(ctx, key, sess, updateTTL); err != nil {
		logctx.LoggerWithContext(h.log, ctx).Error(err, "owned update failed")
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
