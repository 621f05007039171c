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
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/realtime-svg/realtime-svg/internal/session"
	"github.com/realtime-svg/realtime-svg/internal/stream"
	"github.com/realtime-svg/realtime-svg/pkg/logctx"
)

// handlePublicStream streams a public session.
func (h *Handler) handlePublicStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := logctx.WithSessionID(r.Context(), sessionID)

	sess, err := h.store.GetSession(ctx, session.PublicKey(sessionID))
	if err != nil {
		writeError(w, err)
		return
	}

	h.serveStream(w, r.WithContext(ctx), stream.Request{
		LogID:        sessionID,
		Topic:        session.PublicKey(sessionID),
		RedirectPath: "/session/" + sessionID,
		InitialFrame: sess.CurrentFrame(),
	})
}

// handleOwnedStream streams a session from the caller's own keyspace.
// The bearer is checked before the session is touched; a miss never
// falls back to the public keyspace.
func (h *Handler) handleOwnedStream(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.authorizeUser(r, userID); err != nil {
		writeError(w, err)
		return
	}

	ctx := logctx.WithSessionID(logctx.WithUserID(r.Context(), userID), sessionID)

	sess, err := h.store.GetSession(ctx, session.OwnedKey(userID, sessionID))
	if err != nil {
		writeError(w, err)
		return
	}

	h.serveStream(w, r.WithContext(ctx), stream.Request{
		LogID:        userID + ":" + sessionID,
		Topic:        session.OwnedKey(userID, sessionID),
		RedirectPath: "/session/" + sessionID,
		InitialFrame: sess.CurrentFrame(),
	})
}

// serveStream hands the connection to the engine. Engine errors all
// occur before response bytes, so they can still be written as JSON.
func (h *Handler) serveStream(w http.ResponseWriter, r *http.Request, req stream.Request) {
	if err := h.engine.ServeStream(w, r, req); err != nil {
		logctx.LoggerWithContext(h.log, r.Context()).Error(err, "stream setup failed")
		writeError(w, err)
	}
}
