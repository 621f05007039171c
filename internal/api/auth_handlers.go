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
	"time"

	"github.com/realtime-svg/realtime-svg/internal/credential"
	"github.com/realtime-svg/realtime-svg/internal/httputil"
	"github.com/realtime-svg/realtime-svg/internal/session"
)

// TokenRequest is the body of a token issuance call. Password is
// optional unless the server runs with require_password.
type TokenRequest struct {
	UserID     string `json:"user_id"`
	Password   string `json:"password"`
	TTLSeconds uint64 `json:"ttl_seconds"`
}

// TokenResponse carries the signed bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// handleIssueToken signs a bearer token for user_id. When a password
// is supplied, the user record is claimed with set-if-absent and the
// password verified against it; a mismatch means the ID is held by
// someone else.
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errInvalidInput, err))
		return
	}

	if req.UserID == "" {
		writeError(w, fmt.Errorf("%w: user_id cannot be empty", credential.ErrUnauthorized))
		return
	}

	ttl := credential.DefaultTokenTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	if req.Password == "" {
		if h.requirePassword {
			writeError(w, fmt.Errorf("%w: password is required", credential.ErrUnauthorized))
			return
		}
	} else if err := h.claimAndVerifyUser(r, req.UserID, req.Password, ttl); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.creds.IssueToken(r.Context(), req.UserID, ttl)
	if err != nil {
		h.log.Error(err, "token issuance failed", "user_id", req.UserID)
		writeError(w, err)
		return
	}

	h.log.Info("issued token", "user_id", req.UserID)
	_ = httputil.WriteJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// claimAndVerifyUser creates the user record if absent and verifies
// the password against whatever record holds the ID.
func (h *Handler) claimAndVerifyUser(r *http.Request, userID, password string, ttl time.Duration) error {
	ctx := r.Context()

	hash, err := h.creds.HashPassword(ctx, password)
	if err != nil {
		return err
	}

	rec := &session.UserRecord{UserID: userID, PasswordHash: hash}
	if _, err := h.store.CreateUserRecord(ctx, userID, rec, ttl); err != nil {
		return err
	}

	stored, err := h.store.GetUserRecord(ctx, userID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("user record vanished after create")
	}

	ok, err := h.creds.VerifyPassword(ctx, password, stored.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: invalid credentials; the user ID may be held by another user", credential.ErrUnauthorized)
	}
	return nil
}

// handleJWKS serves the public verification key in JWKS form.
func (h *Handler) handleJWKS(w http.ResponseWriter, r *http.Request) {
	data, err := h.creds.JWKS(r.Context())
	if err != nil {
		h.log.Error(err, "JWKS build failed")
		writeError(w, err)
		return
	}

	w.Header().Set(httputil.HeaderContentType, httputil.ContentTypeJSON)
	w.Header().Set(httputil.HeaderCacheControl, "public, max-age=3600")
	_, _ = w.Write(data)
}
