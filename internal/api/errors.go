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
	"errors"
	"net/http"

	"github.com/realtime-svg/realtime-svg/internal/credential"
	"github.com/realtime-svg/realtime-svg/internal/httputil"
	"github.com/realtime-svg/realtime-svg/internal/session"
	"github.com/realtime-svg/realtime-svg/internal/stream"
)

// Errors owned by the HTTP layer itself.
var (
	// errForbidden is returned when the authenticated subject does not
	// match the path user ID.
	errForbidden = errors.New("forbidden")
	// errInvalidInput is returned for malformed request bodies and
	// unparseable values.
	errInvalidInput = errors.New("invalid input")
)

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to its HTTP status. Unrecognized errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, stream.ErrInvalidParams),
		errors.Is(err, errInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, credential.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the JSON error response for err. Internal errors
// get a generic message so store details and key material never reach
// clients.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	_ = httputil.WriteJSON(w, status, ErrorResponse{Error: message})
}
