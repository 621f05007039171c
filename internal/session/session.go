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

// Package session provides the durable session store and its types.
// Sessions are keyed strings in Redis; a session's pub/sub topic is
// always identical to its key.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/realtime-svg/realtime-svg/internal/render"
)

// Common errors returned by the session store.
var (
	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session whose ID is taken.
	ErrSessionExists = errors.New("session already exists")
	// ErrInvalidSessionID is returned when a session ID is empty after trimming.
	ErrInvalidSessionID = errors.New("session ID cannot be empty")
	// ErrSerialization is returned when stored JSON cannot be encoded or decoded.
	ErrSerialization = errors.New("serialization failed")
	// ErrStore is returned when the underlying store operation fails.
	ErrStore = errors.New("store operation failed")
)

// Session is the unit of streaming and of access control: a textual
// template plus the argument map substituted into it. Owner is empty
// for public sessions and holds the authenticated subject for owned
// sessions; once set it never changes.
type Session struct {
	// Template is the SVG template text.
	Template string `json:"template"`
	// Args is the argument map substituted into the template.
	Args map[string]any `json:"args"`
	// Owner is the owning user ID, empty for public sessions.
	Owner string `json:"owner,omitempty"`
}

// Frame is a rendered SVG paired with its render time. Frames are
// derived, never authoritative: they are recomputed on every mutation
// and on every stream join, then broadcast on the session's topic.
type Frame struct {
	// Content is the rendered SVG text.
	Content string `json:"content"`
	// Timestamp is when the frame was rendered. Advisory only; it is
	// never consulted for ordering.
	Timestamp time.Time `json:"timestamp"`
}

// NewFrame creates a frame stamped with the current time.
func NewFrame(content string) Frame {
	return Frame{Content: content, Timestamp: time.Now().UTC()}
}

// CurrentFrame renders the session's template against its args.
// Render failures fall back to the raw template so that a session
// always has a current frame.
func (s *Session) CurrentFrame() Frame {
	rendered, err := render.Render(s.Template, s.Args)
	if err != nil {
		rendered = s.Template
	}
	return NewFrame(rendered)
}

// UserRecord is the stored credential record for a user, keyed
// user:<uid>:data. It expires with the TTL of the token that created it.
type UserRecord struct {
	// UserID is the record owner.
	UserID string `json:"user_id"`
	// PasswordHash is the PHC-encoded argon2id hash.
	PasswordHash string `json:"password_hash"`
}

// Store defines the interface for session storage.
type Store interface {
	// GetSession retrieves a session by key.
	// Returns ErrSessionNotFound if the session does not exist.
	GetSession(ctx context.Context, key string) (*Session, error)

	// SetSession stores a session under key with the given TTL.
	SetSession(ctx context.Context, key string, sess *Session, ttl time.Duration) error

	// SessionExists reports whether a session exists under key.
	SessionExists(ctx context.Context, key string) (bool, error)

	// ListOwnedSessions returns the bare session IDs owned by userID.
	ListOwnedSessions(ctx context.Context, userID string) ([]string, error)

	// CreateUserRecord stores a user record if absent. Returns false
	// when a record already exists.
	CreateUserRecord(ctx context.Context, userID string, rec *UserRecord, ttl time.Duration) (bool, error)

	// GetUserRecord retrieves a user record, or nil when absent.
	GetUserRecord(ctx context.Context, userID string) (*UserRecord, error)

	// Close releases any resources held by the store.
	Close() error
}
