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

package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestStore creates a RedisStore backed by miniredis.
func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStoreFromClient(client), mr
}

func testSession() *Session {
	return &Session{
		Template: `<svg>{{ label }}</svg>`,
		Args:     map[string]any{"label": "hello"},
	}
}

func TestSetGetSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	s := testSession()
	if err := store.SetSession(ctx, PublicKey("sess-1"), s, time.Hour); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	got, err := store.GetSession(ctx, PublicKey("sess-1"))
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Template != s.Template {
		t.Errorf("Template = %q, want %q", got.Template, s.Template)
	}
	if got.Args["label"] != "hello" {
		t.Errorf("Args[label] = %v, want hello", got.Args["label"])
	}
	if got.Owner != "" {
		t.Errorf("Owner = %q, want empty", got.Owner)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetSession(context.Background(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestGetSession_EmptyKey(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetSession(context.Background(), "")
	if !errors.Is(err, ErrInvalidSessionID) {
		t.Errorf("err = %v, want ErrInvalidSessionID", err)
	}
}

func TestGetSession_CorruptPayload(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Set("sess-1", "{not json")

	_, err := store.GetSession(context.Background(), "sess-1")
	if !errors.Is(err, ErrSerialization) {
		t.Errorf("err = %v, want ErrSerialization", err)
	}
}

func TestSetSession_TTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.SetSession(ctx, "sess-1", testSession(), time.Minute); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, err := store.GetSession(ctx, "sess-1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err after expiry = %v, want ErrSessionNotFound", err)
	}
}

func TestSetSession_UpdateResetsTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.SetSession(ctx, "sess-1", testSession(), time.Minute); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	mr.FastForward(30 * time.Second)

	if err := store.SetSession(ctx, "sess-1", testSession(), time.Minute); err != nil {
		t.Fatalf("SetSession (update): %v", err)
	}
	mr.FastForward(45 * time.Second)

	if _, err := store.GetSession(ctx, "sess-1"); err != nil {
		t.Errorf("session expired despite TTL reset: %v", err)
	}
}

func TestSessionExists(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	exists, err := store.SessionExists(ctx, "sess-1")
	if err != nil {
		t.Fatalf("SessionExists: %v", err)
	}
	if exists {
		t.Error("expected absent session")
	}

	if err := store.SetSession(ctx, "sess-1", testSession(), time.Hour); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	exists, err = store.SessionExists(ctx, "sess-1")
	if err != nil {
		t.Fatalf("SessionExists: %v", err)
	}
	if !exists {
		t.Error("expected existing session")
	}
}

func TestListOwnedSessions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		sess := &Session{Template: "<svg/>", Args: map[string]any{}, Owner: "alice"}
		if err := store.SetSession(ctx, OwnedKey("alice", id), sess, time.Hour); err != nil {
			t.Fatalf("SetSession(%s): %v", id, err)
		}
	}
	// Other keyspaces must not leak into the listing.
	if err := store.SetSession(ctx, OwnedKey("bob", "d"), testSession(), time.Hour); err != nil {
		t.Fatalf("SetSession(bob): %v", err)
	}
	if err := store.SetSession(ctx, PublicKey("e"), testSession(), time.Hour); err != nil {
		t.Fatalf("SetSession(public): %v", err)
	}

	ids, err := store.ListOwnedSessions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListOwnedSessions: %v", err)
	}
	slices.Sort(ids)
	want := []string{"a", "b", "c"}
	if !slices.Equal(ids, want) {
		t.Errorf("ListOwnedSessions = %v, want %v", ids, want)
	}
}

func TestListOwnedSessions_Empty(t *testing.T) {
	store, _ := newTestStore(t)

	ids, err := store.ListOwnedSessions(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListOwnedSessions: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ListOwnedSessions = %v, want empty", ids)
	}
}

func TestListOwnedSessions_ManyKeys(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// More keys than one SCAN batch, so the cursor loop has to iterate.
	const n = 250
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("sess-%03d", i)
		if err := store.SetSession(ctx, OwnedKey("alice", id), testSession(), time.Hour); err != nil {
			t.Fatalf("SetSession(%s): %v", id, err)
		}
	}

	ids, err := store.ListOwnedSessions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListOwnedSessions: %v", err)
	}
	if len(ids) != n {
		t.Errorf("got %d sessions, want %d", len(ids), n)
	}
}

func TestCreateUserRecord_FirstWriterWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateUserRecord(ctx, "alice", &UserRecord{UserID: "alice", PasswordHash: "hash-1"}, time.Hour)
	if err != nil {
		t.Fatalf("CreateUserRecord: %v", err)
	}
	if !created {
		t.Fatal("expected first create to win")
	}

	created, err = store.CreateUserRecord(ctx, "alice", &UserRecord{UserID: "alice", PasswordHash: "hash-2"}, time.Hour)
	if err != nil {
		t.Fatalf("CreateUserRecord (second): %v", err)
	}
	if created {
		t.Error("expected second create to lose")
	}

	rec, err := store.GetUserRecord(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserRecord: %v", err)
	}
	if rec == nil || rec.PasswordHash != "hash-1" {
		t.Errorf("record = %+v, want the first writer's hash", rec)
	}
}

func TestGetUserRecord_Absent(t *testing.T) {
	store, _ := newTestStore(t)

	rec, err := store.GetUserRecord(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetUserRecord: %v", err)
	}
	if rec != nil {
		t.Errorf("record = %+v, want nil", rec)
	}
}

func TestUserRecord_Expires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateUserRecord(ctx, "alice", &UserRecord{UserID: "alice", PasswordHash: "h"}, time.Minute); err != nil {
		t.Fatalf("CreateUserRecord: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	rec, err := store.GetUserRecord(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserRecord: %v", err)
	}
	if rec != nil {
		t.Error("expected record to expire with its TTL")
	}

	// The ID is claimable again once the record is gone.
	created, err := store.CreateUserRecord(ctx, "alice", &UserRecord{UserID: "alice", PasswordHash: "h2"}, time.Minute)
	if err != nil {
		t.Fatalf("CreateUserRecord (reclaim): %v", err)
	}
	if !created {
		t.Error("expected reclaim after expiry to succeed")
	}
}

func TestKeys(t *testing.T) {
	if got := PublicKey("sess-1"); got != "sess-1" {
		t.Errorf("PublicKey = %q, want %q", got, "sess-1")
	}
	if got := OwnedKey("alice", "sess-1"); got != "user:alice:session:sess-1" {
		t.Errorf("OwnedKey = %q, want %q", got, "user:alice:session:sess-1")
	}
	if got := UserRecordKey("alice"); got != "user:alice:data" {
		t.Errorf("UserRecordKey = %q, want %q", got, "user:alice:data")
	}
}

func TestCurrentFrame(t *testing.T) {
	s := testSession()
	frame := s.CurrentFrame()
	if frame.Content != "<svg>hello</svg>" {
		t.Errorf("Content = %q, want %q", frame.Content, "<svg>hello</svg>")
	}
	if frame.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestCurrentFrame_RenderFailureFallsBackToTemplate(t *testing.T) {
	s := &Session{Template: `<svg>{{ }}</svg>`, Args: map[string]any{}}
	frame := s.CurrentFrame()
	if frame.Content != s.Template {
		t.Errorf("Content = %q, want the raw template", frame.Content)
	}
}
