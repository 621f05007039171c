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

package credential

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// setupManager bootstraps credential material into miniredis and
// returns a manager plus the raw client.
func setupManager(t *testing.T) (*Manager, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if err := Bootstrap(context.Background(), client, logr.Discard()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return NewManager(client), client
}

func TestBootstrap_CreatesMaterial(t *testing.T) {
	_, client := setupManager(t)
	ctx := context.Background()

	priv, err := client.Get(ctx, keyPrivatePEM).Result()
	if err != nil {
		t.Fatalf("get private PEM: %v", err)
	}
	if !strings.Contains(priv, "RSA PRIVATE KEY") {
		t.Error("private PEM missing expected block type")
	}

	pub, err := client.Get(ctx, keyPublicPEM).Result()
	if err != nil {
		t.Fatalf("get public PEM: %v", err)
	}
	if !strings.Contains(pub, "RSA PUBLIC KEY") {
		t.Error("public PEM missing expected block type")
	}

	if _, err := client.Get(ctx, keyPasswordSalt).Result(); err != nil {
		t.Fatalf("get password salt: %v", err)
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	_, client := setupManager(t)
	ctx := context.Background()

	before, err := client.Get(ctx, keyPrivatePEM).Result()
	if err != nil {
		t.Fatalf("get private PEM: %v", err)
	}

	if err := Bootstrap(ctx, client, logr.Discard()); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}

	after, err := client.Get(ctx, keyPrivatePEM).Result()
	if err != nil {
		t.Fatalf("get private PEM: %v", err)
	}
	if before != after {
		t.Error("second bootstrap replaced the existing key material")
	}
}

func TestIssueVerifyToken(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	token, err := m.IssueToken(ctx, "alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	subject, err := m.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if subject != "alice" {
		t.Errorf("subject = %q, want %q", subject, "alice")
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	// Expired beyond the verification leeway.
	token, err := m.IssueToken(ctx, "alice", -5*time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	_, err = m.VerifyToken(ctx, token)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyToken_Tampered(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	token, err := m.IssueToken(ctx, "alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	// Flip a character in the signature segment.
	tampered := token[:len(token)-2] + "xx"
	if _, err := m.VerifyToken(ctx, tampered); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyToken_Malformed(t *testing.T) {
	m, _ := setupManager(t)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.VerifyToken(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("VerifyToken(%q) err = %v, want ErrUnauthorized", token, err)
		}
	}
}

func TestVerifyToken_WrongIssuer(t *testing.T) {
	m, client := setupManager(t)
	ctx := context.Background()

	// Sign with the fleet key but a foreign issuer.
	privPEM, err := client.Get(ctx, keyPrivatePEM).Result()
	if err != nil {
		t.Fatalf("get private PEM: %v", err)
	}
	key, err := parsePrivatePEM([]byte(privPEM))
	if err != nil {
		t.Fatalf("parsePrivatePEM: %v", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		Issuer:    "someone-else",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.VerifyToken(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyToken_RejectsHMAC(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		Issuer:    Issuer,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.VerifyToken(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyToken_MissingExpiry(t *testing.T) {
	m, client := setupManager(t)
	ctx := context.Background()

	privPEM, err := client.Get(ctx, keyPrivatePEM).Result()
	if err != nil {
		t.Fatalf("get private PEM: %v", err)
	}
	key, err := parsePrivatePEM([]byte(privPEM))
	if err != nil {
		t.Fatalf("parsePrivatePEM: %v", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:  "alice",
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Issuer:   Issuer,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.VerifyToken(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestJWKS(t *testing.T) {
	m, _ := setupManager(t)

	data, err := m.JWKS(context.Background())
	if err != nil {
		t.Fatalf("JWKS: %v", err)
	}

	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		t.Fatalf("unmarshal JWKS: %v", err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("got %d keys, want 1", len(set.Keys))
	}
	key := set.Keys[0]
	if key.Algorithm != "RS256" {
		t.Errorf("alg = %q, want RS256", key.Algorithm)
	}
	if key.Use != "sig" {
		t.Errorf("use = %q, want sig", key.Use)
	}
	if !key.Valid() {
		t.Error("expected a valid public JWK")
	}
}

func TestHashVerifyPassword(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	phc, err := m.HashPassword(ctx, "hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Errorf("hash = %q, want an argon2id PHC string", phc)
	}

	ok, err := m.VerifyPassword(ctx, "hunter2", phc)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Error("expected the right password to verify")
	}

	ok, err = m.VerifyPassword(ctx, "wrong", phc)
	if err != nil {
		t.Fatalf("VerifyPassword (wrong): %v", err)
	}
	if ok {
		t.Error("expected the wrong password to fail")
	}
}

func TestHashPassword_Deterministic(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	// The fleet salt makes hashing deterministic per deployment, which
	// the set-if-absent user claim flow depends on.
	a, err := m.HashPassword(ctx, "hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := m.HashPassword(ctx, "hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if a != b {
		t.Error("expected identical hashes for identical passwords")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	m, _ := setupManager(t)

	for _, phc := range []string{"", "plain", "$bcrypt$x$y$z", "$argon2id$v=19$m=1,t=1,p=1$!!$AA"} {
		if _, err := m.VerifyPassword(context.Background(), "pw", phc); err == nil {
			t.Errorf("VerifyPassword(%q): expected an error", phc)
		}
	}
}

func TestManager_LoadRetriesAfterFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m := NewManager(client)
	ctx := context.Background()

	// No material yet: load must fail without poisoning the cache.
	if _, err := m.IssueToken(ctx, "alice", time.Hour); err == nil {
		t.Fatal("expected an error before bootstrap")
	}

	if err := Bootstrap(ctx, client, logr.Discard()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if _, err := m.IssueToken(ctx, "alice", time.Hour); err != nil {
		t.Errorf("IssueToken after bootstrap: %v", err)
	}
}
