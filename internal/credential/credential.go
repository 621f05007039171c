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

// Package credential manages the fleet-shared key material: one
// RSA-2048 pair and one password salt, created once via a
// set-if-absent race at bootstrap and cached process-locally. It
// issues and verifies RS256 bearer tokens, exposes a JWKS view of the
// public key, and hashes passwords with argon2id.
package credential

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Redis keys for the fleet-shared credential material.
const (
	keyPrivatePEM   = ".realtime-svg:rsa:private_pem"
	keyPublicPEM    = ".realtime-svg:rsa:public_pem"
	keyPasswordSalt = ".realtime-svg:password_salt"
)

// ErrUnauthorized is returned for every token defect: missing,
// malformed, expired, wrong issuer, or invalid signature.
var ErrUnauthorized = errors.New("unauthorized")

// material is the immutable process-local credential cache.
type material struct {
	signingKey   *rsa.PrivateKey
	verifyingKey *rsa.PublicKey
	salt         []byte
}

// Manager caches the credential material after a one-shot load from
// the shared store. The first caller runs the load; a failed load
// leaves the cache empty so the next caller retries. Subsequent reads
// are lock-free.
type Manager struct {
	client redis.UniversalClient
	cached atomic.Pointer[material]
	mu     sync.Mutex
}

// NewManager creates a credential manager on an existing Redis client.
func NewManager(client redis.UniversalClient) *Manager {
	return &Manager{client: client}
}

// load returns the cached material, initializing it from the store on
// first use.
func (m *Manager) load(ctx context.Context) (*material, error) {
	if mat := m.cached.Load(); mat != nil {
		return mat, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mat := m.cached.Load(); mat != nil {
		return mat, nil
	}

	mat, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}
	m.cached.Store(mat)
	return mat, nil
}

// fetch reads and parses the key material from the store.
func (m *Manager) fetch(ctx context.Context) (*material, error) {
	privPEM, err := m.client.Get(ctx, keyPrivatePEM).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	signingKey, err := parsePrivatePEM([]byte(privPEM))
	if err != nil {
		return nil, err
	}

	pubPEM, err := m.client.Get(ctx, keyPublicPEM).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}
	verifyingKey, err := parsePublicPEM([]byte(pubPEM))
	if err != nil {
		return nil, err
	}

	saltB64, err := m.client.Get(ctx, keyPasswordSalt).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load password salt: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode password salt: %w", err)
	}

	return &material{
		signingKey:   signingKey,
		verifyingKey: verifyingKey,
		salt:         salt,
	}, nil
}

// parsePrivatePEM parses a PKCS#1 PEM-encoded RSA private key.
func parsePrivatePEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode private key PEM block")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// parsePublicPEM parses a PKCS#1 PEM-encoded RSA public key.
func parsePublicPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode public key PEM block")
	}
	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}
