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
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim on every token this service signs.
const Issuer = "realtime-svg"

// DefaultTokenTTL applies when a token request omits ttl_seconds.
const DefaultTokenTTL = time.Hour

// verifyLeeway tolerates small clock skew between instances.
const verifyLeeway = 60 * time.Second

// IssueToken signs a compact RS256 JWS with claims
// {sub, iat, exp, iss}.
func (m *Manager) IssueToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	mat, err := m.load(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    Issuer,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(mat.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// VerifyToken validates a compact JWS and returns its subject. Every
// defect (bad signature, wrong algorithm family, wrong issuer, expiry
// beyond leeway, malformed token) surfaces as ErrUnauthorized.
func (m *Manager) VerifyToken(ctx context.Context, token string) (string, error) {
	mat, err := m.load(ctx)
	if err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return mat.verifyingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithLeeway(verifyLeeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: invalid token: %v", ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	return claims.Subject, nil
}
