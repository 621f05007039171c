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
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters, matching the defaults of the reference argon2id
// implementations (v19, 19 MiB memory, 2 passes, 1 lane, 32-byte tag).
const (
	argonMemoryKiB = 19456
	argonTime      = 2
	argonThreads   = 1
	argonKeyLen    = 32
)

// HashPassword hashes password against the fleet-shared salt and
// returns the PHC-encoded string,
// $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func (m *Manager) HashPassword(ctx context.Context, password string) (string, error) {
	mat, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	return encodePHC(hashWithSalt(password, mat.salt), mat.salt), nil
}

// VerifyPassword reports whether password matches the PHC-encoded
// hash. The salt is taken from the hash string itself so records
// survive a salt re-bootstrap.
func (m *Manager) VerifyPassword(_ context.Context, password, phc string) (bool, error) {
	salt, want, err := decodePHC(phc)
	if err != nil {
		return false, err
	}
	got := hashWithSalt(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func hashWithSalt(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)
}

func encodePHC(hash, salt []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemoryKiB, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func decodePHC(phc string) (salt, hash []byte, err error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, fmt.Errorf("malformed password hash")
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, fmt.Errorf("malformed password hash salt: %w", err)
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, fmt.Errorf("malformed password hash digest: %w", err)
	}
	return salt, hash, nil
}
