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
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// JWKS returns the public verification key as a JSON-encoded JWK set,
// with n and e in base64url-unpadded form.
func (m *Manager) JWKS(ctx context.Context) ([]byte, error) {
	mat, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	set := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       mat.verifyingKey,
				Algorithm: "RS256",
				Use:       "sig",
			},
		},
	}

	data, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JWKS: %w", err)
	}
	return data, nil
}
