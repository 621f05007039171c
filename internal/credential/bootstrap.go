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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

const rsaKeyBits = 2048

// saltBytes is the length of the generated password salt.
const saltBytes = 16

// Bootstrap ensures the fleet-shared credential material exists in the
// store. Multiple instances may call it concurrently; SET NX decides
// the winner and losing the race is success. Safe to call on every
// startup.
func Bootstrap(ctx context.Context, client redis.UniversalClient, log logr.Logger) error {
	if err := bootstrapKeyPair(ctx, client, log); err != nil {
		return err
	}
	return bootstrapSalt(ctx, client, log)
}

func bootstrapKeyPair(ctx context.Context, client redis.UniversalClient, log logr.Logger) error {
	n, err := client.Exists(ctx, keyPrivatePEM).Result()
	if err != nil {
		return fmt.Errorf("failed to check for RSA keys: %w", err)
	}
	if n > 0 {
		log.V(1).Info("RSA keys already exist")
		return nil
	}

	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey),
	})

	set, err := client.SetNX(ctx, keyPrivatePEM, privPEM, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store private key: %w", err)
	}
	if !set {
		log.V(1).Info("RSA keys were created by another instance")
		return nil
	}

	if err := client.Set(ctx, keyPublicPEM, pubPEM, 0).Err(); err != nil {
		return fmt.Errorf("failed to store public key: %w", err)
	}
	log.Info("created new RSA keys")
	return nil
}

func bootstrapSalt(ctx context.Context, client redis.UniversalClient, log logr.Logger) error {
	n, err := client.Exists(ctx, keyPasswordSalt).Result()
	if err != nil {
		return fmt.Errorf("failed to check for password salt: %w", err)
	}
	if n > 0 {
		log.V(1).Info("password salt already exists")
		return nil
	}

	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate password salt: %w", err)
	}
	salt := base64.RawStdEncoding.EncodeToString(raw)

	set, err := client.SetNX(ctx, keyPasswordSalt, salt, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store password salt: %w", err)
	}
	if set {
		log.Info("created new password salt")
	} else {
		log.V(1).Info("password salt was created by another instance")
	}
	return nil
}
