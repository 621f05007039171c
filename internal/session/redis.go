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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// scanBatchSize bounds the number of keys returned per SCAN iteration.
	scanBatchSize = 100

	// Error format strings
	errMarshalSession   = "failed to marshal session: %w"
	errUnmarshalSession = "failed to unmarshal session: %w"
	errGetSession       = "failed to get session: %w"
	errCheckExistence   = "failed to check session existence: %w"
)

// RedisStore implements Store using Redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewStore creates a Redis session store from a connection URL
// (redis:// or rediss://). The connection is verified with a ping.
func NewStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewStoreFromClient creates a Redis session store from an existing client.
func NewStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying Redis client, shared with the message
// bus and the credential service so all three use one connection pool.
func (r *RedisStore) Client() redis.UniversalClient {
	return r.client
}

// GetSession retrieves a session by key.
func (r *RedisStore) GetSession(ctx context.Context, key string) (*Session, error) {
	if key == "" {
		return nil, ErrInvalidSessionID
	}

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf(errGetSession, storeErr(err))
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf(errUnmarshalSession, serializationErr(err))
	}
	return &sess, nil
}

// SetSession stores a session under key with the given TTL.
func (r *RedisStore) SetSession(ctx context.Context, key string, sess *Session, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidSessionID
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf(errMarshalSession, serializationErr(err))
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", storeErr(err))
	}
	return nil
}

// SessionExists reports whether a session exists under key.
func (r *RedisStore) SessionExists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf(errCheckExistence, storeErr(err))
	}
	return n > 0, nil
}

// ListOwnedSessions returns the bare session IDs owned by userID,
// scanning the owned keyspace in batches and stripping the key prefix.
func (r *RedisStore) ListOwnedSessions(ctx context.Context, userID string) ([]string, error) {
	prefix := ownedKeyPrefix(userID)
	pattern := prefix + "*"

	sessions := []string{}
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan sessions: %w", storeErr(err))
		}
		for _, key := range keys {
			sessions = append(sessions, key[len(prefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return sessions, nil
}

// CreateUserRecord stores a user record with SET NX so only the first
// writer for a user ID wins. Returns false when a record already exists.
func (r *RedisStore) CreateUserRecord(ctx context.Context, userID string, rec *UserRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal user record: %w", serializationErr(err))
	}

	created, err := r.client.SetNX(ctx, UserRecordKey(userID), data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to create user record: %w", storeErr(err))
	}
	return created, nil
}

// GetUserRecord retrieves a user record, or nil when absent.
func (r *RedisStore) GetUserRecord(ctx context.Context, userID string) (*UserRecord, error) {
	data, err := r.client.Get(ctx, UserRecordKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user record: %w", storeErr(err))
	}

	var rec UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user record: %w", serializationErr(err))
	}
	return &rec, nil
}

// Close releases resources held by the store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// storeErr tags a Redis failure with the ErrStore sentinel.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStore, err)
}

// serializationErr tags a JSON failure with the ErrSerialization sentinel.
func serializationErr(err error) error {
	return fmt.Errorf("%w: %v", ErrSerialization, err)
}

// Ensure RedisStore implements Store interface.
var _ Store = (*RedisStore)(nil)
