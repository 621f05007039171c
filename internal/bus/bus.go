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

// Package bus provides topic pub/sub over the shared Redis deployment.
// It decouples producer writes from consumer streams across instances.
// Payloads are opaque bytes; delivery is best-effort to live
// subscribers only, with no replay and no cross-topic ordering.
package bus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Bus is a topic-addressed broadcast channel backed by Redis pub/sub.
type Bus struct {
	client redis.UniversalClient
}

// New creates a bus on an existing Redis client.
func New(client redis.UniversalClient) *Bus {
	return &Bus{client: client}
}

// Publish broadcasts payload to all current subscribers of topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %q: %w", topic, err)
	}
	return nil
}

// Subscribe opens a subscription on topic. It returns only after the
// subscription is confirmed by the server, so a publish issued after
// Subscribe returns is guaranteed to reach the subscription.
func (b *Bus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, topic)

	// Wait for the subscribe confirmation before handing the
	// subscription out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %q: %w", topic, err)
	}
	return &Subscription{pubsub: pubsub}, nil
}

// Subscription is a live subscription on one topic.
type Subscription struct {
	pubsub *redis.PubSub
}

// Messages returns the channel of incoming messages. The channel is
// closed when the subscription is closed or the connection drops,
// which consumers treat as end of stream.
func (s *Subscription) Messages() <-chan *redis.Message {
	return s.pubsub.Channel()
}

// Close unsubscribes and releases the subscription.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
