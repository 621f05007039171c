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

// Package stream drives one multipart/x-mixed-replace response per
// connection. A request either redirects human clients to the session
// detail page or opens a part stream fed by the initial rendered frame,
// bus updates, and periodic keep-alive re-emissions.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/realtime-svg/realtime-svg/internal/bus"
	"github.com/realtime-svg/realtime-svg/internal/session"
)

// writerBuffer is the capacity of the per-connection part channel. A
// consumer slow enough to fill it is dropped rather than buffered.
const writerBuffer = 16

// ErrStreamingUnsupported is returned when the connection cannot
// flush parts incrementally.
var ErrStreamingUnsupported = errors.New("streaming unsupported by connection")

// Request carries the per-stream inputs gathered by the caller: the
// already-loaded session's current frame, the topic to subscribe to,
// and where to send human clients instead.
type Request struct {
	// LogID identifies the session in log lines.
	LogID string
	// Topic is the bus topic carrying the session's frame updates.
	Topic string
	// RedirectPath is the human-facing detail page for this session.
	RedirectPath string
	// InitialFrame is the session's current frame, rendered at join.
	InitialFrame session.Frame
}

// Engine serves multipart streams. One driver goroutine and one bus
// subscription per connection.
type Engine struct {
	bus     *bus.Bus
	metrics *Metrics
	log     logr.Logger
}

// NewEngine creates a stream engine.
func NewEngine(b *bus.Bus, metrics *Metrics, log logr.Logger) *Engine {
	return &Engine{
		bus:     b,
		metrics: metrics,
		log:     log.WithName("stream"),
	}
}

// ServeStream handles one stream request end to end. Errors are
// returned only before any response bytes are written; later failures
// terminate the stream silently. The subscription is opened before the
// first byte goes out, so the synchronously emitted initial frame
// covers the store's non-atomic set-then-publish window.
func (e *Engine) ServeStream(w http.ResponseWriter, r *http.Request, req Request) error {
	params, err := ParseParams(r.URL.Query())
	if err != nil {
		return err
	}

	kind := DetectClientKind(r.Header)
	if kind == ClientHuman && !params.AsBot {
		http.Redirect(w, r, req.RedirectPath, http.StatusTemporaryRedirect)
		return nil
	}

	double := DetectBrowserEngine(r.Header).NeedsDoubleFrame()
	if params.DoubleFrame != nil {
		double = *params.DoubleFrame
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	sub, err := e.bus.Subscribe(r.Context(), req.Topic)
	if err != nil {
		return fmt.Errorf("failed to open subscription: %w", err)
	}

	log := e.log.WithValues("session", req.LogID, "client_kind", kind.String(), "double_frame", double)
	log.V(1).Info("stream opened",
		"keep_alive", params.KeepAlive,
		"delayed_start", params.DelayedStart,
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	parts := make(chan []byte, writerBuffer)
	e.metrics.StreamsActive.Inc()
	go e.drive(ctx, sub, parts, driverConfig{
		log:          log,
		double:       double,
		keepAlive:    params.KeepAlive,
		delayedStart: params.DelayedStart,
		initial:      req.InitialFrame,
	})

	w.Header().Set("Content-Type", contentTypeStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(boundaryOpener)); err != nil {
		return nil
	}
	if _, err := w.Write(encodeFrame(req.InitialFrame, double)); err != nil {
		return nil
	}
	flusher.Flush()
	e.countParts(reasonInitial, double)

	for part := range parts {
		if _, err := w.Write(part); err != nil {
			log.V(1).Info("writer disconnected", "err", err.Error())
			cancel()
			break
		}
		flusher.Flush()
	}
	return nil
}

// driverConfig carries the immutable inputs of one driver goroutine.
type driverConfig struct {
	log          logr.Logger
	double       bool
	keepAlive    time.Duration
	delayedStart time.Duration
	initial      session.Frame
}

// drive merges bus messages and keep-alive ticks into the part
// channel. It owns the subscription and the channel: on any
// termination condition it releases both and returns without emitting
// a shutdown frame.
func (e *Engine) drive(ctx context.Context, sub *bus.Subscription, parts chan<- []byte, cfg driverConfig) {
	defer close(parts)
	defer func() { _ = sub.Close() }()
	defer e.metrics.StreamsActive.Dec()

	if cfg.delayedStart > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.delayedStart):
		}
	}

	ticker := time.NewTicker(cfg.keepAlive)
	defer ticker.Stop()

	last := cfg.initial
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-sub.Messages():
			if !ok {
				cfg.log.V(1).Info("bus stream ended")
				return
			}
			var frame session.Frame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				e.metrics.DecodeFailures.Inc()
				cfg.log.Error(err, "failed to decode frame payload")
				continue
			}
			last = frame
			if !e.enqueue(parts, encodeFrame(frame, cfg.double), reasonUpdate, cfg.double) {
				return
			}

		case <-ticker.C:
			cfg.log.V(1).Info("re-sending keep-alive frame", "timestamp", last.Timestamp)
			if !e.enqueue(parts, encodeFrame(last, cfg.double), reasonKeepAlive, cfg.double) {
				return
			}
		}
	}
}

// enqueue hands a part to the writer without blocking. A full channel
// means the consumer is too slow; the driver terminates rather than
// buffer or block the publisher.
func (e *Engine) enqueue(parts chan<- []byte, data []byte, reason string, double bool) bool {
	select {
	case parts <- data:
		e.countParts(reason, double)
		return true
	default:
		return false
	}
}

func (e *Engine) countParts(reason string, double bool) {
	n := 1.0
	if double {
		n = 2
	}
	e.metrics.PartsTotal.WithLabelValues(reason).Add(n)
}
