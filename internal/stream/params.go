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

package stream

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ErrInvalidParams is returned when a stream query parameter does not
// parse. Callers surface it as invalid input.
var ErrInvalidParams = errors.New("invalid stream parameter")

// DefaultKeepAlive is the keep-alive period when the query omits
// keep_alive.
const DefaultKeepAlive = 30 * time.Second

// Params are the per-connection stream options parsed from the query
// string.
type Params struct {
	// DoubleFrame overrides the engine-detection heuristic when set.
	DoubleFrame *bool
	// AsBot requests the stream even for human-classified clients.
	AsBot bool
	// KeepAlive is the period between keep-alive re-emissions.
	KeepAlive time.Duration
	// DelayedStart delays the driver loop after the initial frame.
	DelayedStart time.Duration
}

// ParseParams parses double_frame, as_bot, keep_alive (ms, must be
// positive), and delayed_start (ms) from the query string.
func ParseParams(q url.Values) (Params, error) {
	p := Params{KeepAlive: DefaultKeepAlive}

	if v := q.Get("double_frame"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Params{}, fmt.Errorf("%w: double_frame: %v", ErrInvalidParams, err)
		}
		p.DoubleFrame = &b
	}

	if v := q.Get("as_bot"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Params{}, fmt.Errorf("%w: as_bot: %v", ErrInvalidParams, err)
		}
		p.AsBot = b
	}

	if v := q.Get("keep_alive"); v != "" {
		ms, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Params{}, fmt.Errorf("%w: keep_alive: %v", ErrInvalidParams, err)
		}
		if ms == 0 {
			return Params{}, fmt.Errorf("%w: keep_alive must be positive", ErrInvalidParams)
		}
		p.KeepAlive = time.Duration(ms) * time.Millisecond
	}

	if v := q.Get("delayed_start"); v != "" {
		ms, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Params{}, fmt.Errorf("%w: delayed_start: %v", ErrInvalidParams, err)
		}
		p.DelayedStart = time.Duration(ms) * time.Millisecond
	}

	return p, nil
}
