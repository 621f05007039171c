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
	"net/http"
	"strings"
)

// ClientKind classifies a stream request by its fetch-metadata
// headers. Humans get redirected to the session detail page; bots get
// the raw multipart stream.
type ClientKind int

// Client kinds, from header heuristics.
const (
	ClientUnknown ClientKind = iota
	ClientHuman
	ClientBot
)

// String returns the lowercase kind name for logging.
func (k ClientKind) String() string {
	switch k {
	case ClientHuman:
		return "human"
	case ClientBot:
		return "bot"
	default:
		return "unknown"
	}
}

// DetectClientKind infers the client kind from request headers, in
// precedence order: Sec-Fetch-Mode, then Sec-Fetch-Dest, then Accept.
// Header-based on purpose; user-agent sniffing is too brittle.
func DetectClientKind(h http.Header) ClientKind {
	switch h.Get("Sec-Fetch-Mode") {
	case "navigate":
		return ClientHuman
	case "no-cors":
		return ClientBot
	}

	switch h.Get("Sec-Fetch-Dest") {
	case "image":
		return ClientBot
	case "document":
		return ClientHuman
	}

	accept := h.Get("Accept")
	switch {
	case strings.Contains(accept, "text/html"):
		return ClientHuman
	case strings.Contains(accept, "image/"):
		return ClientBot
	}
	return ClientUnknown
}

// BrowserEngine is the rendering engine family advertised in
// Sec-CH-UA.
type BrowserEngine int

// Known browser engine families.
const (
	EngineUnknown BrowserEngine = iota
	EngineBlink
	EngineWebKit
	EngineGecko
)

// String returns the engine family name for logging.
func (e BrowserEngine) String() string {
	switch e {
	case EngineBlink:
		return "blink"
	case EngineWebKit:
		return "webkit"
	case EngineGecko:
		return "gecko"
	default:
		return "unknown"
	}
}

// NeedsDoubleFrame reports whether the engine requires the
// double-frame workaround: Blink coalesces multipart parts and
// withholds the first real update unless each part arrives twice.
func (e BrowserEngine) NeedsDoubleFrame() bool {
	return e == EngineBlink
}

// DetectBrowserEngine infers the engine family from Sec-CH-UA.
func DetectBrowserEngine(h http.Header) BrowserEngine {
	ua := strings.ToLower(h.Get("Sec-CH-UA"))
	switch {
	case ua == "":
		return EngineUnknown
	case strings.Contains(ua, "chromium"), strings.Contains(ua, "chrome"):
		return EngineBlink
	case strings.Contains(ua, "gecko"):
		return EngineGecko
	case strings.Contains(ua, "safari"):
		return EngineWebKit
	default:
		return EngineUnknown
	}
}
