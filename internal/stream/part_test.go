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
	"bytes"
	"testing"

	"github.com/realtime-svg/realtime-svg/internal/session"
)

func TestEncodePart(t *testing.T) {
	frame := session.NewFrame("<svg>hi</svg>")

	got := encodePart(frame)
	want := "Content-Type: image/svg+xml\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		"<svg>hi</svg>\r\n" +
		"--frame\r\n"
	if string(got) != want {
		t.Errorf("encodePart = %q, want %q", got, want)
	}
}

func TestEncodePart_EmptyContent(t *testing.T) {
	got := encodePart(session.NewFrame(""))
	want := "Content-Type: image/svg+xml\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n" +
		"\r\n" +
		"--frame\r\n"
	if string(got) != want {
		t.Errorf("encodePart = %q, want %q", got, want)
	}
}

func TestEncodePart_ByteLength(t *testing.T) {
	// Content-Length counts bytes, not runes.
	frame := session.NewFrame("<svg>héllo</svg>")

	got := string(encodePart(frame))
	if !bytes.Contains([]byte(got), []byte("Content-Length: 17\r\n")) {
		t.Errorf("encodePart = %q, want a 17-byte Content-Length", got)
	}
}

func TestEncodeFrame_Double(t *testing.T) {
	frame := session.NewFrame("<svg/>")

	single := encodeFrame(frame, false)
	if !bytes.Equal(single, encodePart(frame)) {
		t.Error("single frame should equal one part")
	}

	double := encodeFrame(frame, true)
	if !bytes.Equal(double, append(append([]byte{}, single...), single...)) {
		t.Error("double frame should be the part written twice back-to-back")
	}
}
