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
	"fmt"

	"github.com/realtime-svg/realtime-svg/internal/session"
)

// Multipart wire format constants. The boundary token is part of the
// external contract and must stay byte-exact.
const (
	contentTypeStream = "multipart/x-mixed-replace; boundary=frame"
	boundaryOpener    = "--frame\r\n"
)

// encodePart encodes one frame as a multipart part:
//
//	Content-Type: image/svg+xml\r\n
//	Content-Length: <N>\r\n
//	\r\n
//	<N bytes of SVG>\r\n
//	--frame\r\n
func encodePart(frame session.Frame) []byte {
	content := frame.Content
	buf := make([]byte, 0, len(content)+96)
	buf = append(buf, "Content-Type: image/svg+xml\r\n"...)
	buf = append(buf, fmt.Sprintf("Content-Length: %d\r\n", len(content))...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, content...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, boundaryOpener...)
	return buf
}

// encodeFrame encodes a frame as one part, written twice back-to-back
// when the double-frame workaround is active.
func encodeFrame(frame session.Frame, double bool) []byte {
	part := encodePart(frame)
	if !double {
		return part
	}
	return append(part, part...)
}
