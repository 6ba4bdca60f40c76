// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// =============================================================================
// STREAM TYPES
// =============================================================================

// doneSentinel marks the logical end of the stream before transport close.
const doneSentinel = "data: [DONE]"

// dataPrefix marks an event-data line.
const dataPrefix = "data: "

// streamEvent is one JSON event envelope from the completion stream.
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// content returns the first choice's delta content, or "".
func (e *streamEvent) content() string {
	if len(e.Choices) > 0 {
		return e.Choices[0].Delta.Content
	}
	return ""
}

// =============================================================================
// FRAME DECODER
// =============================================================================

// frameDecoder reassembles newline-delimited frames from arbitrary byte
// chunks. A trailing partial line is retained, byte for byte, and prefixed
// onto the next chunk: no byte is processed twice or dropped, and a
// multi-byte character split across chunks is never mangled because lines
// are only converted to strings once complete.
type frameDecoder struct {
	partial []byte
}

// feed returns the complete lines contained in chunk (plus any carried
// partial), keeping the trailing partial line for the next call.
func (d *frameDecoder) feed(chunk []byte) []string {
	d.partial = append(d.partial, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.partial, '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, string(d.partial[:i]))
		d.partial = d.partial[i+1:]
	}
}

// flush returns the final unterminated line, if any.
func (d *frameDecoder) flush() (string, bool) {
	if len(d.partial) == 0 {
		return "", false
	}
	line := string(d.partial)
	d.partial = nil
	return line, true
}

// =============================================================================
// STREAM PROCESSING
// =============================================================================

// handleLine evaluates one complete frame line. Blank lines and the
// termination sentinel are ignored; malformed event lines are skipped so a
// single corrupt frame cannot fail the whole response.
func handleLine(line string, onChunk func(string)) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed == doneSentinel {
		return
	}
	if !strings.HasPrefix(trimmed, dataPrefix) {
		return
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(trimmed[len(dataPrefix):]), &event); err != nil {
		return
	}
	if content := event.content(); content != "" {
		onChunk(content)
	}
}

// processStream incrementally decodes the response body and forwards
// content deltas to onChunk in frame order. Returns nil on clean stream
// end; the caller decides what cancellation means.
func processStream(ctx context.Context, body io.Reader, onChunk func(string)) error {
	decoder := &frameDecoder{}
	buf := make([]byte, 4096)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := body.Read(buf)
		if n > 0 {
			for _, line := range decoder.feed(buf[:n]) {
				handleLine(line, onChunk)
			}
		}
		if err == io.EOF {
			// Flush any buffered final line before completing.
			if line, ok := decoder.flush(); ok {
				handleLine(line, onChunk)
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}
