// Package sse decodes a server-sent-event byte stream into data frames.
//
// Bytes are decoded as UTF-8 incrementally, so a multi-byte character split
// across two reads is reassembled before line splitting. Invalid sequences are
// replaced with U+FFFD rather than failing the stream.
package sse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DataPrefix marks a line that carries a frame payload.
	DataPrefix  = "data: "
	eventPrefix = "event:"

	readChunkSize = 4 * 1024
)

// ErrRead is returned when the underlying stream fails before completion.
var ErrRead = errors.New("sse: stream read failed")

// Frame is one data line of the stream with its prefix removed.
type Frame struct {
	// Event is the value of the most recent "event:" line before this frame
	// within the same blank-line delimited block, if any.
	Event string
	Data  string
}

// Decoder yields complete data frames from a chunked byte stream.
// A Decoder owns its reader; it is not safe for concurrent use.
type Decoder struct {
	src     io.Reader
	chunk   []byte
	pending []byte
	frames  []Frame
	event   string
	err     error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		src:   transform.NewReader(r, unicode.UTF8.NewDecoder()),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next data frame. It blocks until a complete line is
// available. Next returns io.EOF once the stream is exhausted; a partial line
// left at the end of the stream is dropped. A failed read is reported as an
// error wrapping ErrRead and the decoder stays failed.
func (d *Decoder) Next() (Frame, error) {
	for len(d.frames) == 0 {
		if d.err != nil {
			return Frame{}, d.err
		}

		n, err := d.src.Read(d.chunk)
		if n > 0 {
			d.push(d.chunk[:n])
		}
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			if len(d.pending) > 0 {
				slog.Debug("dropping incomplete trailing line",
					slog.Int("bytes", len(d.pending)),
				)
				d.pending = nil
			}
			d.err = io.EOF
		} else {
			d.err = fmt.Errorf("%w: %w", ErrRead, err)
		}
	}

	frame := d.frames[0]
	d.frames = d.frames[1:]
	return frame, nil
}

// push appends decoded text to the pending buffer and extracts every
// newline-terminated line from it.
func (d *Decoder) push(text []byte) {
	d.pending = append(d.pending, text...)
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimSuffix(d.pending[:i], []byte("\r")))
		d.pending = d.pending[i+1:]
		d.line(line)
	}
	// release the consumed prefix of the backing array
	if len(d.pending) == 0 {
		d.pending = nil
	}
}

func (d *Decoder) line(line string) {
	switch {
	case line == "":
		d.event = ""
	case strings.HasPrefix(line, DataPrefix):
		d.frames = append(d.frames, Frame{
			Event: d.event,
			Data:  strings.TrimPrefix(line, DataPrefix),
		})
	case strings.HasPrefix(line, eventPrefix):
		d.event = strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
	}
}
