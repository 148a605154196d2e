package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/gennadis/tripchat/internal/event"
	"github.com/gennadis/tripchat/internal/sse"
)

// Stream is the one-shot, ordered sequence of events of a single reply.
// It owns the response body until Close.
type Stream struct {
	body    io.ReadCloser
	decoder *sse.Decoder
	pending []event.Event

	closeOnce sync.Once
	closeErr  error
}

func newStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:    body,
		decoder: sse.NewDecoder(body),
	}
}

// Next returns the next event. It returns io.EOF when the server completes
// the stream and an error wrapping sse.ErrRead when the connection fails.
func (s *Stream) Next() (event.Event, error) {
	for len(s.pending) == 0 {
		frame, err := s.decoder.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
			case errors.Is(err, context.Canceled):
				slog.Debug("message stream canceled", "error", err)
			default:
				slog.Error("Failed to read message stream", "error", err)
			}
			return nil, err
		}
		s.pending = event.Interpret(frame.Data)
	}

	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, nil
}

// Close releases the response body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
