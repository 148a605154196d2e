package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = "data: {\"thought\":\"planner: 東京で3日間 🗼\"}\n\n" +
	": keep-alive\n" +
	"data: {\"thought\":\"maps_agent: ok\"}\n\n" +
	"event: final\n" +
	"data: {\"trip\":{\"daily_itinerary\":{}}}\n\n"

// chunkReader returns each chunk from a separate Read call.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.chunks) > 0 && len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func splitAt(b []byte, cuts ...int) [][]byte {
	var chunks [][]byte
	prev := 0
	for _, c := range cuts {
		chunks = append(chunks, b[prev:c])
		prev = c
	}
	return append(chunks, b[prev:])
}

func readAll(t *testing.T, d *Decoder) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestDecoder_SingleChunk(t *testing.T) {
	frames := readAll(t, NewDecoder(strings.NewReader(sampleStream)))

	require.Len(t, frames, 3)
	assert.Equal(t, `{"thought":"planner: 東京で3日間 🗼"}`, frames[0].Data)
	assert.Empty(t, frames[0].Event)
	assert.Equal(t, `{"thought":"maps_agent: ok"}`, frames[1].Data)
	assert.Equal(t, "final", frames[2].Event)
	assert.Equal(t, `{"trip":{"daily_itinerary":{}}}`, frames[2].Data)
}

func TestDecoder_EveryTwoWaySplitMatchesSingleChunk(t *testing.T) {
	raw := []byte(sampleStream)
	want := readAll(t, NewDecoder(strings.NewReader(sampleStream)))

	// covers cuts inside multi-byte characters and inside the "data: " prefix
	for i := 0; i <= len(raw); i++ {
		r := &chunkReader{chunks: splitAt(raw, i)}
		got := readAll(t, NewDecoder(r))
		require.Equal(t, want, got, "split at byte %d", i)
	}
}

func TestDecoder_ThreeWaySplitsMatchSingleChunk(t *testing.T) {
	raw := []byte(sampleStream)
	want := readAll(t, NewDecoder(strings.NewReader(sampleStream)))

	for i := 0; i <= len(raw); i += 3 {
		for j := i; j <= len(raw); j += 5 {
			r := &chunkReader{chunks: splitAt(raw, i, j)}
			got := readAll(t, NewDecoder(r))
			require.Equal(t, want, got, "splits at %d,%d", i, j)
		}
	}
}

func TestDecoder_OneByteReads(t *testing.T) {
	want := readAll(t, NewDecoder(strings.NewReader(sampleStream)))
	got := readAll(t, NewDecoder(iotest.OneByteReader(strings.NewReader(sampleStream))))
	assert.Equal(t, want, got)
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	stream := "\n\nid: 7\nretry: 100\ndata:{\"no\":\"space\"}\n: comment\ndata: kept\n\n"
	frames := readAll(t, NewDecoder(strings.NewReader(stream)))

	require.Len(t, frames, 1)
	assert.Equal(t, "kept", frames[0].Data)
}

func TestDecoder_StripsCarriageReturn(t *testing.T) {
	frames := readAll(t, NewDecoder(strings.NewReader("data: one\r\n\r\ndata: two\r\n")))

	require.Len(t, frames, 2)
	assert.Equal(t, "one", frames[0].Data)
	assert.Equal(t, "two", frames[1].Data)
}

func TestDecoder_EventResetBySeparator(t *testing.T) {
	stream := "event: thought\ndata: a\ndata: b\n\ndata: c\n"
	frames := readAll(t, NewDecoder(strings.NewReader(stream)))

	require.Len(t, frames, 3)
	assert.Equal(t, "thought", frames[0].Event)
	assert.Equal(t, "thought", frames[1].Event)
	assert.Empty(t, frames[2].Event)
}

func TestDecoder_DropsTruncatedTrailingLine(t *testing.T) {
	frames := readAll(t, NewDecoder(strings.NewReader("data: complete\ndata: {\"thou")))

	require.Len(t, frames, 1)
	assert.Equal(t, "complete", frames[0].Data)
}

func TestDecoder_InvalidUTF8IsReplaced(t *testing.T) {
	frames := readAll(t, NewDecoder(strings.NewReader("data: a\xffb\n")))

	require.Len(t, frames, 1)
	assert.Equal(t, "a\uFFFDb", frames[0].Data)
}

func TestDecoder_ReadErrorIsNotCompletion(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{
		chunks: [][]byte{[]byte("data: first\n\ndata: sec")},
		err:    boom,
	}
	d := NewDecoder(r)

	f, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", f.Data)

	_, err = d.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, io.EOF)

	// failure is sticky
	_, err = d.Next()
	assert.ErrorIs(t, err, ErrRead)
}

func TestDecoder_EmptyStream(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("")).Next()
	assert.ErrorIs(t, err, io.EOF)
}
