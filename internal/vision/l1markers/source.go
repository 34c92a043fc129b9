package l1markers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/banshee-data/tablepose/internal/timeutil"
)

// Source yields detector frames. Next blocks until a frame is available and
// returns io.EOF once the stream is exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// ErrMalformedFrame marks a line that could not be decoded into a frame.
// The stream itself is still readable.
var ErrMalformedFrame = errors.New("malformed frame")

// maxLineBytes bounds a single JSON line; a frame with dozens of markers is
// well under this. Longer lines are skipped as malformed.
const maxLineBytes = 1 << 20

var errLineTooLong = fmt.Errorf("line longer than %d bytes", maxLineBytes)

// rawLine is one line handed from the reader goroutine to Next.
type rawLine struct {
	text    []byte
	tooLong bool
	err     error
}

// JSONLSource reads frames from a JSON Lines stream. Frames without a seq
// are numbered after the last one seen; frames without a timestamp are
// stamped with the clock.
//
// Lines are read on a background goroutine so that Next returns as soon as
// its context is done, even while the stream is idle.
type JSONLSource struct {
	reader *bufio.Reader
	clock  timeutil.Clock

	start     sync.Once
	closeOnce sync.Once
	lines     chan rawLine
	done      chan struct{}

	line    int
	lastSeq uint64
	err     error
}

// NewJSONLSource wraps r. A nil clock uses the wall clock.
func NewJSONLSource(r io.Reader, clock timeutil.Clock) *JSONLSource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &JSONLSource{
		reader: bufio.NewReaderSize(r, 64*1024),
		clock:  clock,
		lines:  make(chan rawLine),
		done:   make(chan struct{}),
	}
}

// Close stops the background reader once its current read returns. It does
// not close the underlying reader.
func (s *JSONLSource) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *JSONLSource) readLines() {
	defer close(s.lines)
	for {
		text, err := readLine(s.reader)
		if errors.Is(err, io.EOF) {
			return
		}
		r := rawLine{text: text}
		switch {
		case errors.Is(err, errLineTooLong):
			r.tooLong = true
		case err != nil:
			r.err = err
		}
		select {
		case s.lines <- r:
		case <-s.done:
			return
		}
		if r.err != nil {
			return
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxLineBytes is consumed in full and reported as errLineTooLong. io.EOF is
// returned only when no bytes remain.
func readLine(br *bufio.Reader) ([]byte, error) {
	var buf []byte
	tooLong, read := false, false
	for {
		chunk, err := br.ReadSlice('\n')
		read = read || len(chunk) > 0
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == nil:
		case errors.Is(err, io.EOF):
			if !read {
				return nil, io.EOF
			}
		default:
			return nil, err
		}
		break
	}
	if tooLong {
		return nil, errLineTooLong
	}
	return bytes.TrimRight(buf, "\r\n"), nil
}

// Next returns the next frame. Blank lines and lines starting with '#' are
// skipped. A malformed or oversized line is an error naming its line number;
// the source stays usable and the following call continues with the next
// line. A cancelled context returns immediately without losing the position
// in the stream.
func (s *JSONLSource) Next(ctx context.Context) (Frame, error) {
	s.start.Do(func() { go s.readLines() })
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if s.err != nil {
			return Frame{}, s.err
		}

		var (
			r  rawLine
			ok bool
		)
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case r, ok = <-s.lines:
		}
		if !ok {
			return Frame{}, io.EOF
		}
		if r.err != nil {
			s.err = fmt.Errorf("read detections: %w", r.err)
			return Frame{}, s.err
		}
		s.line++

		if r.tooLong {
			return Frame{}, fmt.Errorf("line %d: %w: %w", s.line, ErrMalformedFrame, errLineTooLong)
		}
		text := strings.TrimSpace(string(r.text))
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec frameRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return Frame{}, fmt.Errorf("line %d: %w: %w", s.line, ErrMalformedFrame, err)
		}

		frame := Frame{Seq: rec.Seq, Markers: make([]MarkerObservation, 0, len(rec.Markers))}
		if frame.Seq == 0 {
			frame.Seq = s.lastSeq + 1
		}
		s.lastSeq = frame.Seq
		if rec.TS != nil {
			frame.Timestamp = *rec.TS
		} else {
			frame.Timestamp = s.clock.Now()
		}

		for _, mr := range rec.Markers {
			obs, err := mr.observation()
			if err != nil {
				return Frame{}, fmt.Errorf("line %d: %w: %w", s.line, ErrMalformedFrame, err)
			}
			frame.Markers = append(frame.Markers, obs)
		}
		return frame, nil
	}
}

// Writer encodes frames as JSON Lines.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write appends one frame and a newline.
func (w *Writer) Write(f Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}
	data = append(data, '\n')
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Seq, err)
	}
	return nil
}

// SliceSource replays an in-memory list of frames. It is used by tests and
// by tools that synthesise detections.
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource returns a source over frames.
func NewSliceSource(frames []Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next returns the next frame or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}
