package l1markers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tablepose/internal/timeutil"
)

func square(id int, cx, cy, half float64) MarkerObservation {
	return MarkerObservation{ID: id, Corners: [4]r2.Point{
		{X: cx - half, Y: cy - half},
		{X: cx + half, Y: cy - half},
		{X: cx + half, Y: cy + half},
		{X: cx - half, Y: cy + half},
	}}
}

func TestMarkerObservation_Center(t *testing.T) {
	m := square(7, 120, 80, 10)
	assert.Equal(t, r2.Point{X: 120, Y: 80}, m.Center())
}

func TestFrame_IDs(t *testing.T) {
	f := Frame{Markers: []MarkerObservation{square(10, 0, 0, 1), square(18, 5, 5, 1)}}
	assert.Equal(t, []int{10, 18}, f.IDs())
}

func TestJSONLSource_ReadsFrames(t *testing.T) {
	input := `# recorded on bench
{"seq":4,"ts":"2026-02-01T10:00:00Z","markers":[{"id":10,"corners":[[0,0],[2,0],[2,2],[0,2]]}]}

{"markers":[]}
{"markers":[{"id":18,"corners":[[10,10],[12,10],[12,12],[10,12]]}]}
`
	clock := timeutil.NewMockClock(time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC))
	src := NewJSONLSource(strings.NewReader(input), clock)
	ctx := context.Background()

	f1, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), f1.Seq)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), f1.Timestamp.UTC())
	require.Len(t, f1.Markers, 1)
	assert.Equal(t, r2.Point{X: 1, Y: 1}, f1.Markers[0].Center())

	f2, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), f2.Seq, "missing seq continues from previous")
	assert.Equal(t, clock.Now(), f2.Timestamp)
	assert.Empty(t, f2.Markers)

	f3, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), f3.Seq)
	assert.Equal(t, []int{18}, f3.IDs())

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONLSource_MalformedLines(t *testing.T) {
	input := `{"markers":[{"id":1,"corners":[[0,0],[1,0],[1,1]]}]}
not json
{"markers":[{"id":2,"corners":[[0,0],[1,0],[1,1],[0,1]]}]}
`
	src := NewJSONLSource(strings.NewReader(input), nil)
	ctx := context.Background()

	_, err := src.Next(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
	assert.Contains(t, err.Error(), "3 corners")
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = src.Next(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.ErrorIs(t, err, ErrMalformedFrame)

	f, err := src.Next(ctx)
	require.NoError(t, err, "source keeps going after a bad line")
	assert.Equal(t, []int{2}, f.IDs())
}

func TestJSONLSource_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewJSONLSource(strings.NewReader(`{"markers":[]}`), nil)
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONLSource_OversizedLineIsSkipped(t *testing.T) {
	huge := `{"markers":[],"pad":"` + strings.Repeat("x", maxLineBytes) + `"}`
	input := huge + "\n" + `{"seq":9,"markers":[{"id":2,"corners":[[0,0],[1,0],[1,1],[0,1]]}]}` + "\n" + huge

	src := NewJSONLSource(strings.NewReader(input), nil)
	defer src.Close()
	ctx := context.Background()

	_, err := src.Next(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedFrame)
	assert.ErrorIs(t, err, errLineTooLong)
	assert.Contains(t, err.Error(), "line 1")

	f, err := src.Next(ctx)
	require.NoError(t, err, "source keeps going after an oversized line")
	assert.Equal(t, uint64(9), f.Seq)
	assert.Equal(t, []int{2}, f.IDs())

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, ErrMalformedFrame, "unterminated oversized last line")
	assert.Contains(t, err.Error(), "line 3")

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONLSource_CancelWhileIdle(t *testing.T) {
	pr, pw := io.Pipe()
	src := NewJSONLSource(pr, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "Next returns while the stream is silent")

	go func() {
		_, _ = pw.Write([]byte(`{"seq":7,"markers":[]}` + "\n"))
		_ = pw.Close()
	}()

	f, err := src.Next(context.Background())
	require.NoError(t, err, "source is still usable after a cancelled wait")
	assert.Equal(t, uint64(7), f.Seq)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONLSource_ReadErrorIsSticky(t *testing.T) {
	readErr := errors.New("device gone")
	src := NewJSONLSource(io.MultiReader(strings.NewReader(`{"seq":1,"markers":[]}`+"\n"), iotest.ErrReader(readErr)), nil)
	defer src.Close()
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Seq)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, readErr)
	assert.NotErrorIs(t, err, ErrMalformedFrame)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, readErr)
}

func TestWriter_RoundTripsThroughSource(t *testing.T) {
	ts := time.Date(2026, 2, 1, 10, 0, 0, 500_000_000, time.UTC)
	frames := []Frame{
		{Seq: 1, Timestamp: ts, Markers: []MarkerObservation{square(10, 5, 5, 2), square(18, 40.5, 22.25, 3)}},
		{Seq: 2, Timestamp: ts.Add(time.Second), Markers: []MarkerObservation{}},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, f := range frames {
		require.NoError(t, w.Write(f))
	}

	src := NewJSONLSource(&buf, nil)
	for _, want := range frames {
		got, err := src.Next(context.Background())
		require.NoError(t, err)
		got.Timestamp = got.Timestamp.UTC()
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("frame mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]Frame{{Seq: 1}, {Seq: 2}})
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Seq)
	f, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.Seq)
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
