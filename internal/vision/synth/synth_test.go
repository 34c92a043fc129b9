package synth

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tablepose/internal/testutil"
	"github.com/banshee-data/tablepose/internal/vision/l5entities"
	"github.com/banshee-data/tablepose/internal/vision/pipeline"
)

// perspectiveQuad is a camera looking down at the table from the near
// edge: the far edge appears shorter.
var perspectiveQuad = [4]r2.Point{{X: 220, Y: 90}, {X: 420, Y: 95}, {X: 560, Y: 400}, {X: 80, Y: 395}}

func newScene(t *testing.T) *Scene {
	t.Helper()
	s, err := NewScene(perspectiveQuad, [4]int{10, 12, 14, 16}, 0.3, 0.3, 0.01)
	require.NoError(t, err)
	return s
}

func TestScene_CornersLandOnQuad(t *testing.T) {
	t.Parallel()
	s := newScene(t)

	for i, want := range perspectiveQuad {
		m, err := s.CornerMarker(i)
		require.NoError(t, err)
		assert.Equal(t, s.CornerIDs[i], m.ID)
		testutil.AssertPointNear(t, want, m.Center(), 0.5)
	}

	_, err := s.CornerMarker(4)
	assert.Error(t, err)
}

func TestNewScene_Rejects(t *testing.T) {
	t.Parallel()

	_, err := NewScene(perspectiveQuad, [4]int{1, 2, 3, 4}, 0.3, 0.3, 0)
	assert.Error(t, err)

	collinear := [4]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 30, Y: 0}}
	_, err = NewScene(collinear, [4]int{1, 2, 3, 4}, 0.3, 0.3, 0.02)
	assert.Error(t, err)
}

func TestCirclePath_At(t *testing.T) {
	t.Parallel()

	c := CirclePath{ID: 18, CX: 0.15, CY: 0.15, Radius: 0.1, FramesPerLap: 4}
	p := c.At(1)
	assert.InDelta(t, 0.15, p.X, 1e-12)
	assert.InDelta(t, 0.25, p.Y, 1e-12)
	testutil.AssertAngleNear(t, math.Pi, p.Theta, 1e-12)

	assert.Equal(t, c.At(0), c.At(4), "path repeats every lap")
}

func TestGenerator_Reproducible(t *testing.T) {
	t.Parallel()
	s := newScene(t)

	cfg := GeneratorConfig{
		Robot:         &CirclePath{ID: 18, CX: 0.15, CY: 0.15, Radius: 0.08, FramesPerLap: 60},
		Stations:      []Placement{{ID: 20, X: 0.25, Y: 0.25}},
		OcclusionProb: 0.3,
		NoisePx:       0.2,
		Seed:          42,
		Start:         time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	a, b := NewGenerator(s, cfg), NewGenerator(s, cfg)
	occluded := 0
	for i := 0; i < 50; i++ {
		fa, err := a.Next()
		require.NoError(t, err)
		fb, err := b.Next()
		require.NoError(t, err)
		if diff := cmp.Diff(fa, fb); diff != "" {
			t.Fatalf("frame %d differs (-a +b):\n%s", i, diff)
		}
		assert.Equal(t, uint64(i+1), fa.Seq)
		assert.Equal(t, cfg.Start.Add(time.Duration(i)*time.Second/30), fa.Timestamp)
		if i == 0 {
			assert.Len(t, fa.Markers, 6, "first frame shows every corner")
		}
		occluded += 6 - len(fa.Markers)
	}
	assert.Positive(t, occluded)
}

func TestGenerator_PipelineRecoversPoses(t *testing.T) {
	t.Parallel()
	s := newScene(t)

	path := CirclePath{ID: 18, CX: 0.15, CY: 0.15, Radius: 0.08, FramesPerLap: 40}
	gen := NewGenerator(s, GeneratorConfig{
		Robot:         &path,
		Stations:      []Placement{{ID: 20, X: 0.25, Y: 0.05, Theta: math.Pi / 2}},
		OcclusionProb: 0.5,
		Seed:          7,
	})

	proc, err := pipeline.NewProcessor(pipeline.Config{
		CornerIDs:   []int{10, 12, 14, 16},
		TableWidth:  0.3,
		TableHeight: 0.3,
		Entities: l5entities.Config{
			Robot:    &l5entities.EntityConfig{MarkerID: 18},
			Stations: map[string]l5entities.EntityConfig{"3d": {MarkerID: 20}},
		},
	}, pipeline.NewDispatcher())
	require.NoError(t, err)

	// Marker centres are image centroids, which sit slightly off the true
	// centre under perspective; millimetre agreement is expected.
	for i := 0; i < 80; i++ {
		f, err := gen.Next()
		require.NoError(t, err)

		out := proc.ProcessFrame(f)
		require.Equal(t, pipeline.StatusDispatched, out.Status, "frame %d", i)
		require.NotNil(t, out.Result.Robot)

		want := path.At(i)
		testutil.AssertPointNear(t, r2.Point{X: want.X, Y: want.Y},
			r2.Point{X: out.Result.Robot.X, Y: out.Result.Robot.Y}, 2e-3)
		testutil.AssertAngleNear(t, want.Theta, out.Result.Robot.Angle, 0.05)

		st := out.Result.Markers["3d"]
		testutil.AssertPointNear(t, r2.Point{X: 0.25, Y: 0.05}, r2.Point{X: st.X, Y: st.Y}, 2e-3)
	}
}
