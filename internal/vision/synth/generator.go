package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/tablepose/internal/vision/l1markers"
)

// Placement is a static marker on the table.
type Placement struct {
	ID    int
	X, Y  float64
	Theta float64
}

// CirclePath moves a marker anticlockwise around a circle, one lap every
// FramesPerLap frames, facing along the direction of travel.
type CirclePath struct {
	ID           int
	CX, CY       float64
	Radius       float64
	FramesPerLap int
}

// At returns the pose on the path at frame i.
func (c CirclePath) At(i int) Placement {
	n := c.FramesPerLap
	if n <= 0 {
		n = 1
	}
	a := 2 * math.Pi * float64(i%n) / float64(n)
	return Placement{
		ID:    c.ID,
		X:     c.CX + c.Radius*math.Cos(a),
		Y:     c.CY + c.Radius*math.Sin(a),
		Theta: math.Remainder(a+math.Pi/2, 2*math.Pi),
	}
}

// GeneratorConfig controls a Generator.
type GeneratorConfig struct {
	Robot    *CirclePath
	Stations []Placement

	// OcclusionProb is the chance that each corner marker is missing
	// from a frame. The first frame always shows every corner.
	OcclusionProb float64

	// NoisePx is the standard deviation of Gaussian noise added to every
	// detected corner, in image pixels.
	NoisePx float64

	Seed   uint64
	Start  time.Time
	Period time.Duration
}

// Generator produces a reproducible stream of frames for a Scene.
type Generator struct {
	scene *Scene
	cfg   GeneratorConfig
	rng   *rand.Rand
	next  int
}

// NewGenerator returns a generator; the same config and seed always yield
// the same frames.
func NewGenerator(scene *Scene, cfg GeneratorConfig) *Generator {
	if cfg.Period <= 0 {
		cfg.Period = time.Second / 30
	}
	return &Generator{
		scene: scene,
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the next frame.
func (g *Generator) Next() (l1markers.Frame, error) {
	i := g.next
	g.next++

	f := l1markers.Frame{
		Seq:       uint64(i + 1),
		Timestamp: g.cfg.Start.Add(time.Duration(i) * g.cfg.Period),
		Markers:   []l1markers.MarkerObservation{},
	}

	for c := 0; c < 4; c++ {
		if i > 0 && g.rng.Float64() < g.cfg.OcclusionProb {
			continue
		}
		m, err := g.scene.CornerMarker(c)
		if err != nil {
			return l1markers.Frame{}, err
		}
		f.Markers = append(f.Markers, g.jitter(m))
	}

	if g.cfg.Robot != nil {
		p := g.cfg.Robot.At(i)
		m, err := g.scene.Marker(p.ID, p.X, p.Y, p.Theta)
		if err != nil {
			return l1markers.Frame{}, fmt.Errorf("frame %d robot: %w", f.Seq, err)
		}
		f.Markers = append(f.Markers, g.jitter(m))
	}

	for _, st := range g.cfg.Stations {
		m, err := g.scene.Marker(st.ID, st.X, st.Y, st.Theta)
		if err != nil {
			return l1markers.Frame{}, fmt.Errorf("frame %d station: %w", f.Seq, err)
		}
		f.Markers = append(f.Markers, g.jitter(m))
	}
	return f, nil
}

func (g *Generator) jitter(m l1markers.MarkerObservation) l1markers.MarkerObservation {
	if g.cfg.NoisePx <= 0 {
		return m
	}
	for i := range m.Corners {
		m.Corners[i] = m.Corners[i].Add(r2.Point{X: g.rng.NormFloat64(), Y: g.rng.NormFloat64()}.Mul(g.cfg.NoisePx))
	}
	return m
}
